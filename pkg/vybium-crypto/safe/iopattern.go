package safe

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// MaxCallLength is the largest length a single Absorb/Squeeze call may
// declare, and the largest total output length a Sponge may accumulate.
// It is the largest value that fits the 31-bit field of the tag encoding
// (§6 of the IO pattern byte format).
const MaxCallLength = 1<<31 - 1

// Variant distinguishes the two kinds of IO pattern call.
type Variant uint8

const (
	// AbsorbVariant marks a call that feeds elements into the sponge.
	AbsorbVariant Variant = iota
	// SqueezeVariant marks a call that reads elements out of the sponge.
	SqueezeVariant
)

func (v Variant) String() string {
	if v == AbsorbVariant {
		return "Absorb"
	}
	return "Squeeze"
}

// Call is one step of an IO pattern: absorb or squeeze exactly Length
// elements. Length must be in [1, MaxCallLength].
type Call struct {
	Variant Variant
	Length  uint32
}

// Absorb builds an Absorb(n) call.
func Absorb(n uint32) Call { return Call{Variant: AbsorbVariant, Length: n} }

// Squeeze builds a Squeeze(n) call.
func Squeeze(n uint32) Call { return Call{Variant: SqueezeVariant, Length: n} }

// IOPattern is the ordered sequence of Absorb/Squeeze calls a Sponge
// commits to at Start. Dispatch during Absorb/Squeeze is checked against
// this exact, non-aggregated sequence.
type IOPattern []Call

// Validate rejects an IO pattern that is empty, single-element, does not
// begin with Absorb, does not end with Squeeze, contains a zero-length
// call, or contains a call whose length exceeds MaxCallLength.
func (p IOPattern) Validate() error {
	if len(p) < 2 {
		return errors.Wrapf(ErrInvalidIOPattern, "pattern has %d calls, need at least 2", len(p))
	}
	if p[0].Variant != AbsorbVariant {
		return errors.Wrap(ErrInvalidIOPattern, "pattern must begin with Absorb")
	}
	if p[len(p)-1].Variant != SqueezeVariant {
		return errors.Wrap(ErrInvalidIOPattern, "pattern must end with Squeeze")
	}
	for i, c := range p {
		if c.Length == 0 {
			return errors.Wrapf(ErrInvalidIOPattern, "call %d has length 0", i)
		}
		if c.Length > MaxCallLength {
			return errors.Wrapf(ErrInvalidIOPattern, "call %d has length %d, exceeds %d", i, c.Length, MaxCallLength)
		}
	}
	return nil
}

// Aggregate folds contiguous runs of the same variant into a single call
// whose length is the sum. It is used only to derive the initial tag;
// dispatch during Absorb/Squeeze always uses the original, non-aggregated
// pattern. Returns an error if a run's summed length would overflow
// MaxCallLength.
func (p IOPattern) Aggregate() (IOPattern, error) {
	if len(p) == 0 {
		return nil, nil
	}
	agg := make(IOPattern, 0, len(p))
	cur := p[0]
	for _, c := range p[1:] {
		if c.Variant == cur.Variant {
			sum := uint64(cur.Length) + uint64(c.Length)
			if sum > MaxCallLength {
				return nil, errors.Wrapf(ErrInvalidIOPattern, "aggregated %s run overflows %d", cur.Variant, MaxCallLength)
			}
			cur.Length = uint32(sum)
			continue
		}
		agg = append(agg, cur)
		cur = c
	}
	agg = append(agg, cur)
	return agg, nil
}

// Encode renders the aggregated pattern as the tag-derivation byte
// string: one big-endian 32-bit word per call (MSB set for Absorb, clear
// for Squeeze; low 31 bits the length), in pattern order, followed
// verbatim by domainSeparator.
func (p IOPattern) Encode(domainSeparator []byte) []byte {
	out := make([]byte, 4*len(p)+len(domainSeparator))
	for i, c := range p {
		word := c.Length
		if c.Variant == AbsorbVariant {
			word |= 1 << 31
		}
		binary.BigEndian.PutUint32(out[4*i:4*i+4], word)
	}
	copy(out[4*len(p):], domainSeparator)
	return out
}

// DomainSeparatorUint renders n as the minimal big-endian byte string (no
// leading zero byte, except that n == 0 renders as a single zero byte).
func DomainSeparatorUint(n uint64) []byte {
	if n == 0 {
		return []byte{0}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	out := make([]byte, 8-i)
	copy(out, buf[i:])
	return out
}
