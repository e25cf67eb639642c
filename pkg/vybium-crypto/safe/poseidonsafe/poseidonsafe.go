// Package poseidonsafe wires the SAFE sponge core to the rest of
// vybium-crypto: the Poseidon permutation as Permute, blake2b as the
// bytes-to-field-element Tag hash, and field.Element's group operations
// as Add/Sub. It is the reference instantiation spec.md's §9 describes
// the core as deliberately agnostic to.
package poseidonsafe

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/vybium/safe/pkg/vybium-crypto/field"
	"github.com/vybium/safe/pkg/vybium-crypto/hash"
	"github.com/vybium/safe/pkg/vybium-crypto/safe"
)

// Params configures a Poseidon-backed SAFE instance. Width is the full
// state width (capacity 1 + rate); SecurityLevel selects the round
// counts (128 or 256, as hash.GetDefaultPoseidonParameters supports).
type Params struct {
	Width         int
	SecurityLevel int
}

// DefaultParams is width 4 (capacity 1, rate 3) at 128-bit security, the
// same shape hash.GetDefaultPoseidonParameters(128) already uses.
func DefaultParams() Params {
	return Params{Width: 4, SecurityLevel: 128}
}

func poseidonParameters(p Params) *hash.PoseidonParameters {
	base := hash.GetDefaultPoseidonParameters(p.SecurityLevel)
	base.Width = p.Width
	base.Rate = p.Width - 1
	return base
}

// Capabilities builds the Capabilities[field.Element] bundle a Sponge
// needs: Poseidon as the permutation, blake2b-256 reduced mod the field
// as the tag hash, and field.Element.Add as the group operation.
//
// field.Element is 64 bits, short of the "at least 256 bits" convention
// spec.md §3 recommends for the capacity cell; that convention is
// documented there as the instantiator's responsibility, not something
// the core enforces, and this package accepts the narrower margin that
// comes with reusing the teacher's existing Goldilocks field.
func Capabilities(p Params) (safe.Capabilities[field.Element], error) {
	poseidon, err := hash.NewPoseidon(poseidonParameters(p))
	if err != nil {
		return safe.Capabilities[field.Element]{}, errors.Wrap(err, "poseidonsafe: building poseidon permutation")
	}
	if poseidon.Width() != p.Width {
		return safe.Capabilities[field.Element]{}, errors.Errorf("poseidonsafe: poseidon width %d does not match requested width %d", poseidon.Width(), p.Width)
	}

	return safe.Capabilities[field.Element]{
		Permute: poseidon.Permute,
		Tag:     tagElement,
		Add:     field.Element.Add,
	}, nil
}

// AEADCapabilities extends Capabilities with Sub and a constant-time
// Equal, for use with safe.Encrypt/safe.Decrypt.
func AEADCapabilities(p Params) (safe.AEADCapabilities[field.Element], error) {
	caps, err := Capabilities(p)
	if err != nil {
		return safe.AEADCapabilities[field.Element]{}, err
	}
	return safe.AEADCapabilities[field.Element]{
		Capabilities: caps,
		Sub:          field.Element.Sub,
		Equal:        ConstantTimeEqual,
	}, nil
}

// tagElement hashes data with blake2b-256 and reduces the digest to a
// field.Element, giving Start a tag derivation independent of the
// permutation it seeds.
func tagElement(data []byte) field.Element {
	digest := blake2b.Sum256(data)
	var acc field.Element
	for _, b := range digest {
		acc = acc.Mul(field.New(256)).Add(field.New(uint64(b)))
	}
	return acc
}

// ConstantTimeEqual compares two field elements in constant time via
// their canonical byte encoding.
func ConstantTimeEqual(a, b field.Element) bool {
	ab, bb := a.ToBytes(), b.ToBytes()
	return safe.ConstantTimeEqualBytes(ab[:], bb[:])
}

var domainHash = []byte("safe/poseidonsafe/hash")
var domainMAC = []byte("safe/poseidonsafe/mac")

// Hash runs the simplest SAFE protocol: absorb message in one call,
// squeeze outputLen elements, finish. Grounded on how
// vybium-crypto/pkg/vybium-crypto/sponge.HashFixed/HashVarlen wrap the
// teacher's own sponge the same way.
func Hash(p Params, message []field.Element, outputLen uint32) ([]field.Element, error) {
	caps, err := Capabilities(p)
	if err != nil {
		return nil, err
	}
	pattern := safe.IOPattern{safe.Absorb(uint32(len(message))), safe.Squeeze(outputLen)}
	sponge, err := safe.Start(caps, p.Width, pattern, domainHash)
	if err != nil {
		return nil, err
	}
	if err := sponge.Absorb(uint32(len(message)), message); err != nil {
		return nil, err
	}
	if err := sponge.Squeeze(outputLen); err != nil {
		return nil, err
	}
	return sponge.Finish()
}

// MAC absorbs key then message in two calls and squeezes a single tag
// element, the keyed-MAC protocol spec.md's purpose statement lists
// alongside hashing.
func MAC(p Params, key field.Element, message []field.Element) (field.Element, error) {
	caps, err := Capabilities(p)
	if err != nil {
		return field.Element{}, err
	}
	pattern := safe.IOPattern{safe.Absorb(1), safe.Absorb(uint32(len(message))), safe.Squeeze(1)}
	sponge, err := safe.Start(caps, p.Width, pattern, domainMAC)
	if err != nil {
		return field.Element{}, err
	}
	if err := sponge.Absorb(1, []field.Element{key}); err != nil {
		return field.Element{}, err
	}
	if err := sponge.Absorb(uint32(len(message)), message); err != nil {
		return field.Element{}, err
	}
	if err := sponge.Squeeze(1); err != nil {
		return field.Element{}, err
	}
	out, err := sponge.Finish()
	if err != nil {
		return field.Element{}, err
	}
	return out[0], nil
}

var domainMerkle = []byte("safe/poseidonsafe/merkle-pair")

// PairHash builds a merkle.PairHasher out of the SAFE sponge: absorb
// both digests (2*hash.DigestLen field elements) in one call and squeeze
// a digest-sized output, so merkle.NewWithHasher can build commitment
// trees over this Poseidon instantiation instead of the teacher's fixed
// Tip5 hash.HashPair. Capabilities is built once up front, and a failure
// there is returned as an error. The returned closure panics if a sponge
// step fails; its pattern and input sizes are fixed by p and
// hash.DigestLen, not by the runtime input.
func PairHash(p Params) (func(left, right hash.Digest) hash.Digest, error) {
	caps, err := Capabilities(p)
	if err != nil {
		return nil, err
	}
	pattern := safe.IOPattern{
		safe.Absorb(uint32(2 * hash.DigestLen)),
		safe.Squeeze(uint32(hash.DigestLen)),
	}

	return func(left, right hash.Digest) hash.Digest {
		lv, rv := left.Values(), right.Values()
		message := make([]field.Element, 0, 2*hash.DigestLen)
		message = append(message, lv[:]...)
		message = append(message, rv[:]...)

		sponge, err := safe.Start(caps, p.Width, pattern, domainMerkle)
		if err != nil {
			panic(errors.Wrap(err, "poseidonsafe: PairHash: starting sponge"))
		}
		if err := sponge.Absorb(uint32(len(message)), message); err != nil {
			panic(errors.Wrap(err, "poseidonsafe: PairHash: absorbing"))
		}
		if err := sponge.Squeeze(uint32(hash.DigestLen)); err != nil {
			panic(errors.Wrap(err, "poseidonsafe: PairHash: squeezing"))
		}
		out, err := sponge.Finish()
		if err != nil {
			panic(errors.Wrap(err, "poseidonsafe: PairHash: finishing"))
		}

		var digest [hash.DigestLen]field.Element
		copy(digest[:], out)
		return hash.NewDigest(digest)
	}, nil
}

// VerifyMAC recomputes the MAC over message under key and compares it
// to tag in constant time.
func VerifyMAC(p Params, key field.Element, message []field.Element, tag field.Element) (bool, error) {
	got, err := MAC(p, key, message)
	if err != nil {
		return false, err
	}
	return ConstantTimeEqual(got, tag), nil
}
