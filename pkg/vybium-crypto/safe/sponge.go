// Package safe implements the state-machine core of a Sponge API for
// Field Elements (SAFE): a permutation-based sponge whose state is an
// array of user-supplied element values rather than bytes.
//
// The package is polymorphic over the element type T via a
// Capabilities[T] bundle of three injected operations (permute, tag,
// add); it never inspects T itself. A caller declares an IO pattern — an
// ordered sequence of Absorb(n)/Squeeze(n) calls — that is bound into the
// sponge's initial tag at Start and must then be followed exactly by the
// Absorb/Squeeze calls that follow.
package safe

import (
	"github.com/pkg/errors"
)

// Capabilities bundles the three operations a Sponge needs from its
// element type T: a permutation over the full state, a hash from bytes
// into one element (used to derive the initial tag), and the additive
// group operation used to mix input into the rate.
//
// None of these may depend on hidden global state; each Sponge owns its
// own Capabilities value.
type Capabilities[T any] struct {
	// Permute applies the fixed cryptographic permutation to state and
	// returns the new state. len(state) == len(result) always equals the
	// Sponge's width.
	Permute func(state []T) []T

	// Tag hashes a byte string into one element of T. Must be
	// deterministic.
	Tag func(data []byte) T

	// Add is the additive group operation on T (commutative, associative).
	Add func(a, b T) T
}

// Sponge is a single-owner, single-threaded SAFE instance. No method may
// be called concurrently on the same Sponge from multiple goroutines;
// distinct instances are fully independent.
type Sponge[T any] struct {
	caps Capabilities[T]

	state []T // len == width; state[0] is the capacity cell
	width int
	rate  int // width - 1

	ioPattern  IOPattern // original, non-aggregated
	ioCount    int
	posAbsorb  int
	posSqueeze int
	output     []T

	alive bool
}

// Start validates and normalizes ioPattern, derives the initial tag from
// the aggregated pattern and domainSeparator, and returns a live Sponge
// of the given width (must be >= 2, since rate = width - 1 must be >= 1).
//
// The capacity cell is seeded with the tag; all rate cells start at the
// zero value of T. No state exists yet to erase on a validation failure,
// so a malformed pattern simply returns ErrInvalidIOPattern.
func Start[T any](caps Capabilities[T], width int, ioPattern IOPattern, domainSeparator []byte) (*Sponge[T], error) {
	if width < 2 {
		return nil, errors.Wrapf(ErrInvalidIOPattern, "width %d too small, need at least 2", width)
	}
	if err := ioPattern.Validate(); err != nil {
		return nil, err
	}
	aggregated, err := ioPattern.Aggregate()
	if err != nil {
		return nil, err
	}

	encoded := aggregated.Encode(domainSeparator)
	tag := caps.Tag(encoded)

	state := make([]T, width)
	state[0] = tag

	original := make(IOPattern, len(ioPattern))
	copy(original, ioPattern)

	return &Sponge[T]{
		caps:      caps,
		state:     state,
		width:     width,
		rate:      width - 1,
		ioPattern: original,
		alive:     true,
	}, nil
}

// Absorb feeds len(input) (must equal the declared length of the next
// pattern call) elements into the sponge. It forces a permutation before
// any subsequent Squeeze by setting the squeeze cursor to the rate, per
// SAFE's position discipline.
func (s *Sponge[T]) Absorb(length uint32, input []T) error {
	if !s.alive {
		return errErased
	}
	if err := s.expect(AbsorbVariant, length); err != nil {
		return err
	}
	if uint32(len(input)) < length {
		s.erase()
		return errors.Wrapf(ErrTooFewInputElements, "need %d elements, got %d", length, len(input))
	}

	for i := uint32(0); i < length; i++ {
		if s.posAbsorb == s.rate {
			s.state = s.caps.Permute(s.state)
			s.posAbsorb = 0
		}
		s.state[s.posAbsorb+1] = s.caps.Add(s.state[s.posAbsorb+1], input[i])
		s.posAbsorb++
	}

	s.ioCount++
	s.posSqueeze = s.rate
	return nil
}

// Squeeze reads length elements out of the sponge and appends them to
// the accumulated output. It does not touch the absorb cursor: a
// subsequent Absorb is free to overwrite rate cells that were just read.
// This asymmetry is deliberate SAFE semantics, not a bug.
func (s *Sponge[T]) Squeeze(length uint32) error {
	if !s.alive {
		return errErased
	}
	if err := s.expect(SqueezeVariant, length); err != nil {
		return err
	}
	if uint64(len(s.output))+uint64(length) > MaxCallLength {
		s.erase()
		return errors.Wrapf(ErrInvalidIOPattern, "total squeeze output would exceed %d elements", MaxCallLength)
	}

	for i := uint32(0); i < length; i++ {
		if s.posSqueeze == s.rate {
			s.state = s.caps.Permute(s.state)
			s.posSqueeze = 0
		}
		s.output = append(s.output, s.state[s.posSqueeze+1])
		s.posSqueeze++
	}

	s.ioCount++
	return nil
}

// Finish asserts that every call of the declared IO pattern has been
// consumed, then erases state and returns the accumulated squeeze
// output. The Sponge is unusable after Finish returns, whether it
// succeeds or fails.
func (s *Sponge[T]) Finish() ([]T, error) {
	if !s.alive {
		return nil, errErased
	}
	if s.ioCount != len(s.ioPattern) {
		s.erase()
		return nil, errors.Wrapf(ErrInvalidIOPattern, "pattern has %d calls, only %d consumed", len(s.ioPattern), s.ioCount)
	}
	out := s.output
	s.erase()
	return out, nil
}

// expect checks that the next pattern call matches (variant, length)
// exactly and advances nothing; it erases state and returns
// ErrIOPatternViolation on any mismatch, including running past the end
// of the pattern.
func (s *Sponge[T]) expect(v Variant, length uint32) error {
	if s.ioCount >= len(s.ioPattern) {
		s.erase()
		return errors.Wrapf(ErrIOPatternViolation, "no more calls declared, got %s(%d)", v, length)
	}
	next := s.ioPattern[s.ioCount]
	if next.Variant != v || next.Length != length {
		s.erase()
		return errors.Wrapf(ErrIOPatternViolation, "expected %s(%d), got %s(%d)", next.Variant, next.Length, v, length)
	}
	return nil
}

// erase overwrites every state cell with the zero value of T, drops the
// output buffer and pattern, zeroes the counters, and marks the instance
// dead. It is called on every error path and by Finish, and is
// idempotent.
func (s *Sponge[T]) erase() {
	var zero T
	for i := range s.state {
		s.state[i] = zero
	}
	s.state = nil
	s.output = nil
	s.ioPattern = nil
	s.ioCount = 0
	s.posAbsorb = 0
	s.posSqueeze = 0
	s.alive = false
}

// Alive reports whether the instance still accepts operations.
func (s *Sponge[T]) Alive() bool {
	return s.alive
}

// SqueezeIndices squeezes elements from the sponge and reduces each one
// into [0, upperBound) to sample numIndices distinct indices without
// replacement, e.g. for randomized query selection. It declares no
// Squeeze calls of its own discipline beyond what the caller already
// committed to in the IO pattern: the caller must have reserved enough
// total Squeeze length up front, and must pass toIndex to reduce a raw
// element down to a bounded integer (the core has no notion of integer
// conversion for an opaque T).
func (s *Sponge[T]) SqueezeIndices(upperBound, numIndices int, squeezeLen uint32, toIndex func(T) uint64) ([]int, error) {
	if upperBound <= 0 || numIndices <= 0 {
		return nil, nil
	}
	if numIndices > upperBound {
		numIndices = upperBound
	}

	indices := make([]int, 0, numIndices)
	used := make(map[int]bool, numIndices)

	for len(indices) < numIndices {
		before := len(s.output)
		if err := s.Squeeze(squeezeLen); err != nil {
			return nil, err
		}
		for _, elem := range s.output[before:] {
			idx := int(toIndex(elem) % uint64(upperBound))
			if !used[idx] {
				used[idx] = true
				indices = append(indices, idx)
				if len(indices) >= numIndices {
					break
				}
			}
		}
	}

	return indices, nil
}
