package safe

import "github.com/pkg/errors"

// Sentinel errors identifying each failure kind a Sponge can raise.
// Callers should compare against these with errors.Is; wrapped context
// (which call was expected, how many elements were short, ...) is added
// with errors.Wrapf and does not change what errors.Is reports.
var (
	// ErrInvalidIOPattern is raised when Start is given a malformed IO
	// pattern, or when Finish is called before the declared pattern has
	// been fully consumed.
	ErrInvalidIOPattern = errors.New("safe: invalid io pattern")

	// ErrIOPatternViolation is raised when an Absorb or Squeeze call does
	// not match the next call of the declared IO pattern, in variant or
	// in length.
	ErrIOPatternViolation = errors.New("safe: io pattern violation")

	// ErrTooFewInputElements is raised when Absorb is given fewer input
	// elements than the declared call length.
	ErrTooFewInputElements = errors.New("safe: too few input elements")

	// ErrInvalidLength is raised by Decrypt when the cipher is empty: a
	// cipher carries |message| + 1 elements, so it needs at least the tag.
	ErrInvalidLength = errors.New("safe: invalid length")

	// ErrVerificationFailed is raised by Decrypt when the recovered
	// authentication tag does not match the one carried in the cipher.
	ErrVerificationFailed = errors.New("safe: verification failed")

	// errErased is an internal marker returned when any operation is
	// invoked on an instance whose state has already been erased.
	errErased = errors.New("safe: sponge state has been erased")
)
