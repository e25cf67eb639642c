package safe

import (
	"crypto/subtle"

	"github.com/pkg/errors"
)

// domainEncrypt is the fixed domain separator bound into the tag for
// every AEAD instance, keeping encryption transcripts independent from
// plain hashing/MAC transcripts built on the same capabilities.
var domainEncrypt = []byte("safe/encrypt")

// AEADCapabilities extends Capabilities with the operations Encrypt and
// Decrypt need beyond the sponge core: a subtraction (the inverse of
// Add, used to recover plaintext) and a constant-time equality check
// (used for the authentication tag comparison). Both are the
// instantiator's responsibility, exactly as §4.4's "implementation note
// on the inverse" allows.
type AEADCapabilities[T any] struct {
	Capabilities[T]

	// Sub is the inverse of Add: Sub(Add(a, b), b) == a.
	Sub func(a, b T) T

	// Equal compares two elements without branching on where they first
	// differ, used for the authentication tag check.
	Equal func(a, b T) bool
}

// encryptPattern declares the calls an AEAD transcript makes: absorb the
// key and nonce, squeeze a keystream the length of the message, absorb
// the resulting ciphertext, then squeeze one authentication tag.
//
// This deliberately does not match spec.md's literal step order (absorb
// the message, then squeeze the keystream from it). That order cannot be
// inverted: Absorb always forces a permutation before the next Squeeze
// (§4.3 step 5), so a keystream squeezed right after the message has
// been absorbed is a nonlinear function of that same message, and a
// decryptor who does not yet have the message cannot reproduce it.
// Squeezing the keystream first, while the state still depends only on
// the key and nonce, and then absorbing the ciphertext (known to both
// sides) is the standard duplex/CFB-style fix: the keystream no longer
// depends on anything the decryptor doesn't already have. See DESIGN.md.
func encryptPattern(messageLen, nonceLen int) IOPattern {
	return IOPattern{
		Absorb(uint32(1 + nonceLen)),
		Squeeze(uint32(messageLen)),
		Absorb(uint32(messageLen)),
		Squeeze(1),
	}
}

// Encrypt authenticated-encrypts message under key and nonce, returning
// a cipher of length len(message)+1: the last element is the
// authentication tag. width is the sponge's state width.
func Encrypt[T any](caps AEADCapabilities[T], width int, key T, nonce []T, message []T) ([]T, error) {
	m := len(message)
	pattern := encryptPattern(m, len(nonce))
	sponge, err := Start(caps.Capabilities, width, pattern, domainEncrypt)
	if err != nil {
		return nil, err
	}

	keyAndNonce := make([]T, 0, 1+len(nonce))
	keyAndNonce = append(keyAndNonce, key)
	keyAndNonce = append(keyAndNonce, nonce...)
	if err := sponge.Absorb(uint32(len(keyAndNonce)), keyAndNonce); err != nil {
		return nil, err
	}

	// Keystream: squeezed while the state still depends only on the key
	// and nonce, so it is independent of message.
	if err := sponge.Squeeze(uint32(m)); err != nil {
		return nil, err
	}
	stream := sponge.output[len(sponge.output)-m:]

	cipher := make([]T, m+1)
	for i, x := range message {
		cipher[i] = caps.Add(x, stream[i])
	}

	// Bind the ciphertext (not the plaintext) into the state, so a
	// decryptor who knows only the ciphertext can replay this step.
	if err := sponge.Absorb(uint32(m), cipher[:m]); err != nil {
		return nil, err
	}
	if err := sponge.Squeeze(1); err != nil {
		return nil, err
	}

	out, err := sponge.Finish()
	if err != nil {
		return nil, err
	}
	cipher[m] = out[len(out)-1]
	return cipher, nil
}

// Decrypt authenticates and decrypts cipher (length m+1) produced by
// Encrypt under the same key and nonce, returning the m-element
// plaintext. Returns ErrInvalidLength if cipher is empty, and
// ErrVerificationFailed (without returning any plaintext) if the
// recovered tag does not match cipher's last element.
func Decrypt[T any](caps AEADCapabilities[T], width int, key T, nonce []T, cipher []T) ([]T, error) {
	if len(cipher) < 1 {
		return nil, errors.Wrapf(ErrInvalidLength, "cipher has %d elements, need at least 1", len(cipher))
	}
	m := len(cipher) - 1

	pattern := encryptPattern(m, len(nonce))
	sponge, err := Start(caps.Capabilities, width, pattern, domainEncrypt)
	if err != nil {
		return nil, err
	}

	keyAndNonce := make([]T, 0, 1+len(nonce))
	keyAndNonce = append(keyAndNonce, key)
	keyAndNonce = append(keyAndNonce, nonce...)
	if err := sponge.Absorb(uint32(len(keyAndNonce)), keyAndNonce); err != nil {
		return nil, err
	}

	// Same keystream Encrypt produced, since the state here depends only
	// on the key and nonce, which match.
	if err := sponge.Squeeze(uint32(m)); err != nil {
		return nil, err
	}
	stream := sponge.output[len(sponge.output)-m:]

	plaintext := make([]T, m)
	for i, c := range cipher[:m] {
		plaintext[i] = caps.Sub(c, stream[i])
	}

	// Absorb the (known) ciphertext, identically to Encrypt, so the
	// state evolves the same way and the final tag matches iff cipher
	// wasn't tampered with.
	if err := sponge.Absorb(uint32(m), cipher[:m]); err != nil {
		return nil, err
	}
	if err := sponge.Squeeze(1); err != nil {
		return nil, err
	}

	out, err := sponge.Finish()
	if err != nil {
		return nil, err
	}
	recoveredTag := out[len(out)-1]
	if !caps.Equal(recoveredTag, cipher[m]) {
		return nil, ErrVerificationFailed
	}
	return plaintext, nil
}

// ConstantTimeEqualBytes compares the canonical byte encoding of two
// elements in constant time. Instantiators whose T exposes a fixed-width
// byte encoding can build their Equal capability from this helper.
func ConstantTimeEqualBytes(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
