// Package tip5safe instantiates the SAFE sponge core over Tip5 instead
// of Poseidon, demonstrating that safe.Capabilities[T] is genuinely
// pluggable: swapping the permutation means swapping one function value,
// nothing in pkg/vybium-crypto/safe itself changes.
package tip5safe

import (
	"golang.org/x/crypto/blake2b"

	"github.com/vybium/safe/pkg/vybium-crypto/field"
	"github.com/vybium/safe/pkg/vybium-crypto/hash"
	"github.com/vybium/safe/pkg/vybium-crypto/safe"
)

// Width is fixed at 5 (capacity 1, rate 4): hash.Tip5Permutation only
// operates on a 5-element window of Tip5's full 16-element state.
const Width = 5

var domainTag = []byte("safe/tip5safe")

// Capabilities builds the Capabilities[field.Element] bundle backed by
// Tip5's reduced 5-element permutation.
func Capabilities() safe.Capabilities[field.Element] {
	return safe.Capabilities[field.Element]{
		Permute: permute,
		Tag:     tagElement,
		Add:     field.Element.Add,
	}
}

func permute(state []field.Element) []field.Element {
	var in [5]field.Element
	copy(in[:], state)
	out := hash.Tip5Permutation(in)
	result := make([]field.Element, len(state))
	copy(result, out[:])
	return result
}

func tagElement(data []byte) field.Element {
	digest := blake2b.Sum256(data)
	var acc field.Element
	for _, b := range digest {
		acc = acc.Mul(field.New(256)).Add(field.New(uint64(b)))
	}
	return acc
}

// Hash runs message through Tip5's permutation via the SAFE core,
// absorbing message in one call and squeezing outputLen elements.
func Hash(message []field.Element, outputLen uint32) ([]field.Element, error) {
	caps := Capabilities()
	pattern := safe.IOPattern{safe.Absorb(uint32(len(message))), safe.Squeeze(outputLen)}
	sponge, err := safe.Start(caps, Width, pattern, domainTag)
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
