// Package arionsafe instantiates the SAFE sponge core over Arion, a
// third permutation choice alongside poseidonsafe and tip5safe, to show
// the same core works unmodified over any GTDS-family or Hades-family
// permutation the instantiator supplies.
package arionsafe

import (
	"golang.org/x/crypto/blake2b"

	"github.com/vybium/safe/pkg/vybium-crypto/field"
	"github.com/vybium/safe/pkg/vybium-crypto/hash"
	"github.com/vybium/safe/pkg/vybium-crypto/safe"
)

// Width is fixed at hash.ArionStateSize (capacity 1, rate 2): Arion's
// GTDS permutation is only defined over its native state size.
const Width = hash.ArionStateSize

var domainTag = []byte("safe/arionsafe")

// Capabilities builds the Capabilities[field.Element] bundle backed by
// Arion's permutation.
func Capabilities() safe.Capabilities[field.Element] {
	return safe.Capabilities[field.Element]{
		Permute: permute,
		Tag:     tagElement,
		Add:     field.Element.Add,
	}
}

func permute(state []field.Element) []field.Element {
	var in [hash.ArionStateSize]field.Element
	copy(in[:], state)
	out := hash.ArionPermute(in)
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

// Hash runs message through Arion's permutation via the SAFE core,
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
