package poseidonsafe

import (
	"testing"

	"github.com/vybium/safe/pkg/vybium-crypto/field"
	"github.com/vybium/safe/pkg/vybium-crypto/hash"
	"github.com/vybium/safe/pkg/vybium-crypto/merkle"
	"github.com/vybium/safe/pkg/vybium-crypto/safe"
)

func elements(values ...uint64) []field.Element {
	out := make([]field.Element, len(values))
	for i, v := range values {
		out[i] = field.New(v)
	}
	return out
}

func TestHashDeterministicAndDomainSeparated(t *testing.T) {
	p := DefaultParams()
	message := elements(1, 2, 3)

	a, err := Hash(p, message, 2)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	b, err := Hash(p, message, 2)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("Hash() returned %d/%d elements, want 2", len(a), len(b))
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Errorf("Hash() not deterministic at index %d: %v != %v", i, a[i], b[i])
		}
	}

	other, err := Hash(p, elements(1, 2, 4), 2)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if a[0].Equal(other[0]) && a[1].Equal(other[1]) {
		t.Error("Hash() of different messages collided")
	}
}

func TestMACVerify(t *testing.T) {
	p := DefaultParams()
	key := field.New(0xC0FFEE)
	message := elements(10, 20, 30)

	tag, err := MAC(p, key, message)
	if err != nil {
		t.Fatalf("MAC() error = %v", err)
	}

	ok, err := VerifyMAC(p, key, message, tag)
	if err != nil {
		t.Fatalf("VerifyMAC() error = %v", err)
	}
	if !ok {
		t.Error("VerifyMAC() rejected a valid tag")
	}

	ok, err = VerifyMAC(p, field.New(0xBAD), message, tag)
	if err != nil {
		t.Fatalf("VerifyMAC() error = %v", err)
	}
	if ok {
		t.Error("VerifyMAC() accepted a tag under the wrong key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	p := Params{Width: 6, SecurityLevel: 128}
	caps, err := AEADCapabilities(p)
	if err != nil {
		t.Fatalf("AEADCapabilities() error = %v", err)
	}

	key := field.New(1)
	nonce := elements(2, 3)
	message := elements(100, 200, 300)

	cipher, err := safe.Encrypt(caps, p.Width, key, nonce, message)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if len(cipher) != len(message)+1 {
		t.Fatalf("Encrypt() cipher length = %d, want %d", len(cipher), len(message)+1)
	}

	plaintext, err := safe.Decrypt(caps, p.Width, key, nonce, cipher)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	for i := range message {
		if !plaintext[i].Equal(message[i]) {
			t.Errorf("Decrypt() plaintext[%d] = %v, want %v", i, plaintext[i], message[i])
		}
	}
}

func digest(values ...uint64) hash.Digest {
	var d [hash.DigestLen]field.Element
	for i, v := range values {
		d[i] = field.New(v)
	}
	return hash.NewDigest(d)
}

func TestPairHashBuildsMerkleTree(t *testing.T) {
	p := DefaultParams()
	pairHash, err := PairHash(p)
	if err != nil {
		t.Fatalf("PairHash() error = %v", err)
	}

	leafs := []hash.Digest{
		digest(1, 2, 3, 4, 5),
		digest(6, 7, 8, 9, 10),
		digest(11, 12, 13, 14, 15),
		digest(16, 17, 18, 19, 20),
	}

	tree, err := merkle.NewWithHasher(leafs, pairHash)
	if err != nil {
		t.Fatalf("NewWithHasher() error = %v", err)
	}

	root := tree.Root()

	authPath, err := tree.AuthenticationPath(2)
	if err != nil {
		t.Fatalf("AuthenticationPath() error = %v", err)
	}
	leaf, err := tree.GetLeaf(2)
	if err != nil {
		t.Fatalf("GetLeaf() error = %v", err)
	}

	if !merkle.VerifyInclusionProofWithHasher(root, 2, leaf, authPath, pairHash) {
		t.Error("VerifyInclusionProofWithHasher() rejected a valid proof")
	}

	tamperedLeaf := digest(999, 999, 999, 999, 999)
	if merkle.VerifyInclusionProofWithHasher(root, 2, tamperedLeaf, authPath, pairHash) {
		t.Error("VerifyInclusionProofWithHasher() accepted a tampered leaf")
	}

	// The SAFE-backed compression must differ from the teacher's fixed
	// Tip5 hash.HashPair: they are different permutations over different
	// domain separation, so the two trees should not share a root.
	defaultTree, err := merkle.New(leafs)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if defaultTree.Root().Equal(root) {
		t.Error("SAFE-backed Merkle root unexpectedly matches the Tip5 hash.HashPair root")
	}
}

func TestPairHashBuildsMmrAccumulator(t *testing.T) {
	p := DefaultParams()
	pairHash, err := PairHash(p)
	if err != nil {
		t.Fatalf("PairHash() error = %v", err)
	}

	leafs := []hash.Digest{
		digest(1, 2, 3, 4, 5),
		digest(6, 7, 8, 9, 10),
		digest(11, 12, 13, 14, 15),
		digest(16, 17, 18, 19, 20),
		digest(21, 22, 23, 24, 25),
	}

	mmr := merkle.NewMmrAccumulatorFromLeafsWithHasher(leafs, pairHash)
	bag := mmr.BagPeaksWithHasher(pairHash)
	if bag.IsZero() {
		t.Error("BagPeaksWithHasher() returned a zero digest for a non-empty MMR")
	}

	newLeaf := digest(26, 27, 28, 29, 30)
	proof := mmr.Append(newLeaf)
	if !mmr.VerifyMembership(newLeaf, proof) {
		t.Error("VerifyMembership() rejected a valid SAFE-backed proof")
	}

	// Bagging with the teacher's default hash.HashPair must differ from the
	// SAFE-backed bag: same peaks, different compression function.
	defaultMmr := merkle.NewMmrAccumulatorFromLeafs(leafs)
	if defaultMmr.BagPeaks().Equal(bag) {
		t.Error("SAFE-backed MMR bag unexpectedly matches the Tip5 hash.HashPair bag")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	a := field.New(42)
	b := field.New(42)
	c := field.New(43)

	if !ConstantTimeEqual(a, b) {
		t.Error("ConstantTimeEqual() reported equal elements as different")
	}
	if ConstantTimeEqual(a, c) {
		t.Error("ConstantTimeEqual() reported different elements as equal")
	}
}
