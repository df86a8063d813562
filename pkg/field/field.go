// Package field implements Poseidon2 hashing over the BN254 scalar field
// plus the SHA-256-based string-to-field encoding used for credential
// leaves.
package field

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// scalarField is the BN254 scalar field order, used to reduce the SHA-256
// digest into a valid field element.
var scalarField = ecc.BN254.ScalarField()

// StrToField reduces SHA-256(s) modulo the BN254 scalar field, interpreting
// the 32-byte digest as a big-endian integer first.
func StrToField(s string) *big.Int {
	digest := sha256.Sum256([]byte(s))
	n := new(big.Int).SetBytes(digest[:])
	return n.Mod(n, scalarField)
}

// HashN runs the Poseidon2 sponge (Merkle-Damgard construction) over xs,
// writing each element's canonical 32-byte encoding in order.
func HashN(xs []*big.Int) *big.Int {
	h := poseidon2.NewMerkleDamgardHasher()
	for _, x := range xs {
		var e fr.Element
		e.SetBigInt(x)
		b := e.Bytes()
		h.Write(b[:])
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

// HashPair combines two Merkle children with sorted-pair canonicalisation:
// Poseidon2(min(a,b), max(a,b)). Canonical ordering means a path needs no
// left/right indicator to verify.
func HashPair(a, b *big.Int) *big.Int {
	lo, hi := a, b
	if a.Cmp(b) > 0 {
		lo, hi = b, a
	}
	return HashN([]*big.Int{lo, hi})
}

// Hex64 encodes x as 64 lowercase hex nibbles using the field's canonical
// big-endian byte representation, the wire format used for Merkle roots.
func Hex64(x *big.Int) string {
	var e fr.Element
	e.SetBigInt(x)
	b := e.Bytes()
	return hex.EncodeToString(b[:])
}
