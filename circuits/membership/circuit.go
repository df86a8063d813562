package membership

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
	"github.com/consensys/gnark/std/permutation/poseidon2"
)

// Circuit proves knowledge of a credential whose derived leaf sits under
// RootHash in a sorted-pair Poseidon Merkle tree, without revealing which
// leaf. Same Poseidon2 parameterisation and "sibling == 0 means padding,
// leave the accumulator untouched" convention as a standard inclusion
// circuit, reduced to a single opening and a single public signal.
//
// Leaf carries the credential field element exactly as the off-chain tree
// stores it (field.StrToField off-chain) — Define starts the inclusion loop
// from Leaf directly, with no extra hashing applied first.
//
// This circuit never trusts a witness-supplied left/right bit for hash
// ordering: at each level it compares the running hash against the sibling
// with api.Cmp and always hashes (min, max), mirroring pkg/field.HashPair
// exactly. A prover cannot pick an ordering the off-chain tree didn't use,
// and no path-index input is needed for soundness.
type Circuit struct {
	// Public
	RootHash frontend.Variable `gnark:"rootHash,public"`

	// Private
	Leaf     frontend.Variable
	Siblings [MaxTreeDepth]frontend.Variable
}

func (circuit *Circuit) Define(api frontend.API) error {
	p, err := poseidon2.NewPoseidon2FromParameters(api, 2, 6, 50)
	if err != nil {
		return err
	}
	hasher := hash.NewMerkleDamgardHasher(api, p, 0)
	currentHash := circuit.Leaf

	for i := 0; i < MaxTreeDepth; i++ {
		sibling := circuit.Siblings[i]
		siblingIsZero := api.IsZero(sibling)

		cmp := api.Cmp(currentHash, sibling)
		currentIsGreater := api.IsZero(api.Sub(cmp, 1))
		lo := api.Select(currentIsGreater, sibling, currentHash)
		hi := api.Select(currentIsGreater, currentHash, sibling)

		hasher.Reset()
		hasher.Write(lo, hi)
		newHash := hasher.Sum()

		currentHash = api.Select(siblingIsZero, currentHash, newHash)
	}

	api.AssertIsEqual(currentHash, circuit.RootHash)

	return nil
}
