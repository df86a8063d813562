package membership

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/meridian-zk/credmesh/pkg/merkle"
)

// Assign builds a ready-to-prove circuit assignment from a credential's
// pre-encoded field element and its Merkle inclusion witness. w.Siblings
// must already be padded to exactly MaxTreeDepth entries (merkle.Tree.Witness
// does this when called with padDepth == MaxTreeDepth). PathIndices are not
// read here — the circuit self-sorts each pair, so no direction input is
// part of the assignment.
func Assign(credentialField *big.Int, w *merkle.Witness) (*Circuit, error) {
	if len(w.Siblings) != MaxTreeDepth {
		return nil, fmt.Errorf("membership: witness has %d siblings, want %d", len(w.Siblings), MaxTreeDepth)
	}

	var siblings [MaxTreeDepth]frontend.Variable
	for i := 0; i < MaxTreeDepth; i++ {
		siblings[i] = w.Siblings[i].Hash
	}

	return &Circuit{
		RootHash: w.Root,
		Leaf:     credentialField,
		Siblings: siblings,
	}, nil
}
