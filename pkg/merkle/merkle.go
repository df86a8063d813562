// Package merkle implements a fixed-arity-2, sorted-pair Poseidon Merkle
// tree over credential leaves, plus fixed-depth witness extraction for the
// membership circuit. Pairs combine via sorted-pair hashing (field.HashPair)
// with odd-node promotion rather than direction-indexed hashing and
// power-of-two padding by duplication.
package merkle

import (
	"fmt"
	"math/big"

	"github.com/meridian-zk/credmesh/pkg/field"
)

// SiblingPosition records which side of the current node a sibling sat on
// during construction. It is diagnostic metadata only — Verify and the
// circuit both ignore it, since sorted-pair hashing makes verification
// order-independent.
type SiblingPosition int

const (
	PositionRight SiblingPosition = iota
	PositionLeft
)

// Sibling is one step of an inclusion path.
type Sibling struct {
	Hash     *big.Int
	Position SiblingPosition
}

// Witness is the inclusion proof for a single leaf: a fixed-depth sibling
// chain plus per-level direction bits (PathIndices: 0 when the sibling sat
// on the right, 1 when on the left). The direction bits are diagnostic
// only; neither Verify nor the circuit reads them.
type Witness struct {
	Leaf        *big.Int
	LeafIndex   int
	Root        *big.Int
	Siblings    []Sibling
	PathIndices []int
}

// Tree is a compact in-memory sorted-pair Merkle tree. layers[0] holds the
// leaves in insertion order; the last layer holds a single root element.
type Tree struct {
	layers [][]*big.Int
}

// New builds a compact tree from a non-empty, ordered list of leaves. At
// each layer, adjacent pairs combine via field.HashPair (sorted internally);
// an odd trailing node is promoted unchanged rather than duplicated.
func New(leaves []*big.Int) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("merkle: empty leaf list")
	}

	cur := make([]*big.Int, len(leaves))
	copy(cur, leaves)
	layers := [][]*big.Int{cur}

	for len(cur) > 1 {
		next := make([]*big.Int, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 < len(cur) {
				next = append(next, field.HashPair(cur[i], cur[i+1]))
			} else {
				next = append(next, cur[i]) // odd node promoted unchanged
			}
		}
		layers = append(layers, next)
		cur = next
	}

	return &Tree{layers: layers}, nil
}

// Root returns the single top-layer element.
func (t *Tree) Root() *big.Int {
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// NumLeaves returns the number of leaves the tree was built from.
func (t *Tree) NumLeaves() int {
	return len(t.layers[0])
}

// CompactDepth returns ⌈log₂ n⌉, the number of real (non-padding) layers.
func (t *Tree) CompactDepth() int {
	return len(t.layers) - 1
}

// Witness extracts the inclusion path for leaf index i, then pads the
// sibling/path-index slices with zero-value sentinels up to padDepth levels
// so the result can feed a fixed-depth circuit. padDepth must be >=
// CompactDepth(); pass the same value as config.MaxMerkleDepth in normal use.
func (t *Tree) Witness(i, padDepth int) (*Witness, error) {
	leaves := t.layers[0]
	if i < 0 || i >= len(leaves) {
		return nil, fmt.Errorf("merkle: leaf index %d out of range [0,%d)", i, len(leaves))
	}
	if padDepth < t.CompactDepth() {
		return nil, fmt.Errorf("merkle: pad depth %d smaller than compact depth %d", padDepth, t.CompactDepth())
	}

	w := &Witness{
		Leaf:      new(big.Int).Set(leaves[i]),
		LeafIndex: i,
		Root:      new(big.Int).Set(t.Root()),
	}

	idx := i
	for layer := 0; layer < t.CompactDepth(); layer++ {
		cur := t.layers[layer]
		if idx%2 == 0 {
			if idx+1 < len(cur) {
				w.Siblings = append(w.Siblings, Sibling{Hash: cur[idx+1], Position: PositionRight})
				w.PathIndices = append(w.PathIndices, 0)
			}
			// else: idx was promoted unchanged — no sibling emitted at this layer.
		} else {
			w.Siblings = append(w.Siblings, Sibling{Hash: cur[idx-1], Position: PositionLeft})
			w.PathIndices = append(w.PathIndices, 1)
		}
		idx /= 2
	}

	for len(w.Siblings) < padDepth {
		w.Siblings = append(w.Siblings, Sibling{Hash: big.NewInt(0), Position: PositionRight})
		w.PathIndices = append(w.PathIndices, 0)
	}

	return w, nil
}

// Verify recomputes the root from W.Leaf and W.Siblings using sorted-pair
// hashing and reports whether it matches W.Root. A sibling with hash value
// zero is a padding sentinel (past the tree's real depth) and is skipped,
// mirroring the circuit, which leaves its running hash unchanged at a zero
// sibling.
func Verify(w *Witness) bool {
	h := w.Leaf
	for _, s := range w.Siblings {
		if s.Hash.Sign() == 0 {
			continue
		}
		h = field.HashPair(h, s.Hash)
	}
	return h.Cmp(w.Root) == 0
}
