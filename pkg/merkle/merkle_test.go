package merkle

import (
	"math/big"
	"testing"

	"github.com/meridian-zk/credmesh/pkg/field"
)

func leavesFromStrings(t *testing.T, ss []string) []*big.Int {
	t.Helper()
	out := make([]*big.Int, len(ss))
	for i, s := range ss {
		out[i] = field.StrToField(s)
	}
	return out
}

func TestNewRejectsEmptyLeaves(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for empty leaf list")
	}
}

func TestWitnessVerifiesForEveryLeaf(t *testing.T) {
	sizes := []int{1, 2, 3, 4, 5, 7, 8, 9, 16, 17}

	for _, n := range sizes {
		n := n
		t.Run(itoa(n), func(t *testing.T) {
			creds := make([]string, n)
			for i := range creds {
				creds[i] = "cred-" + itoa(i)
			}
			leaves := leavesFromStrings(t, creds)

			tree, err := New(leaves)
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			for i := 0; i < n; i++ {
				w, err := tree.Witness(i, 20)
				if err != nil {
					t.Fatalf("Witness(%d): %v", i, err)
				}
				if len(w.Siblings) != 20 {
					t.Fatalf("leaf %d: siblings padded to %d, want 20", i, len(w.Siblings))
				}
				if !Verify(w) {
					t.Fatalf("leaf %d: witness failed to verify", i)
				}
			}
		})
	}
}

func TestWitnessRejectsOutOfRangeIndex(t *testing.T) {
	tree, err := New(leavesFromStrings(t, []string{"a", "b", "c"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := tree.Witness(-1, 20); err == nil {
		t.Fatal("expected error for negative index")
	}
	if _, err := tree.Witness(3, 20); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}

func TestWitnessRejectsPadDepthBelowCompactDepth(t *testing.T) {
	creds := make([]string, 200)
	for i := range creds {
		creds[i] = "cred-" + itoa(i)
	}
	tree, err := New(leavesFromStrings(t, creds))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := tree.Witness(0, 1); err == nil {
		t.Fatal("expected error for pad depth smaller than compact depth")
	}
}

func TestVerifyRejectsTamperedLeaf(t *testing.T) {
	tree, err := New(leavesFromStrings(t, []string{"MIT", "Stanford", "Harvard", "Berkeley"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w, err := tree.Witness(2, 20)
	if err != nil {
		t.Fatalf("Witness: %v", err)
	}
	if !Verify(w) {
		t.Fatal("untampered witness should verify")
	}

	w.Leaf = field.StrToField("Yale")
	if Verify(w) {
		t.Fatal("witness with substituted leaf must not verify")
	}
}

func TestVerifyRejectsTamperedSibling(t *testing.T) {
	tree, err := New(leavesFromStrings(t, []string{"MIT", "Stanford", "Harvard", "Berkeley"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w, err := tree.Witness(0, 20)
	if err != nil {
		t.Fatalf("Witness: %v", err)
	}
	w.Siblings[0].Hash = new(big.Int).Add(w.Siblings[0].Hash, big.NewInt(1))
	if Verify(w) {
		t.Fatal("witness with tampered sibling must not verify")
	}
}

func TestVerifyRejectsForeignRoot(t *testing.T) {
	treeA, err := New(leavesFromStrings(t, []string{"MIT", "Stanford"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	treeB, err := New(leavesFromStrings(t, []string{"Harvard", "Berkeley"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	w, err := treeA.Witness(0, 20)
	if err != nil {
		t.Fatalf("Witness: %v", err)
	}
	w.Root = treeB.Root()
	if Verify(w) {
		t.Fatal("witness checked against a foreign root must not verify")
	}
}

func TestOddNodePromotionDeterminesRoot(t *testing.T) {
	leaves := leavesFromStrings(t, []string{"a", "b", "c"})
	tree, err := New(leaves)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// layer 0: [a, b, c] -> layer 1: [HashPair(a,b), c] (c promoted unchanged)
	want := field.HashPair(field.HashPair(leaves[0], leaves[1]), leaves[2])
	if tree.Root().Cmp(want) != 0 {
		t.Fatalf("root = %s, want %s", tree.Root(), want)
	}
}

func TestRootIsDeterministic(t *testing.T) {
	creds := []string{"MIT", "Stanford", "Harvard", "Berkeley", "Yale"}
	t1, err := New(leavesFromStrings(t, creds))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t2, err := New(leavesFromStrings(t, creds))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if t1.Root().Cmp(t2.Root()) != 0 {
		t.Fatal("rebuilding the same credential list must produce the same root")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	s := ""
	for n > 0 {
		s = string(rune('0'+n%10)) + s
		n /= 10
	}
	if neg {
		s = "-" + s
	}
	return s
}
