package membership_test

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"

	"github.com/meridian-zk/credmesh/circuits/membership"
	"github.com/meridian-zk/credmesh/pkg/field"
	"github.com/meridian-zk/credmesh/pkg/merkle"
	"github.com/meridian-zk/credmesh/pkg/setup"
)

// proveAndVerify compiles the circuit's witness, proves, and verifies it.
func proveAndVerify(t *testing.T, ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey, assignment *membership.Circuit) {
	t.Helper()

	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		t.Fatalf("create witness: %v", err)
	}

	publicWitness, err := witness.Public()
	if err != nil {
		t.Fatalf("extract public witness: %v", err)
	}

	proof, err := groth16.Prove(ccs, pk, witness)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	if err := groth16.Verify(proof, vk, publicWitness); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func buildTreeAndWitness(t *testing.T, credentials []string, holder string) (*merkle.Tree, *merkle.Witness, *big.Int) {
	t.Helper()

	leaves := make([]*big.Int, len(credentials))
	holderIdx := -1
	for i, c := range credentials {
		leaves[i] = field.StrToField(c)
		if c == holder {
			holderIdx = i
		}
	}
	if holderIdx < 0 {
		t.Fatalf("holder %q not present in credential list", holder)
	}

	tree, err := merkle.New(leaves)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}

	w, err := tree.Witness(holderIdx, membership.MaxTreeDepth)
	if err != nil {
		t.Fatalf("build witness: %v", err)
	}
	if !merkle.Verify(w) {
		t.Fatalf("off-chain witness failed to verify")
	}

	return tree, w, leaves[holderIdx]
}

func TestMembershipCircuitEndToEnd(t *testing.T) {
	ccs, err := setup.CompileCircuit(&membership.Circuit{})
	if err != nil {
		t.Fatalf("compile circuit: %v", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		t.Fatalf("groth16 setup: %v", err)
	}

	_, w, leaf := buildTreeAndWitness(t, []string{"MIT", "Stanford", "Harvard", "Berkeley"}, "Harvard")

	assignment, err := membership.Assign(leaf, w)
	if err != nil {
		t.Fatalf("assign witness: %v", err)
	}

	proveAndVerify(t, ccs, pk, vk, assignment)
}

func TestMembershipCircuitVariousSetSizes(t *testing.T) {
	ccs, err := setup.CompileCircuit(&membership.Circuit{})
	if err != nil {
		t.Fatalf("compile circuit: %v", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		t.Fatalf("groth16 setup: %v", err)
	}

	sizes := []int{1, 2, 3, 4, 7, 8, 9}
	for _, n := range sizes {
		n := n
		t.Run(stringOfSize(n), func(t *testing.T) {
			creds := make([]string, n)
			for i := range creds {
				creds[i] = stringOfSize(i) + "-cred"
			}
			_, w, leaf := buildTreeAndWitness(t, creds, creds[n/2])

			assignment, err := membership.Assign(leaf, w)
			if err != nil {
				t.Fatalf("assign witness: %v", err)
			}
			proveAndVerify(t, ccs, pk, vk, assignment)
		})
	}
}

func stringOfSize(n int) string {
	return "n" + big.NewInt(int64(n)).String()
}
