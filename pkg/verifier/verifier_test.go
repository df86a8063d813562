package verifier

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-zk/credmesh/circuits/membership"
	"github.com/meridian-zk/credmesh/internal/apperr"
	"github.com/meridian-zk/credmesh/internal/config"
	"github.com/meridian-zk/credmesh/internal/obslog"
	"github.com/meridian-zk/credmesh/pkg/codec"
	"github.com/meridian-zk/credmesh/pkg/field"
	"github.com/meridian-zk/credmesh/pkg/merkle"
	"github.com/meridian-zk/credmesh/pkg/prover"
	"github.com/meridian-zk/credmesh/pkg/registry"
	"github.com/meridian-zk/credmesh/pkg/setup"
)

// harness wires a prover and verifier against the same dev-mode key pair,
// mirroring how cmd/demo wires the two in production.
type harness struct {
	prover   *prover.Prover
	verifier *Verifier
	registry *registry.Registry
	cfg      config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	if err := setup.DevSetup(&membership.Circuit{}, dir, "membership", obslog.Disabled()); err != nil {
		t.Fatalf("DevSetup: %v", err)
	}

	cfg := config.New(config.WithCircuit("membership", dir))
	pr, err := prover.New(cfg, obslog.Disabled())
	if err != nil {
		t.Fatalf("prover.New: %v", err)
	}
	t.Cleanup(pr.Shutdown)

	reg := registry.New()
	v, err := New(cfg, reg, obslog.Disabled())
	if err != nil {
		t.Fatalf("verifier.New: %v", err)
	}

	return &harness{prover: pr, verifier: v, registry: reg, cfg: cfg}
}

func buildWitness(t *testing.T, credentials []string, holder string) (*merkle.Witness, *big.Int) {
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
		t.Fatalf("merkle.New: %v", err)
	}
	w, err := tree.Witness(holderIdx, membership.MaxTreeDepth)
	if err != nil {
		t.Fatalf("Witness: %v", err)
	}
	return w, leaves[holderIdx]
}

func TestVerifyAcceptsTrustedValidProof(t *testing.T) {
	h := newHarness(t)
	setID := uuid.New()

	w, _ := buildWitness(t, []string{"MIT", "Stanford", "Harvard", "Berkeley"}, "Harvard")
	proof, err := h.prover.Generate(context.Background(), setID, w, "Harvard")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if err := h.registry.Add(registry.TrustedRoot{CredentialSetID: setID, Root: proof.Metadata.MerkleRoot}); err != nil {
		t.Fatalf("registry.Add: %v", err)
	}

	result := h.verifier.Verify(proof)
	if !result.Valid {
		t.Fatalf("expected proof to verify, got errors: %v", result.Errors)
	}
	if result.CredentialSetID != setID {
		t.Fatal("result carries the wrong credential set id")
	}
}

func TestVerifyRejectsUntrustedRoot(t *testing.T) {
	h := newHarness(t)
	setID := uuid.New()

	w, _ := buildWitness(t, []string{"MIT", "Stanford"}, "MIT")
	proof, err := h.prover.Generate(context.Background(), setID, w, "MIT")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Deliberately never registered in h.registry.
	result := h.verifier.Verify(proof)
	if result.Valid {
		t.Fatal("expected verification to fail for an unregistered root")
	}
	if len(result.Errors) != 1 || result.Errors[0] != apperr.KindUntrustedRoot {
		t.Fatalf("Errors = %v, want [%s]", result.Errors, apperr.KindUntrustedRoot)
	}
}

func TestVerifyRejectsExpiredProof(t *testing.T) {
	h := newHarness(t)
	setID := uuid.New()

	w, _ := buildWitness(t, []string{"MIT", "Stanford"}, "MIT")
	proof, err := h.prover.Generate(context.Background(), setID, w, "MIT")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := h.registry.Add(registry.TrustedRoot{CredentialSetID: setID, Root: proof.Metadata.MerkleRoot}); err != nil {
		t.Fatalf("registry.Add: %v", err)
	}

	proof.Metadata.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	result := h.verifier.Verify(proof)
	if result.Valid {
		t.Fatal("expected verification to fail for an expired proof")
	}
	if len(result.Errors) != 1 || result.Errors[0] != apperr.KindProofExpired {
		t.Fatalf("Errors = %v, want [%s]", result.Errors, apperr.KindProofExpired)
	}
}

func TestVerifyRejectsTamperedPublicSignal(t *testing.T) {
	h := newHarness(t)
	setID := uuid.New()

	w, _ := buildWitness(t, []string{"MIT", "Stanford"}, "MIT")
	proof, err := h.prover.Generate(context.Background(), setID, w, "MIT")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := h.registry.Add(registry.TrustedRoot{CredentialSetID: setID, Root: proof.Metadata.MerkleRoot}); err != nil {
		t.Fatalf("registry.Add: %v", err)
	}

	proof.PublicSignals[0] = new(big.Int).Add(w.Root, big.NewInt(1)).String()

	result := h.verifier.Verify(proof)
	if result.Valid {
		t.Fatal("expected verification to fail for a tampered public signal")
	}
	if len(result.Errors) != 1 || result.Errors[0] != apperr.KindProofVerificationFailed {
		t.Fatalf("Errors = %v, want [%s]", result.Errors, apperr.KindProofVerificationFailed)
	}
}

func TestVerifyWireRejectsMalformedJSON(t *testing.T) {
	h := newHarness(t)
	result := h.verifier.VerifyWire([]byte("{not json"))
	if result.Valid {
		t.Fatal("expected VerifyWire to fail for malformed JSON")
	}
	if len(result.Errors) != 1 || result.Errors[0] != apperr.KindInvalidProofStructure {
		t.Fatalf("Errors = %v, want [%s]", result.Errors, apperr.KindInvalidProofStructure)
	}
}

func TestVerifyWireRoundTrip(t *testing.T) {
	h := newHarness(t)
	setID := uuid.New()

	w, _ := buildWitness(t, []string{"MIT", "Stanford"}, "MIT")
	proof, err := h.prover.Generate(context.Background(), setID, w, "MIT")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := h.registry.Add(registry.TrustedRoot{CredentialSetID: setID, Root: proof.Metadata.MerkleRoot}); err != nil {
		t.Fatalf("registry.Add: %v", err)
	}

	data, err := codec.Serialize(proof)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	result := h.verifier.VerifyWire(data)
	if !result.Valid {
		t.Fatalf("expected wire proof to verify, got errors: %v", result.Errors)
	}
}
