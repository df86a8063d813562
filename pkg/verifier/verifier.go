// Package verifier implements a staged, short-circuiting pipeline that
// turns a wire-format proof into a pass/fail result without ever panicking
// on attacker-controlled input.
package verifier

import (
	"math/big"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meridian-zk/credmesh/circuits/membership"
	"github.com/meridian-zk/credmesh/internal/apperr"
	"github.com/meridian-zk/credmesh/internal/config"
	"github.com/meridian-zk/credmesh/pkg/codec"
	"github.com/meridian-zk/credmesh/pkg/registry"
	"github.com/meridian-zk/credmesh/pkg/setup"
)

// Result is the outcome of a verification attempt. Valid is true only when
// every stage passed; Errors records every apperr.Kind that caused a stage
// to fail (normally just one, since the pipeline short-circuits).
type Result struct {
	Valid           bool
	VerifiedAt      time.Time
	CredentialSetID uuid.UUID
	Errors          []apperr.Kind
	Warnings        []string
}

func fail(kind apperr.Kind, warnings ...string) *Result {
	return &Result{
		Valid:      false,
		VerifiedAt: time.Now().UTC(),
		Errors:     []apperr.Kind{kind},
		Warnings:   warnings,
	}
}

// Verifier holds the loaded verifying key and the registry of trusted
// roots it checks proofs against.
type Verifier struct {
	vk  groth16.VerifyingKey
	reg *registry.Registry
	log zerolog.Logger
}

// New loads the membership circuit's verifying key from cfg.CircuitsPath.
func New(cfg config.Config, reg *registry.Registry, log zerolog.Logger) (*Verifier, error) {
	_, vk, err := setup.LoadKeys(cfg.CircuitsPath, cfg.CircuitName)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCircuitInitFailed, "load verifying key", err)
	}
	log.Info().Str("circuit", cfg.CircuitName).Msg("verifier initialized")
	return &Verifier{vk: vk, reg: reg, log: log}, nil
}

// VerifyWire runs the full staged pipeline over a wire-format (JSON) proof:
//  1. structural precheck (codec.StructuralPrecheck)
//  2. temporal check (expiresAt must be in the future)
//  3. trust check (root must be pinned in the registry for this set)
//  4. cryptographic check (groth16.Verify against the loaded key)
//
// Any stage failing short-circuits the remaining stages.
func (v *Verifier) VerifyWire(data []byte) *Result {
	if err := codec.StructuralPrecheck(data); err != nil {
		return fail(apperr.KindInvalidProofStructure)
	}

	p, err := codec.Deserialize(data)
	if err != nil {
		return fail(apperr.KindInvalidProofStructure)
	}
	return v.Verify(p)
}

// Verify runs the staged pipeline over an already-deserialized proof.
func (v *Verifier) Verify(p *codec.Proof) *Result {
	now := time.Now().UTC()

	if !p.Metadata.ExpiresAt.After(now) {
		r := fail(apperr.KindProofExpired)
		r.CredentialSetID = p.Metadata.CredentialSetID
		return r
	}

	if !v.reg.IsTrusted(p.Metadata.CredentialSetID, p.Metadata.MerkleRoot) {
		r := fail(apperr.KindUntrustedRoot)
		r.CredentialSetID = p.Metadata.CredentialSetID
		return r
	}

	if len(p.PublicSignals) != 1 {
		r := fail(apperr.KindInvalidProofStructure)
		r.CredentialSetID = p.Metadata.CredentialSetID
		return r
	}
	rootValue, ok := new(big.Int).SetString(p.PublicSignals[0], 10)
	if !ok {
		r := fail(apperr.KindInvalidProofStructure)
		r.CredentialSetID = p.Metadata.CredentialSetID
		return r
	}

	publicAssignment := &membership.Circuit{RootHash: rootValue}
	fullWitness, err := frontend.NewWitness(publicAssignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		r := fail(apperr.KindInvalidProofStructure)
		r.CredentialSetID = p.Metadata.CredentialSetID
		return r
	}

	if err := groth16.Verify(p.Groth16, v.vk, fullWitness); err != nil {
		v.log.Debug().Err(err).Str("setId", p.Metadata.CredentialSetID.String()).Msg("proof rejected")
		r := fail(apperr.KindProofVerificationFailed)
		r.CredentialSetID = p.Metadata.CredentialSetID
		return r
	}

	return &Result{
		Valid:           true,
		VerifiedAt:      now,
		CredentialSetID: p.Metadata.CredentialSetID,
	}
}
