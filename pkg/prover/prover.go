// Package prover loads circuit artifacts once at process start, then turns
// a Merkle witness into a Groth16 proof with stamped metadata, offloading
// the heavy proving step onto a bounded worker pool.
package prover

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meridian-zk/credmesh/circuits/membership"
	"github.com/meridian-zk/credmesh/internal/apperr"
	"github.com/meridian-zk/credmesh/internal/config"
	"github.com/meridian-zk/credmesh/internal/workerpool"
	"github.com/meridian-zk/credmesh/pkg/codec"
	"github.com/meridian-zk/credmesh/pkg/field"
	"github.com/meridian-zk/credmesh/pkg/merkle"
	"github.com/meridian-zk/credmesh/pkg/setup"
)

const wireVersion = "1.0.0"

// Prover holds the compiled constraint system and proving key for the
// process lifetime.
type Prover struct {
	cfg    config.Config
	ccs    constraint.ConstraintSystem
	pk     groth16.ProvingKey
	pool   *workerpool.Pool
	log    zerolog.Logger
	closed bool
}

// New compiles the membership circuit and loads its proving key from
// cfg.CircuitsPath. Any missing or malformed artifact is
// CIRCUIT_INITIALIZATION_FAILED.
func New(cfg config.Config, log zerolog.Logger) (*Prover, error) {
	ccs, err := setup.CompileCircuit(&membership.Circuit{})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCircuitInitFailed, "compile membership circuit", err)
	}

	pk, _, err := setup.LoadKeys(cfg.CircuitsPath, cfg.CircuitName)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCircuitInitFailed, "load proving key", err)
	}

	log.Info().Str("circuit", cfg.CircuitName).Msg("prover initialized")

	return &Prover{
		cfg:  cfg,
		ccs:  ccs,
		pk:   pk,
		pool: workerpool.New(0),
		log:  log,
	}, nil
}

// Generate validates the witness, builds the circuit assignment, proves on
// a worker-pool goroutine bounded by ctx's deadline, and stamps proof
// metadata.
func (p *Prover) Generate(ctx context.Context, setID uuid.UUID, w *merkle.Witness, credential string) (*codec.Proof, error) {
	if len(w.Siblings) != len(w.PathIndices) {
		return nil, apperr.New(apperr.KindInternal, "witness sibling/pathIndices length mismatch")
	}
	if len(w.Siblings) > p.cfg.MaxMerkleDepth {
		return nil, apperr.New(apperr.KindInvalidProofStructure, "witness exceeds configured max depth")
	}
	if credential == "" {
		return nil, apperr.ErrInvalidCredential
	}

	leafField := field.StrToField(credential)
	if leafField.Cmp(w.Leaf) != 0 {
		return nil, apperr.New(apperr.KindInvalidCredential, "credential does not match witness leaf")
	}

	assignment, err := membership.Assign(leafField, w)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProofGenerationFailed, "assign witness", err)
	}

	var proof groth16.Proof
	genErr := workerpool.Submit(ctx, p.pool, func() error {
		fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
		if err != nil {
			return fmt.Errorf("build witness: %w", err)
		}
		proof, err = groth16.Prove(p.ccs, p.pk, fullWitness)
		if err != nil {
			return fmt.Errorf("groth16 prove: %w", err)
		}
		return nil
	})
	if genErr != nil {
		if genErr == context.DeadlineExceeded {
			return nil, apperr.New(apperr.KindProofGenerationFailed, "proof generation timed out", "timeout")
		}
		return nil, apperr.Wrap(apperr.KindProofGenerationFailed, "generate proof", genErr)
	}

	// publicSignals[0] is the root computed inside the circuit, asserted
	// equal to w.Root by the circuit's own constraints.
	publicSignals := []string{w.Root.String()}

	now := time.Now().UTC()
	p.log.Debug().Str("setId", setID.String()).Msg("proof generated")

	return &codec.Proof{
		Groth16:       proof,
		PublicSignals: publicSignals,
		Metadata: codec.ProofMetadata{
			ProofID:         uuid.New(),
			CredentialSetID: setID,
			MerkleRoot:      field.Hex64(w.Root),
			Timestamp:       now,
			ExpiresAt:       now.Add(p.cfg.ProofExpiry),
			Version:         wireVersion,
			CircuitID:       membership.CircuitID,
		},
	}, nil
}

// Nullifier computes SHA-256(credential || secret). When secret is nil, 32
// fresh random bytes are generated. It is an optional linkability primitive,
// not part of the circuit's soundness.
func Nullifier(credential string, secret []byte) ([32]byte, error) {
	if secret == nil {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return [32]byte{}, apperr.Wrap(apperr.KindInternal, "generate nullifier secret", err)
		}
	}
	return sha256.Sum256(append([]byte(credential), secret...)), nil
}

// Shutdown drops the prover's reference to its loaded proving key and stops
// its worker pool. gnark's key types do not expose raw secret scalars for an
// explicit wipe, so this is best-effort reclamation rather than a wipe.
func (p *Prover) Shutdown() {
	if p.closed {
		return
	}
	p.closed = true
	p.pool.Close()
	p.pk = nil
}
