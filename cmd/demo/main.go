// cmd/demo runs the end-to-end flow: create a credential set, register its
// root as trusted, generate a membership proof for one credential, and
// verify it against both a trusted and an untrusted registry. It expects
// circuit artifacts from `go run ./cmd/compile dev` to already exist under
// ./circuits/artifacts.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/meridian-zk/credmesh/circuits/membership"
	"github.com/meridian-zk/credmesh/internal/config"
	"github.com/meridian-zk/credmesh/internal/obslog"
	"github.com/meridian-zk/credmesh/pkg/codec"
	"github.com/meridian-zk/credmesh/pkg/credset"
	"github.com/meridian-zk/credmesh/pkg/field"
	"github.com/meridian-zk/credmesh/pkg/prover"
	"github.com/meridian-zk/credmesh/pkg/registry"
	"github.com/meridian-zk/credmesh/pkg/verifier"
)

func main() {
	logger := obslog.NewConsole("demo")
	cfg := config.New(config.WithCircuit(membership.CircuitID, config.Default().CircuitsPath))

	mgr := credset.New(cfg.MaxCredentialsPerSet, cfg.MaxMerkleDepth)
	set, err := mgr.Create("Universities", []string{"MIT", "Stanford", "Harvard", "Berkeley"},
		"Accredited university registry", credset.TypeUniversities)
	if err != nil {
		log.Fatalf("create credential set: %v", err)
	}
	logger.Info().Str("setId", set.ID.String()).Msg("credential set created")

	pr, err := prover.New(cfg, logger)
	if err != nil {
		log.Fatalf("initialize prover (run `go run ./cmd/compile dev` first): %v", err)
	}
	defer pr.Shutdown()

	reg := registry.New()
	if err := reg.Add(registry.TrustedRoot{CredentialSetID: set.ID, Root: field.Hex64(set.Root)}); err != nil {
		log.Fatalf("register trusted root: %v", err)
	}
	vrf, err := verifier.New(cfg, reg, logger)
	if err != nil {
		log.Fatalf("initialize verifier: %v", err)
	}

	witness, err := mgr.GenerateWitness(set.ID, "Harvard")
	if err != nil {
		log.Fatalf("generate witness: %v", err)
	}

	proof, err := pr.Generate(context.Background(), set.ID, witness, "Harvard")
	if err != nil {
		log.Fatalf("generate proof: %v", err)
	}
	logger.Info().Str("proofId", proof.Metadata.ProofID.String()).Msg("proof generated")

	wire, err := codec.Serialize(proof)
	if err != nil {
		log.Fatalf("serialize proof: %v", err)
	}
	fmt.Printf("wire proof: %d bytes\n", len(wire))

	result := vrf.VerifyWire(wire)
	fmt.Printf("verification result: valid=%v errors=%v\n", result.Valid, result.Errors)
	if !result.Valid {
		os.Exit(1)
	}

	untrusted := registry.New()
	strangerVrf, err := verifier.New(cfg, untrusted, logger)
	if err != nil {
		log.Fatalf("initialize stranger verifier: %v", err)
	}
	strangerResult := strangerVrf.VerifyWire(wire)
	fmt.Printf("verification without trust pin: valid=%v errors=%v\n", strangerResult.Valid, strangerResult.Errors)
}
