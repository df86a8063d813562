package main

import (
	"fmt"
	"os"

	"github.com/meridian-zk/credmesh/circuits/membership"
	"github.com/meridian-zk/credmesh/internal/obslog"
	"github.com/meridian-zk/credmesh/pkg/setup"
	"github.com/rs/zerolog"
)

func main() {
	log := obslog.NewConsole("compile")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "dev":
		if err := setup.DevSetup(&membership.Circuit{}, "./circuits/artifacts", membership.CircuitID, log); err != nil {
			log.Fatal().Err(err).Msg("dev setup failed")
		}
	case "ceremony":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		handleCeremony(log)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleCeremony(log zerolog.Logger) {
	switch os.Args[2] {
	case "p1-init":
		if err := setup.CeremonyP1Init(&membership.Circuit{}, log); err != nil {
			log.Fatal().Err(err).Msg("phase 1 init failed")
		}
	case "p1-contribute":
		if err := setup.CeremonyP1Contribute(log); err != nil {
			log.Fatal().Err(err).Msg("phase 1 contribution failed")
		}
	case "p1-verify":
		if len(os.Args) < 4 {
			log.Fatal().Msg("usage: go run ./cmd/compile ceremony p1-verify BEACON_HEX")
		}
		if err := setup.CeremonyP1Verify(&membership.Circuit{}, os.Args[3], log); err != nil {
			log.Fatal().Err(err).Msg("phase 1 verification failed")
		}
	case "p2-init":
		if err := setup.CeremonyP2Init(&membership.Circuit{}, log); err != nil {
			log.Fatal().Err(err).Msg("phase 2 init failed")
		}
	case "p2-contribute":
		if err := setup.CeremonyP2Contribute(log); err != nil {
			log.Fatal().Err(err).Msg("phase 2 contribution failed")
		}
	case "p2-verify":
		if len(os.Args) < 4 {
			log.Fatal().Msg("usage: go run ./cmd/compile ceremony p2-verify BEACON_HEX")
		}
		if err := setup.CeremonyP2Verify(&membership.Circuit{}, os.Args[3], "./circuits/artifacts", membership.CircuitID, log); err != nil {
			log.Fatal().Err(err).Msg("phase 2 verification failed")
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage:
  go run ./cmd/compile dev                         Dev mode (single-party/unsafe setup, NOT for production)

  go run ./cmd/compile ceremony p1-init            Initialize Phase 1 (Powers of Tau)
  go run ./cmd/compile ceremony p1-contribute      Add a Phase 1 contribution
  go run ./cmd/compile ceremony p1-verify HEX      Verify Phase 1 & seal with random beacon

  go run ./cmd/compile ceremony p2-init            Initialize Phase 2 (circuit-specific)
  go run ./cmd/compile ceremony p2-contribute      Add a Phase 2 contribution
  go run ./cmd/compile ceremony p2-verify HEX      Verify Phase 2, seal & export keys

Ceremony workflow:
  1. p1-init          Coordinator creates the initial Phase 1 state
  2. p1-contribute    Each participant contributes (repeat N times)
  3. p1-verify        Coordinator verifies all & seals with a public beacon
  4. p2-init          Coordinator initializes Phase 2 with the circuit
  5. p2-contribute    Each participant contributes (repeat M times)
  6. p2-verify        Coordinator verifies all, seals, and exports final keys

Security: 1-of-N honest — if any single contributor is honest, the setup is secure.
Beacon: use a public randomness source (e.g. League of Entropy) evaluated AFTER the last contribution.`)
}
