// Package setup drives the Groth16 compile/setup/ceremony lifecycle for a
// gnark circuit: dev (single-party, unsafe) setup for local iteration, and
// the full Powers-of-Tau + circuit-specific MPC ceremony for production
// key generation. Every exported entry point takes a zerolog.Logger instead
// of writing to stdout directly, so callers control where ceremony
// progress goes (console for cmd/compile, discarded in tests).
package setup

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/bits"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/groth16/bn254/mpcsetup"
	"github.com/consensys/gnark/constraint"
	cs_bn254 "github.com/consensys/gnark/constraint/bn254"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/rs/zerolog"
)

// CompileCircuit compiles a gnark circuit into a constraint system.
func CompileCircuit(circuit frontend.Circuit) (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}
	return ccs, nil
}

// DevSetup performs a single-party trusted setup (NOT for production). It
// writes the proving key and verifying key to outputDir.
func DevSetup(circuit frontend.Circuit, outputDir, circuitName string, log zerolog.Logger) error {
	log.Warn().
		Str("circuit", circuitName).
		Msg("single-party setup (1-of-1 trust assumption) — do not use these keys in production; run the MPC ceremony instead")

	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return err
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return fmt.Errorf("groth16 setup: %w", err)
	}

	return ExportKeys(pk, vk, outputDir, circuitName, log)
}

// ExportKeys writes the proving key and verifying key to outputDir. Files
// are named <circuitName>_prover.key and <circuitName>_verifier.key.
func ExportKeys(pk groth16.ProvingKey, vk groth16.VerifyingKey, outputDir, circuitName string, log zerolog.Logger) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	vkPath := filepath.Join(outputDir, circuitName+"_verifier.key")
	if err := saveObject(vkPath, vk); err != nil {
		return fmt.Errorf("save verifying key: %w", err)
	}

	pkPath := filepath.Join(outputDir, circuitName+"_prover.key")
	if err := saveObject(pkPath, pk); err != nil {
		return fmt.Errorf("save proving key: %w", err)
	}

	log.Info().Str("provingKey", pkPath).Str("verifyingKey", vkPath).Msg("exported circuit keys")
	return nil
}

// LoadKeys loads the proving and verifying keys from the given directory.
func LoadKeys(dir, circuitName string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk := groth16.NewProvingKey(ecc.BN254)
	pkPath := filepath.Join(dir, circuitName+"_prover.key")
	f, err := os.Open(pkPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open proving key: %w", err)
	}
	if _, err := pk.ReadFrom(f); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("read proving key: %w", err)
	}
	f.Close()

	vk := groth16.NewVerifyingKey(ecc.BN254)
	vkPath := filepath.Join(dir, circuitName+"_verifier.key")
	f, err = os.Open(vkPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open verifying key: %w", err)
	}
	if _, err := vk.ReadFrom(f); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("read verifying key: %w", err)
	}
	f.Close()

	return pk, vk, nil
}

// ─── MPC ceremony ───────────────────────────────────────────────────────────

// CeremonyDir is the default directory for ceremony files.
const CeremonyDir = "ceremony"

// CeremonyP1Init initializes Phase 1 (Powers of Tau).
func CeremonyP1Init(circuit frontend.Circuit, log zerolog.Logger) error {
	if err := ensureCeremonyDir(); err != nil {
		return err
	}
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return err
	}

	n := ecc.NextPowerOfTwo(uint64(ccs.GetNbConstraints()))
	log.Info().
		Uint64("domainSize", n).
		Int("domainBits", bits.Len64(n)-1).
		Int("constraints", ccs.GetNbConstraints()).
		Msg("phase 1: domain sized")

	p := mpcsetup.NewPhase1(n)
	path := nextContribPath("phase1")
	if err := saveObject(path, p); err != nil {
		return fmt.Errorf("save phase 1 init state: %w", err)
	}
	log.Info().Str("path", path).Msg("wrote initial phase 1 state")
	return nil
}

// CeremonyP1Contribute adds a Phase 1 contribution.
func CeremonyP1Contribute(log zerolog.Logger) error {
	latest, err := latestContrib("phase1")
	if err != nil {
		return err
	}
	log.Info().Str("path", latest).Msg("loading phase 1 state")

	var p mpcsetup.Phase1
	if err := loadObject(latest, &p); err != nil {
		return fmt.Errorf("load phase 1 state: %w", err)
	}

	log.Info().Msg("contributing randomness to phase 1")
	p.Contribute()

	path := nextContribPath("phase1")
	if err := saveObject(path, &p); err != nil {
		return fmt.Errorf("save phase 1 contribution: %w", err)
	}
	log.Info().Str("path", path).Msg("wrote phase 1 contribution")
	return nil
}

// CeremonyP1Verify verifies Phase 1 contributions and seals with a random beacon.
func CeremonyP1Verify(circuit frontend.Circuit, beaconHex string, log zerolog.Logger) error {
	beacon, err := parseBeacon(beaconHex)
	if err != nil {
		return err
	}
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return err
	}
	n := ecc.NextPowerOfTwo(uint64(ccs.GetNbConstraints()))

	contribs := findContribs("phase1")
	if len(contribs) < 2 {
		return fmt.Errorf("need at least the init file + one contribution to verify")
	}

	// The init file (index 0) is not itself a contribution.
	nContribs := len(contribs) - 1
	log.Info().Int("contributions", nContribs).Msg("verifying phase 1")

	phases := make([]*mpcsetup.Phase1, nContribs)
	for i, path := range contribs[1:] {
		phases[i] = new(mpcsetup.Phase1)
		if err := loadObject(path, phases[i]); err != nil {
			return fmt.Errorf("load phase 1 contribution %s: %w", path, err)
		}
	}

	commons, err := mpcsetup.VerifyPhase1(n, beacon, phases...)
	if err != nil {
		return fmt.Errorf("phase 1 verification failed: %w", err)
	}

	srsPath := filepath.Join(CeremonyDir, "srs_commons.bin")
	if err := saveObject(srsPath, &commons); err != nil {
		return fmt.Errorf("save sealed SRS commons: %w", err)
	}
	log.Info().Str("path", srsPath).Msg("phase 1 verified and sealed")
	return nil
}

// CeremonyP2Init initializes Phase 2 (circuit-specific).
func CeremonyP2Init(circuit frontend.Circuit, log zerolog.Logger) error {
	if err := ensureCeremonyDir(); err != nil {
		return err
	}
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return err
	}
	r1csConcrete := ccs.(*cs_bn254.R1CS)

	srsPath := filepath.Join(CeremonyDir, "srs_commons.bin")
	var commons mpcsetup.SrsCommons
	if err := loadObject(srsPath, &commons); err != nil {
		return fmt.Errorf("load sealed SRS commons: %w", err)
	}

	log.Info().Msg("initializing phase 2 with circuit and SRS commons")
	var p mpcsetup.Phase2
	p.Initialize(r1csConcrete, &commons)

	path := nextContribPath("phase2")
	if err := saveObject(path, &p); err != nil {
		return fmt.Errorf("save phase 2 init state: %w", err)
	}
	log.Info().Str("path", path).Msg("wrote initial phase 2 state")
	return nil
}

// CeremonyP2Contribute adds a Phase 2 contribution.
func CeremonyP2Contribute(log zerolog.Logger) error {
	latest, err := latestContrib("phase2")
	if err != nil {
		return err
	}
	log.Info().Str("path", latest).Msg("loading phase 2 state")

	var p mpcsetup.Phase2
	if err := loadObject(latest, &p); err != nil {
		return fmt.Errorf("load phase 2 state: %w", err)
	}

	log.Info().Msg("contributing randomness to phase 2")
	p.Contribute()

	path := nextContribPath("phase2")
	if err := saveObject(path, &p); err != nil {
		return fmt.Errorf("save phase 2 contribution: %w", err)
	}
	log.Info().Str("path", path).Msg("wrote phase 2 contribution")
	return nil
}

// CeremonyP2Verify verifies Phase 2 contributions, seals, and exports final keys.
func CeremonyP2Verify(circuit frontend.Circuit, beaconHex, outputDir, circuitName string, log zerolog.Logger) error {
	beacon, err := parseBeacon(beaconHex)
	if err != nil {
		return err
	}
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return err
	}
	r1csConcrete := ccs.(*cs_bn254.R1CS)

	srsPath := filepath.Join(CeremonyDir, "srs_commons.bin")
	var commons mpcsetup.SrsCommons
	if err := loadObject(srsPath, &commons); err != nil {
		return fmt.Errorf("load sealed SRS commons: %w", err)
	}

	contribs := findContribs("phase2")
	if len(contribs) < 2 {
		return fmt.Errorf("need at least the init file + one contribution to verify")
	}

	nContribs := len(contribs) - 1
	log.Info().Int("contributions", nContribs).Msg("verifying phase 2")

	phases := make([]*mpcsetup.Phase2, nContribs)
	for i, path := range contribs[1:] {
		phases[i] = new(mpcsetup.Phase2)
		if err := loadObject(path, phases[i]); err != nil {
			return fmt.Errorf("load phase 2 contribution %s: %w", path, err)
		}
	}

	pk, vk, err := mpcsetup.VerifyPhase2(r1csConcrete, &commons, beacon, phases...)
	if err != nil {
		return fmt.Errorf("phase 2 verification failed: %w", err)
	}

	if err := ExportKeys(pk, vk, outputDir, circuitName, log); err != nil {
		return err
	}
	log.Info().Msg("ceremony complete, keys are production-ready")
	return nil
}

// ─── Internal helpers ───────────────────────────────────────────────────────

func ensureCeremonyDir() error {
	if err := os.MkdirAll(CeremonyDir, 0o755); err != nil {
		return fmt.Errorf("create ceremony dir: %w", err)
	}
	return nil
}

func saveObject(path string, obj io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := obj.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func loadObject(path string, obj io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := obj.ReadFrom(f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func parseBeacon(hexStr string) ([]byte, error) {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("invalid beacon hex: %w", err)
	}
	if len(b) < 16 {
		return nil, fmt.Errorf("beacon must be at least 16 bytes for sufficient entropy")
	}
	return b, nil
}

// findContribs returns sorted paths matching ceremony/<prefix>_NNNN.bin.
func findContribs(prefix string) []string {
	pattern := filepath.Join(CeremonyDir, prefix+"_????.bin")
	matches, _ := filepath.Glob(pattern)
	sort.Strings(matches)
	return matches
}

func latestContrib(prefix string) (string, error) {
	contribs := findContribs(prefix)
	if len(contribs) == 0 {
		return "", fmt.Errorf("no %s contributions found in %s/", prefix, CeremonyDir)
	}
	return contribs[len(contribs)-1], nil
}

func nextContribPath(prefix string) string {
	return filepath.Join(CeremonyDir, fmt.Sprintf("%s_%04d.bin", prefix, len(findContribs(prefix))))
}
