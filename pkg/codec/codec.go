// Package codec implements canonical wire serialization/deserialization of
// proofs and structural validation ahead of cryptographic verification. The
// wire DTOs use encoding/json, with the Groth16 object itself carried as a
// hex-encoded gnark binary blob (gnark's own groth16.Proof ReadFrom/WriteTo
// format) rather than individual curve points for a Solidity verifier —
// there is no on-chain verifier in scope here.
package codec

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"

	"github.com/meridian-zk/credmesh/internal/apperr"
)

// timeLayout is RFC3339 truncated to millisecond-precision UTC.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

var hex64Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// ProofMetadata carries the non-cryptographic fields stamped onto a proof.
type ProofMetadata struct {
	ProofID         uuid.UUID
	CredentialSetID uuid.UUID
	MerkleRoot      string // hex64
	Timestamp       time.Time
	ExpiresAt       time.Time
	Version         string
	CircuitID       string
}

// Proof is the in-memory representation of a generated membership proof.
type Proof struct {
	Groth16       groth16.Proof
	PublicSignals []string
	Metadata      ProofMetadata
}

type wireProof struct {
	Proof         string       `json:"proof"`
	PublicSignals []string     `json:"publicSignals"`
	Metadata      wireMetadata `json:"metadata"`
}

type wireMetadata struct {
	ProofID         string `json:"proofId"`
	CredentialSetID string `json:"credentialSetId"`
	MerkleRoot      string `json:"merkleRoot"`
	Timestamp       string `json:"timestamp"`
	ExpiresAt       string `json:"expiresAt"`
	Version         string `json:"version"`
	CircuitID       string `json:"circuitId"`
}

// Serialize produces the canonical wire form with millisecond-precision UTC
// ISO-8601 timestamps.
func Serialize(p *Proof) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.Groth16.WriteTo(&buf); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "serialize groth16 proof", err)
	}

	w := wireProof{
		Proof:         hex.EncodeToString(buf.Bytes()),
		PublicSignals: p.PublicSignals,
		Metadata: wireMetadata{
			ProofID:         p.Metadata.ProofID.String(),
			CredentialSetID: p.Metadata.CredentialSetID.String(),
			MerkleRoot:      p.Metadata.MerkleRoot,
			Timestamp:       p.Metadata.Timestamp.UTC().Truncate(time.Millisecond).Format(timeLayout),
			ExpiresAt:       p.Metadata.ExpiresAt.UTC().Truncate(time.Millisecond).Format(timeLayout),
			Version:         p.Metadata.Version,
			CircuitID:       p.Metadata.CircuitID,
		},
	}

	out, err := json.Marshal(w)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "marshal proof", err)
	}
	return out, nil
}

// Deserialize reconstructs a Proof from its canonical wire form, parsing
// timestamps strictly against the millisecond ISO-8601 layout. Any
// structural or parse failure is INVALID_PROOF_STRUCTURE.
func Deserialize(data []byte) (*Proof, error) {
	var w wireProof
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidProofStructure, "malformed proof JSON", err)
	}

	if w.Proof == "" || w.Metadata.ProofID == "" || w.Metadata.CredentialSetID == "" ||
		w.Metadata.MerkleRoot == "" || w.Metadata.Timestamp == "" || w.Metadata.ExpiresAt == "" {
		return nil, apperr.ErrInvalidProofStructure
	}

	rawProof, err := hex.DecodeString(w.Proof)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidProofStructure, "malformed groth16 proof encoding", err)
	}

	gproof := groth16.NewProof(ecc.BN254)
	if _, err := gproof.ReadFrom(bytes.NewReader(rawProof)); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidProofStructure, "malformed groth16 proof bytes", err)
	}

	proofID, err := uuid.Parse(w.Metadata.ProofID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidProofStructure, "malformed proofId", err)
	}
	setID, err := uuid.Parse(w.Metadata.CredentialSetID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidProofStructure, "malformed credentialSetId", err)
	}
	if !hex64Pattern.MatchString(w.Metadata.MerkleRoot) {
		return nil, apperr.New(apperr.KindInvalidProofStructure, "malformed merkleRoot")
	}

	ts, err := time.Parse(timeLayout, w.Metadata.Timestamp)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidProofStructure, "malformed timestamp", err)
	}
	exp, err := time.Parse(timeLayout, w.Metadata.ExpiresAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidProofStructure, "malformed expiresAt", err)
	}

	return &Proof{
		Groth16:       gproof,
		PublicSignals: w.PublicSignals,
		Metadata: ProofMetadata{
			ProofID:         proofID,
			CredentialSetID: setID,
			MerkleRoot:      w.Metadata.MerkleRoot,
			Timestamp:       ts,
			ExpiresAt:       exp,
			Version:         w.Metadata.Version,
			CircuitID:       w.Metadata.CircuitID,
		},
	}, nil
}

// Validate checks presence and primitive types of every field without
// throwing — it never returns an error, only a bool.
func Validate(data []byte) bool {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return false
	}

	proofField, ok := raw["proof"].(string)
	if !ok || proofField == "" {
		return false
	}

	signals, ok := raw["publicSignals"].([]interface{})
	if !ok {
		return false
	}
	for _, s := range signals {
		if _, ok := s.(string); !ok {
			return false
		}
	}

	metaRaw, ok := raw["metadata"].(map[string]interface{})
	if !ok {
		return false
	}
	for _, key := range []string{"proofId", "credentialSetId", "merkleRoot", "timestamp", "expiresAt", "version", "circuitId"} {
		v, ok := metaRaw[key]
		if !ok {
			return false
		}
		if _, ok := v.(string); !ok {
			return false
		}
	}

	ts, _ := metaRaw["timestamp"].(string)
	exp, _ := metaRaw["expiresAt"].(string)
	tv, err1 := time.Parse(timeLayout, ts)
	ev, err2 := time.Parse(timeLayout, exp)
	if err1 != nil || err2 != nil {
		return false
	}
	if tv.After(time.Now().UTC()) {
		return false
	}
	if !ev.After(tv) {
		return false
	}

	root, _ := metaRaw["merkleRoot"].(string)
	if !hex64Pattern.MatchString(root) {
		return false
	}

	return true
}

// StructuralPrecheck reuses Validate's primitive checks for the verifier's
// stage-1 precheck, turning a false result into a normative error.
func StructuralPrecheck(data []byte) error {
	if !Validate(data) {
		return apperr.ErrInvalidProofStructure
	}
	return nil
}
