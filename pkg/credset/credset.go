// Package credset owns named credential sets, maps credentials to leaf
// indices, and produces inclusion witnesses behind a reader/writer lock
// guarding the whole catalogue.
package credset

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-zk/credmesh/internal/apperr"
	"github.com/meridian-zk/credmesh/pkg/field"
	"github.com/meridian-zk/credmesh/pkg/merkle"
)

// CredentialSetType is data, not behavior — a tagged variant describing
// what kind of entities a set's credentials represent.
type CredentialSetType string

const (
	TypeUniversities   CredentialSetType = "universities"
	TypeCompanies      CredentialSetType = "companies"
	TypeCertifications CredentialSetType = "certifications"
	TypeCustom         CredentialSetType = "custom"
)

// CredentialSet is the immutable-after-creation record of one named set.
type CredentialSet struct {
	ID          uuid.UUID
	Name        string
	Description string
	Type        CredentialSetType
	Credentials []string
	Root        *big.Int
	CreatedAt   time.Time
	Version     string
}

const wireVersion = "1.0.0"

type storedSet struct {
	meta    CredentialSet
	tree    *merkle.Tree
	indexOf map[string]int
}

// Manager owns the full catalogue of credential sets behind a single
// reader/writer lock; witness generation is expected to vastly outnumber
// set creation.
type Manager struct {
	mu       sync.RWMutex
	sets     map[uuid.UUID]*storedSet
	maxSize  int
	maxDepth int
}

// New constructs an empty Manager. maxCredentialsPerSet and maxMerkleDepth
// come from internal/config.Config.
func New(maxCredentialsPerSet, maxMerkleDepth int) *Manager {
	return &Manager{
		sets:     make(map[uuid.UUID]*storedSet),
		maxSize:  maxCredentialsPerSet,
		maxDepth: maxMerkleDepth,
	}
}

// Create validates the credential list, builds the Merkle tree over the
// reduced leaves, assigns a fresh v4 UUID, and stores an immutable copy of
// the set.
func (m *Manager) Create(name string, credentials []string, description string, setType CredentialSetType) (*CredentialSet, error) {
	cleaned, err := validateCredentials(credentials, m.maxSize)
	if err != nil {
		return nil, err
	}
	if setType == "" {
		setType = TypeCustom
	}

	leaves := make([]*big.Int, len(cleaned))
	indexOf := make(map[string]int, len(cleaned))
	for i, c := range cleaned {
		leaves[i] = field.StrToField(c)
		indexOf[c] = i
	}

	tree, err := merkle.New(leaves)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build merkle tree", err)
	}

	meta := CredentialSet{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Type:        setType,
		Credentials: cleaned,
		Root:        tree.Root(),
		CreatedAt:   time.Now().UTC(),
		Version:     wireVersion,
	}

	m.mu.Lock()
	m.sets[meta.ID] = &storedSet{meta: meta, tree: tree, indexOf: indexOf}
	m.mu.Unlock()

	out := meta
	out.Credentials = append([]string(nil), cleaned...)
	return &out, nil
}

// GenerateWitness looks up the set and the credential's leaf index and
// returns its inclusion witness. A missing set reports
// ErrCredentialSetNotFound; a missing credential in a known set reports the
// generic ErrCredentialNotFound, never revealing set contents.
func (m *Manager) GenerateWitness(setID uuid.UUID, credential string) (*merkle.Witness, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sets[setID]
	if !ok {
		return nil, apperr.ErrCredentialSetNotFound
	}

	c := strings.TrimSpace(credential)
	idx, ok := s.indexOf[c]
	if !ok {
		return nil, apperr.ErrCredentialNotFound
	}

	w, err := s.tree.Witness(idx, m.maxDepth)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "extract witness", err)
	}
	return w, nil
}

// VerifyWitness first compares the witness root to the set's stored root by
// structural equality, then runs the Merkle Engine's static verify.
func (m *Manager) VerifyWitness(setID uuid.UUID, w *merkle.Witness) (bool, error) {
	m.mu.RLock()
	s, ok := m.sets[setID]
	m.mu.RUnlock()
	if !ok {
		return false, apperr.ErrCredentialSetNotFound
	}

	if w.Root.Cmp(s.meta.Root) != 0 {
		return false, nil
	}
	return merkle.Verify(w), nil
}

// Get returns a copy of the set's metadata.
func (m *Manager) Get(setID uuid.UUID) (*CredentialSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sets[setID]
	if !ok {
		return nil, apperr.ErrCredentialSetNotFound
	}
	out := s.meta
	out.Credentials = append([]string(nil), s.meta.Credentials...)
	return &out, nil
}

// List returns metadata for every stored set.
func (m *Manager) List() []*CredentialSet {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*CredentialSet, 0, len(m.sets))
	for _, s := range m.sets {
		cp := s.meta
		cp.Credentials = append([]string(nil), s.meta.Credentials...)
		out = append(out, &cp)
	}
	return out
}

// Delete removes an entire set.
func (m *Manager) Delete(setID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sets[setID]; !ok {
		return apperr.ErrCredentialSetNotFound
	}
	delete(m.sets, setID)
	return nil
}

// Count returns the number of stored sets.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sets)
}

func validateCredentials(credentials []string, maxSize int) ([]string, error) {
	if len(credentials) == 0 {
		return nil, apperr.New(apperr.KindValidation, "credentials must not be empty")
	}
	if len(credentials) > maxSize {
		return nil, apperr.New(apperr.KindCredentialLimitExceeded,
			fmt.Sprintf("credential set exceeds maximum size of %d", maxSize))
	}

	seen := make(map[string]struct{}, len(credentials))
	cleaned := make([]string, 0, len(credentials))
	for _, raw := range credentials {
		c := strings.TrimSpace(raw)
		if c == "" {
			return nil, apperr.New(apperr.KindInvalidCredential, "credential must not be empty")
		}
		if len(c) > 256 {
			return nil, apperr.New(apperr.KindInvalidCredential,
				"credential exceeds 256 bytes", strconv.Itoa(len(c)))
		}
		if _, dup := seen[c]; dup {
			return nil, apperr.New(apperr.KindDuplicateCredential, "duplicate credential in set", c)
		}
		seen[c] = struct{}{}
		cleaned = append(cleaned, c)
	}
	return cleaned, nil
}
