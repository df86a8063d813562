// Package registry implements the authenticated, out-of-band set of
// trusted (credentialSetId, root) pairs that the verifier checks a proof
// against.
package registry

import (
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-zk/credmesh/internal/apperr"
)

var hex64Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// TrustedRoot is a trust-pinning entry. Identity is the pair
// (CredentialSetID, Root).
type TrustedRoot struct {
	CredentialSetID uuid.UUID
	Root            string
	AddedAt         time.Time
	ExpiresAt       *time.Time
	Metadata        map[string]string
}

// Registry is a reader/writer-guarded map of setId -> set<root>.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]map[string]TrustedRoot
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[uuid.UUID]map[string]TrustedRoot)}
}

// Add validates the root's hex encoding and records the trust pin. A
// duplicate add (same setId, root) is a no-op returning nil.
func (r *Registry) Add(entry TrustedRoot) error {
	if !hex64Pattern.MatchString(entry.Root) {
		return apperr.ErrInvalidRootFormat
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.entries[entry.CredentialSetID]
	if !ok {
		m = make(map[string]TrustedRoot)
		r.entries[entry.CredentialSetID] = m
	}
	if _, exists := m[entry.Root]; exists {
		return nil
	}
	m[entry.Root] = entry
	return nil
}

// IsTrusted reports whether (setID, root) is pinned and, if it carries an
// expiry, not yet expired.
func (r *Registry) IsTrusted(setID uuid.UUID, root string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.entries[setID]
	if !ok {
		return false
	}
	entry, ok := m[root]
	if !ok {
		return false
	}
	if entry.ExpiresAt != nil && !entry.ExpiresAt.After(time.Now().UTC()) {
		return false
	}
	return true
}

// Revoke removes a trust pin. Reports whether an entry was actually
// removed.
func (r *Registry) Revoke(setID uuid.UUID, root string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.entries[setID]
	if !ok {
		return false
	}
	if _, ok := m[root]; !ok {
		return false
	}
	delete(m, root)
	if len(m) == 0 {
		delete(r.entries, setID)
	}
	return true
}

// Count returns the total number of trust pins across every set.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, m := range r.entries {
		n += len(m)
	}
	return n
}

// List returns every trust pin for a given set.
func (r *Registry) List(setID uuid.UUID) []TrustedRoot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := r.entries[setID]
	out := make([]TrustedRoot, 0, len(m))
	for _, entry := range m {
		out = append(out, entry)
	}
	return out
}
