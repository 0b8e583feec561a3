// Package registry stores build records for the executing pipeline and any
// number of concurrent polling readers.
//
// The Store interface keeps the backing choice injectable; the in-memory
// implementation here covers a single instance. Every read returns a deep
// copy taken under the lock, so a reader can never observe a half-applied
// phase transition. Builds are never evicted; the map grows for the process
// lifetime, which is a known scaling limitation of this design.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paceworks/buildd/internal/build"
)

// ErrDuplicateID indicates a build with the same ID is already registered.
var ErrDuplicateID = errors.New("duplicate build id")

// Store is the build registry contract.
//
// Update applies a mutation to the stored record under the write lock and
// returns the resulting snapshot. Routing all mutation through Update is what
// gives pollers atomic visibility of whole-build state.
type Store interface {
	Create(b *build.Build) error
	Get(id string) (*build.Build, error)
	List() []*build.Build
	Update(id string, fn func(*build.Build) error) (*build.Build, error)
}

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore struct {
	mu     sync.RWMutex
	builds map[string]*build.Build
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		builds: make(map[string]*build.Build),
	}
}

// Create registers a new build. The store keeps its own copy so later caller
// mutations cannot bypass the lock.
func (s *MemoryStore) Create(b *build.Build) error {
	if b == nil || b.ID == "" {
		return fmt.Errorf("build with non-empty id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.builds[b.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
	}
	s.builds[b.ID] = b.Clone()
	return nil
}

// Get returns a snapshot of the build, or build.ErrNotFound.
func (s *MemoryStore) Get(id string) (*build.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.builds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", build.ErrNotFound, id)
	}
	return b.Clone(), nil
}

// List returns snapshots of all builds in unspecified order.
func (s *MemoryStore) List() []*build.Build {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*build.Build, 0, len(s.builds))
	for _, b := range s.builds {
		out = append(out, b.Clone())
	}
	return out
}

// Update applies fn to the stored record under the write lock and returns the
// resulting snapshot. The transition methods on build.Build reject invalid
// changes before mutating, so a failed fn has not partially applied anything.
func (s *MemoryStore) Update(id string, fn func(*build.Build) error) (*build.Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.builds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", build.ErrNotFound, id)
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	return b.Clone(), nil
}
