package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paceworks/buildd/internal/build"
)

func newTestBuild() *build.Build {
	return build.New(build.Config{
		ProjectName: "demo",
		Description: "a demo project",
	})
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	b := newTestBuild()

	require.NoError(t, s.Create(b))

	got, err := s.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, build.StatusRunning, got.Status)

	// The store keeps its own copy; mutating the original must not be
	// visible through the store.
	b.Status = build.StatusError
	got, err = s.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, build.StatusRunning, got.Status)
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	s := NewMemoryStore()
	b := newTestBuild()

	require.NoError(t, s.Create(b))
	err := s.Create(b)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestMemoryStore_CreateInvalid(t *testing.T) {
	s := NewMemoryStore()

	assert.Error(t, s.Create(nil))
	assert.Error(t, s.Create(&build.Build{}))
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, build.ErrNotFound)
}

func TestMemoryStore_List(t *testing.T) {
	s := NewMemoryStore()
	assert.Empty(t, s.List())

	b1 := newTestBuild()
	b2 := newTestBuild()
	require.NoError(t, s.Create(b1))
	require.NoError(t, s.Create(b2))

	all := s.List()
	require.Len(t, all, 2)

	ids := map[string]bool{all[0].ID: true, all[1].ID: true}
	assert.True(t, ids[b1.ID])
	assert.True(t, ids[b2.ID])
}

func TestMemoryStore_Update(t *testing.T) {
	s := NewMemoryStore()
	b := newTestBuild()
	require.NoError(t, s.Create(b))

	snap, err := s.Update(b.ID, func(rec *build.Build) error {
		return rec.Advance(build.PhaseResearching)
	})
	require.NoError(t, err)
	assert.Equal(t, build.PhaseStatusActive, snap.Record(build.PhaseResearching).Status)

	// The returned snapshot is detached from the stored record.
	snap.Record(build.PhaseResearching).Output = "tampered"
	got, err := s.Get(b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Record(build.PhaseResearching).Output)

	// Rejected transitions surface the transition error.
	_, err = s.Update(b.ID, func(rec *build.Build) error {
		return rec.Advance(build.PhaseResearching)
	})
	assert.ErrorIs(t, err, build.ErrInvalidTransition)

	_, err = s.Update("missing", func(rec *build.Build) error { return nil })
	assert.ErrorIs(t, err, build.ErrNotFound)
}

// TestMemoryStore_ConcurrentReaders hammers one build with a writer applying
// phase transitions and many readers polling. Run with -race; readers must
// only ever observe consistent snapshots (an active phase always has a start
// time, a complete phase always has both timestamps).
func TestMemoryStore_ConcurrentReaders(t *testing.T) {
	s := NewMemoryStore()
	b := newTestBuild()
	require.NoError(t, s.Create(b))

	done := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				snap, err := s.Get(b.ID)
				if err != nil {
					t.Error(err)
					return
				}
				for _, rec := range snap.Phases {
					switch rec.Status {
					case build.PhaseStatusActive:
						if rec.StartedAt == nil {
							t.Error("active phase without start time")
						}
					case build.PhaseStatusComplete:
						if rec.StartedAt == nil || rec.CompletedAt == nil {
							t.Error("complete phase missing timestamps")
						}
					}
				}
			}
		}()
	}

	for _, phase := range build.AllPhases() {
		_, err := s.Update(b.ID, func(rec *build.Build) error {
			return rec.Advance(phase)
		})
		require.NoError(t, err)
		_, err = s.Update(b.ID, func(rec *build.Build) error {
			return rec.CompletePhase(phase, "output")
		})
		require.NoError(t, err)
	}

	close(done)
	wg.Wait()

	final, err := s.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, build.StatusComplete, final.Status)
}
