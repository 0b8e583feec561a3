// Package build defines the project build data model and the phase state
// machine that governs it.
//
// A Build is the aggregate root for one end-to-end pipeline run. It owns an
// immutable Config and an ordered list of PhaseRecords, one per pipeline
// phase. All mutation goes through the transition methods in this package so
// every state change is auditable and the invariants (single active phase,
// strict phase ordering, terminal error state) hold by construction.
package build

import (
	"time"

	"github.com/google/uuid"
)

// Phase identifies one of the six fixed pipeline phases, in execution order.
type Phase string

const (
	// PhaseResearching gathers background material for the project.
	PhaseResearching Phase = "researching"

	// PhasePlanning produces a project plan from the research digest.
	PhasePlanning Phase = "planning"

	// PhaseCoding generates the codebase from the plan.
	PhaseCoding Phase = "coding"

	// PhaseTesting is a placeholder stage; it succeeds without doing work.
	PhaseTesting Phase = "testing"

	// PhaseDeploying publishes the generated files to a remote repository.
	PhaseDeploying Phase = "deploying"

	// PhaseComplete is the synthetic terminal phase; completing it flips the
	// aggregate build status to complete.
	PhaseComplete Phase = "complete"
)

// AllPhases returns every phase in execution order.
func AllPhases() []Phase {
	return []Phase{
		PhaseResearching,
		PhasePlanning,
		PhaseCoding,
		PhaseTesting,
		PhaseDeploying,
		PhaseComplete,
	}
}

// PhaseStatus represents the lifecycle state of a single phase.
type PhaseStatus string

const (
	PhaseStatusPending  PhaseStatus = "pending"
	PhaseStatusActive   PhaseStatus = "active"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusError    PhaseStatus = "error"
)

// Status represents the aggregate lifecycle state of a build.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Config is the immutable input for one build.
type Config struct {
	ProjectName string   `json:"project_name"`
	Description string   `json:"description"`
	TechStack   []string `json:"tech_stack,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// Validate checks the required fields.
func (c Config) Validate() error {
	if c.ProjectName == "" {
		return ErrProjectNameRequired
	}
	if c.Description == "" {
		return ErrDescriptionRequired
	}
	return nil
}

// PhaseRecord tracks the state and output of one phase within a build.
type PhaseRecord struct {
	Phase       Phase       `json:"phase"`
	Status      PhaseStatus `json:"status"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Output      string      `json:"output,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Build is the aggregate record for one pipeline run.
type Build struct {
	ID        string        `json:"id"`
	Config    Config        `json:"config"`
	Phases    []PhaseRecord `json:"phases"`
	Status    Status        `json:"status"`
	RepoURL   string        `json:"repo_url,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// New creates a running build with a fresh ID and all phases pending.
// The config is not validated here; callers validate before allocation.
func New(cfg Config) *Build {
	now := time.Now().UTC()

	phases := make([]PhaseRecord, 0, len(AllPhases()))
	for _, p := range AllPhases() {
		phases = append(phases, PhaseRecord{Phase: p, Status: PhaseStatusPending})
	}

	return &Build{
		ID:        uuid.New().String(),
		Config:    cfg,
		Phases:    phases,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy. Snapshots handed to concurrent readers must
// never share mutable state with the record owned by the store.
func (b *Build) Clone() *Build {
	c := *b

	c.Phases = make([]PhaseRecord, len(b.Phases))
	copy(c.Phases, b.Phases)
	for i := range c.Phases {
		if b.Phases[i].StartedAt != nil {
			t := *b.Phases[i].StartedAt
			c.Phases[i].StartedAt = &t
		}
		if b.Phases[i].CompletedAt != nil {
			t := *b.Phases[i].CompletedAt
			c.Phases[i].CompletedAt = &t
		}
	}

	if b.Config.TechStack != nil {
		c.Config.TechStack = append([]string(nil), b.Config.TechStack...)
	}
	if b.Config.Features != nil {
		c.Config.Features = append([]string(nil), b.Config.Features...)
	}

	return &c
}

// Record returns the phase record for the named phase, or nil if unknown.
func (b *Build) Record(phase Phase) *PhaseRecord {
	for i := range b.Phases {
		if b.Phases[i].Phase == phase {
			return &b.Phases[i]
		}
	}
	return nil
}

// ActivePhase returns the currently active phase, if any.
func (b *Build) ActivePhase() (Phase, bool) {
	for i := range b.Phases {
		if b.Phases[i].Status == PhaseStatusActive {
			return b.Phases[i].Phase, true
		}
	}
	return "", false
}

// FailedPhase returns the phase that errored, if any.
func (b *Build) FailedPhase() (*PhaseRecord, bool) {
	for i := range b.Phases {
		if b.Phases[i].Status == PhaseStatusError {
			return &b.Phases[i], true
		}
	}
	return nil, false
}

// CompletedCount returns the number of phases that have completed.
func (b *Build) CompletedCount() int {
	n := 0
	for i := range b.Phases {
		if b.Phases[i].Status == PhaseStatusComplete {
			n++
		}
	}
	return n
}
