package build

import (
	"fmt"
	"time"
)

// Advance marks a pending phase active and stamps its start time.
//
// The transition is rejected unless the build is still running, the phase is
// pending, every strictly-earlier phase has completed, and no other phase is
// currently active. Enforcing the ordering here means the executor cannot
// skip ahead even by accident.
func (b *Build) Advance(phase Phase) error {
	rec := b.Record(phase)
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
	}
	if b.Status != StatusRunning {
		return fmt.Errorf("%w: build is %s", ErrInvalidTransition, b.Status)
	}
	if rec.Status != PhaseStatusPending {
		return fmt.Errorf("%w: phase %s is %s, want pending", ErrInvalidTransition, phase, rec.Status)
	}
	if active, ok := b.ActivePhase(); ok {
		return fmt.Errorf("%w: phase %s is still active", ErrInvalidTransition, active)
	}
	for i := range b.Phases {
		if b.Phases[i].Phase == phase {
			break
		}
		if b.Phases[i].Status != PhaseStatusComplete {
			return fmt.Errorf("%w: earlier phase %s is %s", ErrInvalidTransition, b.Phases[i].Phase, b.Phases[i].Status)
		}
	}

	now := time.Now().UTC()
	rec.Status = PhaseStatusActive
	rec.StartedAt = &now
	b.UpdatedAt = now
	return nil
}

// CompletePhase marks an active phase complete, stores its output, and stamps
// the completion time. Completing the terminal phase flips the aggregate
// status to complete.
func (b *Build) CompletePhase(phase Phase, output string) error {
	rec := b.Record(phase)
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
	}
	if rec.Status != PhaseStatusActive {
		return fmt.Errorf("%w: phase %s is %s, want active", ErrInvalidTransition, phase, rec.Status)
	}

	now := time.Now().UTC()
	rec.Status = PhaseStatusComplete
	rec.CompletedAt = &now
	if output != "" {
		rec.Output = output
	}
	if phase == PhaseComplete {
		b.Status = StatusComplete
	}
	b.UpdatedAt = now
	return nil
}

// FailPhase marks an active phase as errored and puts the whole build into
// its terminal error state. Phases that never started stay pending forever.
func (b *Build) FailPhase(phase Phase, message string) error {
	rec := b.Record(phase)
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
	}
	if rec.Status != PhaseStatusActive {
		return fmt.Errorf("%w: phase %s is %s, want active", ErrInvalidTransition, phase, rec.Status)
	}

	rec.Status = PhaseStatusError
	rec.Error = message
	b.Status = StatusError
	b.UpdatedAt = time.Now().UTC()
	return nil
}
