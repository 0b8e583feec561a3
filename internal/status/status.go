// Package status computes human-readable build progress and pushes
// notifications through the configured chat sink.
package status

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/paceworks/buildd/internal/build"
)

// Notifier delivers a chat notification. Implementations report delivery
// as a boolean and never return errors; a failed delivery must not affect
// build state.
type Notifier interface {
	Notify(ctx context.Context, text string) bool
}

// Progress returns the build's completion percentage, rounded.
func Progress(b *build.Build) int {
	if len(b.Phases) == 0 {
		return 0
	}
	return int(math.Round(float64(b.CompletedCount()) / float64(len(b.Phases)) * 100))
}

// Reporter formats and sends build lifecycle notifications.
type Reporter struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewReporter creates a reporter. A nil notifier disables delivery.
func NewReporter(notifier Notifier, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{notifier: notifier, logger: logger}
}

// BuildStarted sends a best-effort start notification. Failures are ignored.
func (r *Reporter) BuildStarted(ctx context.Context, b *build.Build) {
	text := strings.Join([]string{
		fmt.Sprintf("🔄 *Project Update: %s*", b.Config.ProjectName),
		"Status: `started`",
	}, "\n")
	r.send(ctx, b.ID, text)
}

// BuildFinished sends the terminal notification for a build, choosing the
// complete or failed variant from the build's final state. The executor calls
// this exactly once per build.
func (r *Reporter) BuildFinished(ctx context.Context, b *build.Build) {
	if b.Status == build.StatusComplete && b.RepoURL != "" {
		text := strings.Join([]string{
			fmt.Sprintf("🚀 *Build Complete: %s*", b.Config.ProjectName),
			"",
			"Your project is live and pushed to its new repository.",
			fmt.Sprintf("📦 %s", b.RepoURL),
		}, "\n")
		r.send(ctx, b.ID, text)
		return
	}

	icon := "🔄"
	switch b.Status {
	case build.StatusError:
		icon = "🔴"
	case build.StatusComplete:
		icon = "✅"
	}
	lines := []string{
		fmt.Sprintf("%s *Project Update: %s*", icon, b.Config.ProjectName),
		fmt.Sprintf("Status: `%s`", b.Status),
	}
	if b.RepoURL != "" {
		lines = append(lines, fmt.Sprintf("Repo: %s", b.RepoURL))
	}
	if failed, ok := b.FailedPhase(); ok {
		lines = append(lines, fmt.Sprintf("Failed phase: %s", failed.Phase))
		if failed.Error != "" {
			lines = append(lines, fmt.Sprintf("Error: %s", failed.Error))
		}
	}
	r.send(ctx, b.ID, strings.Join(lines, "\n"))
}

func (r *Reporter) send(ctx context.Context, buildID, text string) {
	if r.notifier == nil {
		return
	}
	if !r.notifier.Notify(ctx, text) {
		r.logger.Warn("notification delivery failed", zap.String("build_id", buildID))
	}
}
