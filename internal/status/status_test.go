package status

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paceworks/buildd/internal/build"
)

// fakeNotifier records every notification and returns a configured result.
type fakeNotifier struct {
	delivered bool
	messages  []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) bool {
	f.messages = append(f.messages, text)
	return f.delivered
}

func newTestBuild(t *testing.T) *build.Build {
	t.Helper()
	return build.New(build.Config{
		ProjectName: "demo",
		Description: "a demo project",
	})
}

func TestProgress(t *testing.T) {
	b := newTestBuild(t)
	assert.Equal(t, 0, Progress(b))

	// Progress follows completed count: round(100 * n / 6).
	want := []int{17, 33, 50, 67, 83, 100}
	prev := 0
	for i, phase := range build.AllPhases() {
		require.NoError(t, b.Advance(phase))
		assert.Equal(t, prev, Progress(b), "active phase must not count")

		require.NoError(t, b.CompletePhase(phase, ""))
		got := Progress(b)
		assert.Equal(t, want[i], got)
		assert.GreaterOrEqual(t, got, prev, "progress must be monotonic")
		prev = got
	}
}

func TestProgress_StopsAtFailure(t *testing.T) {
	b := newTestBuild(t)
	require.NoError(t, b.Advance(build.PhaseResearching))
	require.NoError(t, b.CompletePhase(build.PhaseResearching, ""))
	require.NoError(t, b.Advance(build.PhasePlanning))
	require.NoError(t, b.FailPhase(build.PhasePlanning, "boom"))

	assert.Equal(t, 17, Progress(b))
}

func TestReporter_BuildStarted(t *testing.T) {
	notifier := &fakeNotifier{delivered: true}
	r := NewReporter(notifier, zap.NewNop())

	r.BuildStarted(context.Background(), newTestBuild(t))

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Project Update: demo")
	assert.Contains(t, notifier.messages[0], "started")
}

func TestReporter_BuildFinished_Complete(t *testing.T) {
	notifier := &fakeNotifier{delivered: true}
	r := NewReporter(notifier, zap.NewNop())

	b := newTestBuild(t)
	for _, phase := range build.AllPhases() {
		require.NoError(t, b.Advance(phase))
		require.NoError(t, b.CompletePhase(phase, ""))
	}
	b.RepoURL = "https://github.com/acme/demo"

	r.BuildFinished(context.Background(), b)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Build Complete: demo")
	assert.Contains(t, notifier.messages[0], "https://github.com/acme/demo")
}

func TestReporter_BuildFinished_Failed(t *testing.T) {
	notifier := &fakeNotifier{delivered: true}
	r := NewReporter(notifier, zap.NewNop())

	b := newTestBuild(t)
	require.NoError(t, b.Advance(build.PhaseResearching))
	require.NoError(t, b.FailPhase(build.PhaseResearching, "search exploded"))

	r.BuildFinished(context.Background(), b)

	require.Len(t, notifier.messages, 1)
	msg := notifier.messages[0]
	assert.Contains(t, msg, "Project Update: demo")
	assert.Contains(t, msg, "Failed phase: researching")
	assert.Contains(t, msg, "search exploded")
	assert.True(t, strings.Contains(msg, "`error`"), "message should carry the error status: %q", msg)
}

func TestReporter_SwallowsDeliveryFailure(t *testing.T) {
	notifier := &fakeNotifier{delivered: false}
	r := NewReporter(notifier, zap.NewNop())

	// Must not panic or propagate anything.
	r.BuildStarted(context.Background(), newTestBuild(t))
	r.BuildFinished(context.Background(), newTestBuild(t))

	assert.Len(t, notifier.messages, 2)
}

func TestReporter_NilNotifier(t *testing.T) {
	r := NewReporter(nil, nil)

	r.BuildStarted(context.Background(), newTestBuild(t))
	r.BuildFinished(context.Background(), newTestBuild(t))
}
