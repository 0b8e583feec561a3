// Package pipeline drives the project build orchestration: a fixed sequence
// of phases executed asynchronously per build, each consuming the previous
// phase's output and calling one provider adapter.
//
// One goroutine owns one build's mutations for the build's whole life, and
// every mutation goes through the registry's Update so pollers always see a
// consistent snapshot. A failed phase stops the pipeline; the build stays in
// its terminal error state with no retry path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/paceworks/buildd/internal/build"
	"github.com/paceworks/buildd/internal/metrics"
	"github.com/paceworks/buildd/internal/provider/llm"
	"github.com/paceworks/buildd/internal/registry"
	"github.com/paceworks/buildd/internal/status"
)

// Searcher is the research provider contract.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Generator is the text-generation provider contract.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, tier llm.Tier) (string, error)
}

// Publisher is the repository-publishing provider contract.
type Publisher interface {
	CreateRepository(ctx context.Context, name, description string, private bool) (string, error)
	PublishFiles(ctx context.Context, repoName string, files map[string]string, commitMessage string) error
}

// ErrPublisherUnavailable indicates no publishing provider is configured.
// The deploy phase fails with it; there is no degraded mode for deployment.
var ErrPublisherUnavailable = errors.New("repository publisher not configured")

// Options configures an Executor.
type Options struct {
	Store    registry.Store
	Search   Searcher
	Generate Generator

	// Publish may be nil when no credentials are configured; builds then
	// fail at the deploy phase.
	Publish Publisher

	Reporter *status.Reporter
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	// PhaseTimeout bounds each phase's provider calls. Zero disables the
	// bound.
	PhaseTimeout time.Duration

	// RepoSettleDelay is the wait between repository creation and the first
	// push.
	RepoSettleDelay time.Duration

	// PrivateRepos controls visibility of published repositories.
	PrivateRepos bool
}

// Executor runs build pipelines.
type Executor struct {
	store    registry.Store
	search   Searcher
	generate Generator
	publish  Publisher
	reporter *status.Reporter
	metrics  *metrics.Metrics
	logger   *zap.Logger

	phaseTimeout time.Duration
	settleDelay  time.Duration
	privateRepos bool
}

// New creates an executor.
func New(opts Options) (*Executor, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Search == nil {
		return nil, errors.New("search provider is required")
	}
	if opts.Generate == nil {
		return nil, errors.New("generation provider is required")
	}
	if opts.Reporter == nil {
		return nil, errors.New("reporter is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Executor{
		store:        opts.Store,
		search:       opts.Search,
		generate:     opts.Generate,
		publish:      opts.Publish,
		reporter:     opts.Reporter,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		phaseTimeout: opts.PhaseTimeout,
		settleDelay:  opts.RepoSettleDelay,
		privateRepos: opts.PrivateRepos,
	}, nil
}

// StartBuild validates the config, registers a new build with all phases
// pending, and launches asynchronous execution. It returns the initial
// snapshot immediately; callers discover everything after this point by
// polling or notification.
//
// Validation errors are the only errors surfaced synchronously; everything
// that goes wrong inside the pipeline is recorded in build state instead.
func (e *Executor) StartBuild(cfg build.Config) (*build.Build, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := build.New(cfg)
	if err := e.store.Create(b); err != nil {
		return nil, fmt.Errorf("failed to register build: %w", err)
	}

	e.metrics.BuildStarted()
	e.logger.Info("build started",
		zap.String("build_id", b.ID),
		zap.String("project", cfg.ProjectName),
	)

	go e.run(b.ID)

	return b, nil
}

// run executes the pipeline for one build. It is the error boundary for the
// spawned task: provider failures land in build state, and a panic is
// converted into a failed build rather than crashing the process.
func (e *Executor) run(id string) {
	ctx := context.Background()
	logger := e.logger.With(zap.String("build_id", id))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked", zap.Any("panic", r))
			msg := fmt.Sprintf("internal error: %v", r)
			final, err := e.store.Update(id, func(b *build.Build) error {
				if active, ok := b.ActivePhase(); ok {
					return b.FailPhase(active, msg)
				}
				// A panic can land between transitions; fail the first
				// still-pending phase so the build reaches a terminal state.
				for _, phase := range build.AllPhases() {
					rec := b.Record(phase)
					if rec == nil || rec.Status != build.PhaseStatusPending {
						continue
					}
					if err := b.Advance(phase); err != nil {
						return err
					}
					return b.FailPhase(phase, msg)
				}
				return fmt.Errorf("build already terminal after panic")
			})
			if err != nil {
				logger.Error("failed to record panic", zap.Error(err))
				return
			}
			e.finish(ctx, final, logger)
		}
	}()

	if snap, err := e.store.Get(id); err == nil {
		// Best-effort start notification; delivery failures are ignored.
		e.reporter.BuildStarted(ctx, snap)
	}

	var final *build.Build
	for _, phase := range build.AllPhases() {
		snap, err := e.store.Update(id, func(b *build.Build) error {
			return b.Advance(phase)
		})
		if err != nil {
			logger.Error("failed to advance phase",
				zap.String("phase", string(phase)),
				zap.Error(err),
			)
			return
		}

		started := time.Now()
		output, repoURL, runErr := e.runPhase(ctx, phase, snap)
		e.metrics.PhaseObserved(string(phase), time.Since(started))

		if runErr != nil {
			logger.Warn("phase failed",
				zap.String("phase", string(phase)),
				zap.Error(runErr),
			)
			final, err = e.store.Update(id, func(b *build.Build) error {
				return b.FailPhase(phase, runErr.Error())
			})
			if err != nil {
				logger.Error("failed to record phase failure", zap.Error(err))
				return
			}
			break
		}

		final, err = e.store.Update(id, func(b *build.Build) error {
			if repoURL != "" {
				b.RepoURL = repoURL
			}
			return b.CompletePhase(phase, output)
		})
		if err != nil {
			logger.Error("failed to complete phase",
				zap.String("phase", string(phase)),
				zap.Error(err),
			)
			return
		}

		logger.Debug("phase complete", zap.String("phase", string(phase)))
	}

	e.finish(ctx, final, logger)
}

// finish records terminal metrics and sends the terminal notification,
// exactly once per build.
func (e *Executor) finish(ctx context.Context, final *build.Build, logger *zap.Logger) {
	if final == nil {
		return
	}

	switch final.Status {
	case build.StatusComplete:
		e.metrics.BuildCompleted()
		logger.Info("build complete", zap.String("repo_url", final.RepoURL))
	case build.StatusError:
		phase := ""
		if failed, ok := final.FailedPhase(); ok {
			phase = string(failed.Phase)
		}
		e.metrics.BuildFailed(phase)
		logger.Info("build failed", zap.String("phase", phase))
	}

	e.reporter.BuildFinished(ctx, final)
}
