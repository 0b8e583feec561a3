package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paceworks/buildd/internal/build"
	"github.com/paceworks/buildd/internal/provider/llm"
	"github.com/paceworks/buildd/internal/provider/repohost"
)

const (
	planningSystemPrompt = "You are an expert project architect. Create a detailed project plan with file structure, dependencies, and implementation steps."

	codingSystemPrompt = "You are an expert full-stack developer. Generate production-ready code based on the project plan. Return code as a JSON object where keys are file paths and values are file contents."

	researchSuffix = "best practices architecture"

	testingPlaceholder = "Testing phase placeholder - no tests run yet."

	commitMessage = "feat: initial project scaffold"
)

// runPhase executes one phase against its provider and returns the phase
// output plus, for the deploy phase, the repository URL. Provider failures
// come back as errors and are converted to phase state by the caller.
func (e *Executor) runPhase(ctx context.Context, phase build.Phase, snap *build.Build) (output, repoURL string, err error) {
	if e.phaseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.phaseTimeout)
		defer cancel()
	}

	switch phase {
	case build.PhaseResearching:
		output, err = e.runResearch(ctx, snap)
	case build.PhasePlanning:
		output, err = e.runPlanning(ctx, snap)
	case build.PhaseCoding:
		output, err = e.runCoding(ctx, snap)
	case build.PhaseTesting:
		// Placeholder stage: kept so the phase count and progress arithmetic
		// stay stable at six phases.
		output = testingPlaceholder
	case build.PhaseDeploying:
		output, repoURL, err = e.runDeploy(ctx, snap)
	case build.PhaseComplete:
		// Synthetic terminal phase, no external call.
	default:
		err = fmt.Errorf("%w: %s", build.ErrUnknownPhase, phase)
	}
	return output, repoURL, err
}

// runResearch queries the research provider with the project config plus a
// fixed best-practices suffix.
func (e *Executor) runResearch(ctx context.Context, snap *build.Build) (string, error) {
	cfg := snap.Config
	parts := append([]string{cfg.ProjectName, cfg.Description}, cfg.TechStack...)
	parts = append(parts, researchSuffix)
	return e.search.Search(ctx, strings.Join(parts, " "))
}

// runPlanning asks the reasoning-tier model for a project plan, with the
// research digest as context.
func (e *Executor) runPlanning(ctx context.Context, snap *build.Build) (string, error) {
	research := prevOutput(snap, build.PhasePlanning)
	if research == "" {
		research = "No research available."
	}

	lines := configLines(snap.Config)
	lines = append(lines,
		"",
		"Research context:\n"+research,
		"",
		"Provide: 1) File structure  2) Dependencies  3) Step-by-step implementation plan  4) Key architecture decisions",
	)

	return e.generate.Complete(ctx, planningSystemPrompt, strings.Join(lines, "\n"), llm.TierReasoner)
}

// runCoding asks the chat-tier model for the full codebase as a path to
// content JSON object, with the plan as context.
func (e *Executor) runCoding(ctx context.Context, snap *build.Build) (string, error) {
	plan := prevOutput(snap, build.PhaseCoding)
	if plan == "" {
		plan = "No plan available."
	}

	lines := configLines(snap.Config)
	lines = append(lines,
		"",
		"Project Plan:\n"+plan,
		"",
		`Generate the complete codebase. Return ONLY a JSON object: { "path/to/file": "file contents", ... }`,
	)

	return e.generate.Complete(ctx, codingSystemPrompt, strings.Join(lines, "\n"), llm.TierChat)
}

// runDeploy creates the remote repository and pushes the generated files as
// one commit. The repository name is the slug of the project name.
func (e *Executor) runDeploy(ctx context.Context, snap *build.Build) (output, repoURL string, err error) {
	if e.publish == nil {
		return "", "", ErrPublisherUnavailable
	}

	cfg := snap.Config

	// The testing phase is a pass-through placeholder, so the files to push
	// come from the coding phase rather than the direct predecessor.
	var codingOutput string
	if rec := snap.Record(build.PhaseCoding); rec != nil {
		codingOutput = rec.Output
	}
	files := parseGeneratedFiles(codingOutput, cfg)
	slug := repohost.Slug(cfg.ProjectName)

	repoURL, err = e.publish.CreateRepository(ctx, slug, cfg.Description, e.privateRepos)
	if err != nil {
		return "", "", err
	}

	// Give the remote a moment to finish initializing the default branch
	// before pushing against it.
	if e.settleDelay > 0 {
		timer := time.NewTimer(e.settleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", "", ctx.Err()
		case <-timer.C:
		}
	}

	if err := e.publish.PublishFiles(ctx, slug, files, commitMessage); err != nil {
		return "", "", err
	}

	return "Repository created: " + repoURL, repoURL, nil
}

// prevOutput returns the output of the phase immediately before the given
// one. Phases only ever see their direct predecessor's output.
func prevOutput(snap *build.Build, phase build.Phase) string {
	phases := build.AllPhases()
	for i, p := range phases {
		if p == phase {
			if i == 0 {
				return ""
			}
			if rec := snap.Record(phases[i-1]); rec != nil {
				return rec.Output
			}
			return ""
		}
	}
	return ""
}

// configLines renders the build config as prompt header lines.
func configLines(cfg build.Config) []string {
	lines := []string{
		"Project: " + cfg.ProjectName,
		"Description: " + cfg.Description,
	}
	if len(cfg.TechStack) > 0 {
		lines = append(lines, "Tech Stack: "+strings.Join(cfg.TechStack, ", "))
	}
	if len(cfg.Features) > 0 {
		lines = append(lines, "Features: "+strings.Join(cfg.Features, ", "))
	}
	return lines
}

// parseGeneratedFiles decodes the coding phase output as a path to content
// mapping. When the output is not valid JSON the deploy still proceeds with
// a single generated README.
func parseGeneratedFiles(codingOutput string, cfg build.Config) map[string]string {
	var files map[string]string
	if err := json.Unmarshal([]byte(codingOutput), &files); err != nil || files == nil {
		return map[string]string{
			"README.md": fmt.Sprintf("# %s\n\n%s\n", cfg.ProjectName, cfg.Description),
		}
	}
	return files
}
