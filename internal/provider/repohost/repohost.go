// Package repohost publishes generated project files to GitHub.
//
// Publishing is a two-step sequence: create the repository (auto-initialized
// so a default branch exists), then push all files as a single commit through
// the Git data API (blobs, tree, commit, ref update).
package repohost

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/paceworks/buildd/internal/config"
)

// ErrNoToken indicates publishing credentials are not configured. Unlike the
// research and generation providers, deployment has no degraded mode.
var ErrNoToken = errors.New("github token not configured")

// defaultBranch is the branch auto-init creates and commits land on.
const defaultBranch = "main"

// fileMode is the git mode for regular blobs.
const fileMode = "100644"

// blobRate limits blob creation during a push to stay under the GitHub
// secondary rate limits.
const blobRate = rate.Limit(5)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a repository name from a project name: lowercased, runs of
// non-alphanumeric characters collapsed into single hyphens, leading and
// trailing hyphens trimmed.
func Slug(projectName string) string {
	return strings.Trim(nonAlphanumeric.ReplaceAllString(strings.ToLower(projectName), "-"), "-")
}

// Client publishes repositories on behalf of one owner.
type Client struct {
	gh      *github.Client
	owner   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a publishing client. It fails if no token is configured.
func New(ctx context.Context, cfg config.GitHubConfig, logger *zap.Logger) (*Client, error) {
	if !cfg.Token.IsSet() {
		return nil, ErrNoToken
	}
	if cfg.Owner == "" {
		return nil, errors.New("github owner is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token.Value()})
	tc := oauth2.NewClient(ctx, ts)

	return &Client{
		gh:      github.NewClient(tc),
		owner:   cfg.Owner,
		limiter: rate.NewLimiter(blobRate, 1),
		logger:  logger,
	}, nil
}

// CreateRepository creates a new auto-initialized repository and returns its
// HTML URL.
func (c *Client) CreateRepository(ctx context.Context, name, description string, private bool) (string, error) {
	repo := &github.Repository{
		Name:        github.String(name),
		Description: github.String(description),
		Private:     github.Bool(private),
		AutoInit:    github.Bool(true),
	}

	created, _, err := c.gh.Repositories.Create(ctx, "", repo)
	if err != nil {
		return "", fmt.Errorf("failed to create repository %s: %w", name, err)
	}

	c.logger.Info("repository created",
		zap.String("repo", name),
		zap.String("url", created.GetHTMLURL()),
	)
	return created.GetHTMLURL(), nil
}

// PublishFiles pushes all files as one commit on the default branch.
func (c *Client) PublishFiles(ctx context.Context, repoName string, files map[string]string, commitMessage string) error {
	if len(files) == 0 {
		return nil
	}

	ref, _, err := c.gh.Git.GetRef(ctx, c.owner, repoName, "heads/"+defaultBranch)
	if err != nil {
		return fmt.Errorf("failed to get %s ref: %w", defaultBranch, err)
	}
	parentSHA := ref.GetObject().GetSHA()

	parent, _, err := c.gh.Git.GetCommit(ctx, c.owner, repoName, parentSHA)
	if err != nil {
		return fmt.Errorf("failed to get base commit: %w", err)
	}

	entries := make([]*github.TreeEntry, 0, len(files))
	for path, content := range files {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("blob rate limiter: %w", err)
		}

		blob, _, err := c.gh.Git.CreateBlob(ctx, c.owner, repoName, &github.Blob{
			Content:  github.String(content),
			Encoding: github.String("utf-8"),
		})
		if err != nil {
			return fmt.Errorf("failed to create blob for %s: %w", path, err)
		}

		entries = append(entries, &github.TreeEntry{
			Path: github.String(path),
			Mode: github.String(fileMode),
			Type: github.String("blob"),
			SHA:  blob.SHA,
		})
	}

	tree, _, err := c.gh.Git.CreateTree(ctx, c.owner, repoName, parent.GetTree().GetSHA(), entries)
	if err != nil {
		return fmt.Errorf("failed to create tree: %w", err)
	}

	commit, _, err := c.gh.Git.CreateCommit(ctx, c.owner, repoName, &github.Commit{
		Message: github.String(commitMessage),
		Tree:    tree,
		Parents: []*github.Commit{{SHA: github.String(parentSHA)}},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create commit: %w", err)
	}

	_, _, err = c.gh.Git.UpdateRef(ctx, c.owner, repoName, &github.Reference{
		Ref:    github.String("refs/heads/" + defaultBranch),
		Object: &github.GitObject{SHA: commit.SHA},
	}, false)
	if err != nil {
		return fmt.Errorf("failed to update ref: %w", err)
	}

	c.logger.Info("files published",
		zap.String("repo", repoName),
		zap.Int("files", len(files)),
	)
	return nil
}
