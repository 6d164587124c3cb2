package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/profile"
)

// Commit identifies the repository state profiles were loaded from.
type Commit struct {
	SHA       string
	Author    string
	Timestamp time.Time
	Message   string
}

// GitSource reads profile documents from a git repository.
type GitSource struct {
	cfg    config.GitConfig
	repo   *gogit.Repository
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewGitSource validates cfg and creates a git source. Call Clone before use.
func NewGitSource(cfg config.GitConfig) (*GitSource, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "warden-profiles")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultGitTimeout
	}

	return &GitSource{
		cfg:    cfg,
		logger: slog.Default().With("component", "profile.git"),
	}, nil
}

func (g *GitSource) auth() transport.AuthMethod {
	if g.cfg.Token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "git", Password: g.cfg.Token}
}

// Clone clones the repository, or opens it when LocalPath already holds a clone.
func (g *GitSource) Clone(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := os.Stat(filepath.Join(g.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(g.cfg.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		g.repo = repo
		return nil
	}

	if err := os.MkdirAll(g.cfg.LocalPath, 0755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, g.cfg.LocalPath, false, &gogit.CloneOptions{
		URL:           g.cfg.Repository,
		Auth:          g.auth(),
		ReferenceName: plumbing.NewBranchReferenceName(g.cfg.Branch),
		SingleBranch:  true,
		Depth:         g.cfg.Depth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}

	g.repo = repo
	g.logger.Info("Profile repository cloned", "repository", g.cfg.Repository, "branch", g.cfg.Branch)
	return nil
}

// Pull fetches the tracked branch and reports whether HEAD moved.
func (g *GitSource) Pull(ctx context.Context) (changed bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.repo == nil {
		return false, fmt.Errorf("repository not initialized, call Clone() first")
	}

	before, err := g.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get HEAD: %w", err)
	}

	worktree, err := g.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(g.cfg.Branch),
		Auth:          g.auth(),
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return false, fmt.Errorf("failed to pull: %w", err)
	}

	after, err := g.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get new HEAD: %w", err)
	}
	return before.Hash() != after.Hash(), nil
}

// Head returns the commit currently checked out.
func (g *GitSource) Head() (*Commit, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.repo == nil {
		return nil, fmt.Errorf("repository not initialized, call Clone() first")
	}

	ref, err := g.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	return &Commit{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
		Message:   commit.Message,
	}, nil
}

// Load parses the profile documents at HEAD. Each profile's source records
// the commit it was read from.
func (g *GitSource) Load(opts profile.Options) ([]*profile.Profile, error) {
	head, err := g.Head()
	if err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	opts.Source = "git:" + head.SHA[:12]
	return LoadDirectory(filepath.Join(g.cfg.LocalPath, g.cfg.Path), opts)
}

// Poll pulls every interval and calls onChange when HEAD moves. It blocks
// until ctx is cancelled.
func (g *GitSource) Poll(ctx context.Context, interval time.Duration, onChange func() error) {
	if interval <= 0 {
		interval = g.cfg.PollInterval
	}
	if interval <= 0 {
		interval = config.DefaultGitPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := g.Pull(ctx)
			if err != nil {
				g.logger.Error("Profile repository pull failed", "error", err)
				continue
			}
			if !changed {
				continue
			}
			if err := onChange(); err != nil {
				g.logger.Error("Profile reload failed", "error", err)
			}
		}
	}
}
