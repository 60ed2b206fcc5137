package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/juparave/commitreminder/internal/domain"
	"github.com/juparave/commitreminder/internal/logging"
)

// emptyTreeHash is git's well-known hash of the empty tree, used to diff
// repositories that have no commits yet.
const emptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Client reads the state of a git workspace
type Client struct {
	runner Runner
	logger logging.Logger
}

// NewClient creates a new Git client using the given git binary
func NewClient(gitBin string, logger logging.Logger) *Client {
	return NewClientWithRunner(NewExecRunner(gitBin), logger)
}

// NewClientWithRunner creates a Git client with a custom runner
func NewClientWithRunner(r Runner, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{runner: r, logger: logger}
}

// WorkingDiff returns the unified diff of all uncommitted changes (staged
// and unstaged) against HEAD. Untracked files are not included.
func (c *Client) WorkingDiff(ctx context.Context, root string) (string, error) {
	out, err := c.runner.Run(ctx, root, diffArgs("HEAD")...)
	if err == nil {
		return out, nil
	}

	if !isMissingHead(err) {
		return "", fmt.Errorf("diffing working tree: %w", err)
	}

	c.logger.Debug("no HEAD yet, diffing against the empty tree", "root", root)
	out, err = c.runner.Run(ctx, root, diffArgs(emptyTreeHash)...)
	if err != nil {
		return "", fmt.Errorf("diffing working tree against empty tree: %w", err)
	}
	return out, nil
}

func diffArgs(base string) []string {
	return []string{"diff", base, "--no-color", "--no-ext-diff", "--"}
}

func isMissingHead(err error) bool {
	var gitErr *domain.GitError
	if !errors.As(err, &gitErr) {
		return false
	}
	out := gitErr.Output
	return strings.Contains(out, "unknown revision") ||
		strings.Contains(out, "bad revision 'HEAD'") ||
		strings.Contains(out, "ambiguous argument 'HEAD'")
}

// RepoRoot returns the top-level directory of the work tree containing path
func (c *Client) RepoRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}

	repo, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%s: %w", abs, domain.ErrNotGitRepository)
		}
		return "", fmt.Errorf("opening repository at %s: %w", abs, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%s has no work tree: %w", abs, domain.ErrNotGitRepository)
	}

	return wt.Filesystem.Root(), nil
}

// CurrentBranch returns the short branch name, the commit hash when HEAD is
// detached, or an empty string when the repository has no commits.
func (c *Client) CurrentBranch(root string) (string, error) {
	repo, err := gogit.PlainOpen(root)
	if err != nil {
		return "", fmt.Errorf("opening repository at %s: %w", root, err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading HEAD: %w", err)
	}

	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}
