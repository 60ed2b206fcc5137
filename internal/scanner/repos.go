package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/juparave/commitreminder/internal/logging"
)

// ExcludedDirs are directories to skip during scanning
var ExcludedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// Scanner finds Git workspaces in a directory tree
type Scanner struct {
	logger logging.Logger
}

// New creates a new Scanner
func New(logger logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Scanner{logger: logger}
}

// FindRepositories recursively finds all Git workspaces under rootPath.
// Nested repositories are found too; .git may be a directory or a worktree file.
func (s *Scanner) FindRepositories(rootPath string) ([]string, error) {
	var repos []string

	err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			s.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}

		name := d.Name()

		if name == ".git" {
			repos = append(repos, filepath.Dir(path))
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip hidden and excluded directories
		if d.IsDir() && path != rootPath && (strings.HasPrefix(name, ".") || ExcludedDirs[name]) {
			return filepath.SkipDir
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return repos, nil
}

// GetRepoName extracts the repository name from its path
func GetRepoName(repoPath string) string {
	return filepath.Base(repoPath)
}
