package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidThreshold indicates user input that is not a non-negative integer
	ErrInvalidThreshold = errors.New("threshold must be a non-negative integer")

	// ErrNotGitRepository indicates the workspace path is not inside a git work tree
	ErrNotGitRepository = errors.New("not a git repository")
)

// ParseError is returned when diff text cannot be interpreted
type ParseError struct {
	File string // Empty when the failure is not tied to a file
	Err  error
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parsing diff for %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("parsing diff: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// GitError describes a failed git invocation
type GitError struct {
	Operation string
	Args      []string
	Output    string
	Err       error
}

func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s failed", e.Operation)
	if e.Output != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Output)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GitError) Unwrap() error {
	return e.Err
}
