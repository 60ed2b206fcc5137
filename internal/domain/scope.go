package domain

import "fmt"

// Scope selects where a persisted setting lives
type Scope string

const (
	ScopeGlobal    Scope = "global"
	ScopeWorkspace Scope = "workspace"
)

// ParseScope validates a scope name
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeGlobal, ScopeWorkspace:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q (want %q or %q)", s, ScopeGlobal, ScopeWorkspace)
}

func (s Scope) String() string {
	return string(s)
}
