package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/juparave/commitreminder/internal/domain"
	"github.com/juparave/commitreminder/internal/reminder"
)

// Compile-time interface satisfaction check.
var _ reminder.StateStore = (*StateRepo)(nil)

// StateRepo is the SQLite implementation of reminder.StateStore.
// Global entries are stored with an empty workspace.
type StateRepo struct {
	db *DB
}

// NewStateRepo creates a new StateRepo backed by the given DB.
func NewStateRepo(db *DB) *StateRepo {
	return &StateRepo{db: db}
}

// Get returns the value stored under key and whether it exists.
func (r *StateRepo) Get(ctx context.Context, scope domain.Scope, workspace, key string) (string, bool, error) {
	const query = `SELECT value FROM state WHERE scope = ? AND workspace = ? AND key = ?`

	var value string
	err := r.db.Reader.QueryRowContext(ctx, query, string(scope), normalize(scope, workspace), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s state %q: %w", scope, key, err)
	}
	return value, true, nil
}

// Set upserts value under key. Last write wins.
func (r *StateRepo) Set(ctx context.Context, scope domain.Scope, workspace, key, value string) error {
	const query = `
		INSERT INTO state (scope, workspace, key, value, updated_at)
		VALUES (?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT (scope, workspace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query, string(scope), normalize(scope, workspace), key, value)
	if err != nil {
		return fmt.Errorf("set %s state %q: %w", scope, key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *StateRepo) Delete(ctx context.Context, scope domain.Scope, workspace, key string) error {
	const query = `DELETE FROM state WHERE scope = ? AND workspace = ? AND key = ?`

	_, err := r.db.Writer.ExecContext(ctx, query, string(scope), normalize(scope, workspace), key)
	if err != nil {
		return fmt.Errorf("delete %s state %q: %w", scope, key, err)
	}
	return nil
}

func normalize(scope domain.Scope, workspace string) string {
	if scope == domain.ScopeGlobal {
		return ""
	}
	return workspace
}
