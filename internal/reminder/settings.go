package reminder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/juparave/commitreminder/internal/domain"
)

const (
	keyThreshold  = "threshold"
	keyMutedUntil = "muted_until"
)

// StateStore is scoped key-value persistence. Global entries ignore workspace.
type StateStore interface {
	Get(ctx context.Context, scope domain.Scope, workspace, key string) (string, bool, error)
	Set(ctx context.Context, scope domain.Scope, workspace, key, value string) error
	Delete(ctx context.Context, scope domain.Scope, workspace, key string) error
}

// Settings reads and writes thresholds and mute state through a StateStore
type Settings struct {
	store StateStore
}

// NewSettings creates Settings backed by store
func NewSettings(store StateStore) *Settings {
	return &Settings{store: store}
}

// LoadThresholds returns the stored overrides for workspace
func (s *Settings) LoadThresholds(ctx context.Context, workspace string) (ThresholdConfig, error) {
	var cfg ThresholdConfig

	ws, err := s.loadInt(ctx, domain.ScopeWorkspace, workspace, keyThreshold)
	if err != nil {
		return cfg, err
	}
	global, err := s.loadInt(ctx, domain.ScopeGlobal, "", keyThreshold)
	if err != nil {
		return cfg, err
	}

	cfg.Workspace = ws
	cfg.Global = global
	return cfg, nil
}

// ResolveThreshold returns the effective threshold for workspace
func (s *Settings) ResolveThreshold(ctx context.Context, workspace string, def int) (int, error) {
	cfg, err := s.LoadThresholds(ctx, workspace)
	if err != nil {
		return 0, err
	}
	return cfg.Resolve(def), nil
}

// SetThreshold validates raw and stores it in scope. Invalid input leaves
// the stored value untouched. Returns the new effective threshold.
func (s *Settings) SetThreshold(ctx context.Context, scope domain.Scope, workspace, raw string, def int) (int, error) {
	n, err := ParseThreshold(raw)
	if err != nil {
		return 0, err
	}

	if err := s.store.Set(ctx, scope, scopedWorkspace(scope, workspace), keyThreshold, strconv.Itoa(n)); err != nil {
		return 0, fmt.Errorf("storing %s threshold: %w", scope, err)
	}

	return s.ResolveThreshold(ctx, workspace, def)
}

// ClearThreshold removes the override in scope
func (s *Settings) ClearThreshold(ctx context.Context, scope domain.Scope, workspace string) error {
	if err := s.store.Delete(ctx, scope, scopedWorkspace(scope, workspace), keyThreshold); err != nil {
		return fmt.Errorf("clearing %s threshold: %w", scope, err)
	}
	return nil
}

// LoadMute returns the stored mute expiry, or nil when none is stored
func (s *Settings) LoadMute(ctx context.Context, workspace string) (*time.Time, error) {
	v, ok, err := s.store.Get(ctx, domain.ScopeWorkspace, workspace, keyMutedUntil)
	if err != nil {
		return nil, fmt.Errorf("loading mute state: %w", err)
	}
	if !ok {
		return nil, nil
	}

	until, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("stored mute expiry %q: %w", v, err)
	}
	return &until, nil
}

// SaveMute stores the mute expiry for workspace
func (s *Settings) SaveMute(ctx context.Context, workspace string, until time.Time) error {
	v := until.UTC().Format(time.RFC3339Nano)
	if err := s.store.Set(ctx, domain.ScopeWorkspace, workspace, keyMutedUntil, v); err != nil {
		return fmt.Errorf("saving mute state: %w", err)
	}
	return nil
}

// ClearMute removes any mute for workspace
func (s *Settings) ClearMute(ctx context.Context, workspace string) error {
	if err := s.store.Delete(ctx, domain.ScopeWorkspace, workspace, keyMutedUntil); err != nil {
		return fmt.Errorf("clearing mute state: %w", err)
	}
	return nil
}

func (s *Settings) loadInt(ctx context.Context, scope domain.Scope, workspace, key string) (*int, error) {
	v, ok, err := s.store.Get(ctx, scope, scopedWorkspace(scope, workspace), key)
	if err != nil {
		return nil, fmt.Errorf("loading %s %s: %w", scope, key, err)
	}
	if !ok {
		return nil, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		// A corrupt value is treated as unset
		return nil, nil
	}
	return &n, nil
}

func scopedWorkspace(scope domain.Scope, workspace string) string {
	if scope == domain.ScopeGlobal {
		return ""
	}
	return workspace
}
