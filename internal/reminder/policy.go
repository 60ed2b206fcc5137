package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/juparave/commitreminder/internal/domain"
)

// MuteDuration is how long a mute suppresses reminders
const MuteDuration = 5 * time.Minute

// Policy decides whether a reminder fires. It is built fresh for every check
// from the resolved threshold and the stored mute expiry.
type Policy struct {
	Threshold  int
	MutedUntil *time.Time
}

// ShouldRemind reports whether stat warrants a reminder at now.
// A mute suppresses reminders until its exact expiry instant.
func (p *Policy) ShouldRemind(stat domain.DiffStat, now time.Time) bool {
	if p.MutedUntil != nil && now.Before(*p.MutedUntil) {
		return false
	}
	return stat.Total() > p.Threshold
}

// Mute suppresses reminders for MuteDuration from now, replacing any earlier expiry
func (p *Policy) Mute(now time.Time) time.Time {
	until := now.Add(MuteDuration)
	p.MutedUntil = &until
	return until
}

// ThresholdConfig holds the stored threshold overrides. Nil means unset.
type ThresholdConfig struct {
	Workspace *int
	Global    *int
}

// Resolve returns the workspace value, else the global value, else def.
// A workspace value of 0 is a real override.
func (c ThresholdConfig) Resolve(def int) int {
	if c.Workspace != nil {
		return *c.Workspace
	}
	if c.Global != nil {
		return *c.Global
	}
	return def
}

// ParseThreshold converts user input to a threshold. Only plain decimal
// digits are accepted; a sign of either kind is rejected.
func ParseThreshold(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidThreshold, raw)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidThreshold, raw)
	}
	return n, nil
}
