package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juparave/commitreminder/internal/config"
	"github.com/juparave/commitreminder/internal/diff"
	"github.com/juparave/commitreminder/internal/domain"
	"github.com/juparave/commitreminder/internal/logging"
	"github.com/juparave/commitreminder/internal/notify"
	"github.com/juparave/commitreminder/internal/reminder"
)

// GitClient supplies the workspace state a check needs
type GitClient interface {
	WorkingDiff(ctx context.Context, root string) (string, error)
	RepoRoot(path string) (string, error)
	CurrentBranch(root string) (string, error)
}

// Suggester proposes a commit message for a diff
type Suggester interface {
	Suggest(ctx context.Context, diffText string, files []domain.FileStat) (string, error)
}

// Runner wires the git collaborator, the state store and the notifiers to
// the aggregator/policy pair
type Runner struct {
	config     *config.Config
	logger     logging.Logger
	git        GitClient
	aggregator *diff.Aggregator
	settings   *reminder.Settings
	notifier   notify.Notifier
	suggester  Suggester
	now        func() time.Time
}

// NewRunner creates a new Runner instance
func NewRunner(cfg *config.Config, logger logging.Logger, git GitClient, store reminder.StateStore, notifier notify.Notifier) *Runner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{
		config:     cfg,
		logger:     logger,
		git:        git,
		aggregator: diff.NewAggregator(logger),
		settings:   reminder.NewSettings(store),
		notifier:   notifier,
		now:        time.Now,
	}
}

// SetSuggester enables commit message suggestions on reminders
func (r *Runner) SetSuggester(s Suggester) { r.suggester = s }

// SetClock replaces the wall clock
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

// Workspace resolves any path inside a repository to its root
func (r *Runner) Workspace(path string) (string, error) {
	return r.git.RepoRoot(path)
}

// CountChanges returns the totals and per-file counts of uncommitted changes
func (r *Runner) CountChanges(ctx context.Context, workspace string) (domain.DiffStat, []domain.FileStat, error) {
	_, files, err := r.stats(ctx, workspace)
	if err != nil {
		return domain.DiffStat{}, nil, err
	}
	return domain.SumFiles(files), files, nil
}

// Check evaluates the reminder policy for workspace without notifying
func (r *Runner) Check(ctx context.Context, workspace string) (domain.Decision, error) {
	d, _, _, err := r.evaluate(ctx, workspace)
	return d, err
}

// Remind runs a check and delivers a reminder when it fires
func (r *Runner) Remind(ctx context.Context, workspace string) (domain.Decision, error) {
	d, diffText, files, err := r.evaluate(ctx, workspace)
	if err != nil || !d.Remind {
		return d, err
	}

	rem := domain.Reminder{
		Workspace: workspace,
		Stat:      d.Stat,
		Threshold: d.Threshold,
		At:        d.CheckedAt,
	}

	if branch, err := r.git.CurrentBranch(workspace); err == nil {
		rem.Branch = branch
	} else {
		r.logger.Debug("branch lookup failed", "workspace", workspace, "error", err)
	}

	if r.suggester != nil {
		msg, err := r.suggester.Suggest(ctx, diffText, files)
		if err != nil {
			r.logger.Warn("commit message suggestion failed", "workspace", workspace, "error", err)
		}
		rem.Suggestion = msg
	}

	if err := r.notifier.Notify(ctx, rem); err != nil {
		return d, fmt.Errorf("delivering reminder: %w", err)
	}

	r.logger.Info("reminder sent", "workspace", workspace, "total", d.Stat.Total(), "threshold", d.Threshold)
	return d, nil
}

// OnRelevantEvent is the hook a save event triggers. Failures degrade to
// "no reminder this time" and are only logged.
func (r *Runner) OnRelevantEvent(ctx context.Context, workspace string) domain.Decision {
	d, err := r.Remind(ctx, workspace)
	if err != nil {
		log := r.logger.With("workspace", workspace)
		var pe *domain.ParseError
		if errors.As(err, &pe) {
			log.Warn("cannot determine change stats, skipping check", "error", err)
		} else {
			log.Warn("check abandoned", "error", err)
		}
	}
	return d
}

// Mute suppresses reminders in workspace for reminder.MuteDuration
func (r *Runner) Mute(ctx context.Context, workspace string) (time.Time, error) {
	var p reminder.Policy
	until := p.Mute(r.now())
	if err := r.settings.SaveMute(ctx, workspace, until); err != nil {
		return time.Time{}, err
	}
	r.logger.Info("reminders muted", "workspace", workspace, "until", until.Format(time.RFC3339))
	return until, nil
}

// Unmute clears any mute in workspace
func (r *Runner) Unmute(ctx context.Context, workspace string) error {
	return r.settings.ClearMute(ctx, workspace)
}

// MutedUntil returns the active mute expiry, or nil when not muted
func (r *Runner) MutedUntil(ctx context.Context, workspace string) (*time.Time, error) {
	until, err := r.settings.LoadMute(ctx, workspace)
	if err != nil || until == nil {
		return nil, err
	}
	if !r.now().Before(*until) {
		return nil, nil
	}
	return until, nil
}

// SetThreshold validates raw and stores it in scope, returning the new effective threshold
func (r *Runner) SetThreshold(ctx context.Context, scope domain.Scope, workspace, raw string) (int, error) {
	return r.settings.SetThreshold(ctx, scope, workspace, raw, r.config.DefaultThreshold)
}

// ClearThreshold removes the override in scope, returning the new effective threshold
func (r *Runner) ClearThreshold(ctx context.Context, scope domain.Scope, workspace string) (int, error) {
	if err := r.settings.ClearThreshold(ctx, scope, workspace); err != nil {
		return 0, err
	}
	return r.ResolveThreshold(ctx, workspace)
}

// ResolveThreshold returns the effective threshold for workspace
func (r *Runner) ResolveThreshold(ctx context.Context, workspace string) (int, error) {
	return r.settings.ResolveThreshold(ctx, workspace, r.config.DefaultThreshold)
}

// Thresholds returns the stored overrides for workspace
func (r *Runner) Thresholds(ctx context.Context, workspace string) (reminder.ThresholdConfig, error) {
	return r.settings.LoadThresholds(ctx, workspace)
}

func (r *Runner) stats(ctx context.Context, workspace string) (string, []domain.FileStat, error) {
	diffText, err := r.git.WorkingDiff(ctx, workspace)
	if err != nil {
		return "", nil, err
	}

	files, err := r.aggregator.ComputeFileStats(diffText)
	if err != nil {
		return "", nil, err
	}
	return diffText, files, nil
}

func (r *Runner) evaluate(ctx context.Context, workspace string) (domain.Decision, string, []domain.FileStat, error) {
	d := domain.Decision{Workspace: workspace}

	diffText, files, err := r.stats(ctx, workspace)
	if err != nil {
		return d, "", nil, err
	}
	d.Stat = domain.SumFiles(files)

	threshold, err := r.ResolveThreshold(ctx, workspace)
	if err != nil {
		return d, "", nil, err
	}
	mutedUntil, err := r.settings.LoadMute(ctx, workspace)
	if err != nil {
		return d, "", nil, err
	}

	d.CheckedAt = r.now()
	d.Threshold = threshold
	d.MutedUntil = mutedUntil

	policy := reminder.Policy{Threshold: threshold, MutedUntil: mutedUntil}
	d.Remind = policy.ShouldRemind(d.Stat, d.CheckedAt)

	r.logger.With("workspace", workspace).Debug("check complete",
		"additions", d.Stat.Additions,
		"deletions", d.Stat.Deletions,
		"threshold", threshold,
		"muted", d.IsMuted(),
		"remind", d.Remind,
	)
	return d, diffText, files, nil
}
