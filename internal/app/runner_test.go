package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juparave/commitreminder/internal/config"
	"github.com/juparave/commitreminder/internal/domain"
	"github.com/juparave/commitreminder/internal/logging"
	"github.com/juparave/commitreminder/internal/store/sqlite"
)

const workspace = "/work/project"

type fakeGit struct {
	mu     sync.Mutex
	diff   string
	err    error
	branch string
}

func (f *fakeGit) setDiff(d string) {
	f.mu.Lock()
	f.diff = d
	f.mu.Unlock()
}

func (f *fakeGit) WorkingDiff(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.diff, f.err
}

func (f *fakeGit) RepoRoot(path string) (string, error) { return path, nil }

func (f *fakeGit) CurrentBranch(_ string) (string, error) { return f.branch, nil }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Reminder
	ch   chan domain.Reminder
	err  error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan domain.Reminder, 16)}
}

func (n *recordingNotifier) Notify(_ context.Context, r domain.Reminder) error {
	n.mu.Lock()
	n.sent = append(n.sent, r)
	n.mu.Unlock()
	select {
	case n.ch <- r:
	default:
	}
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeSuggester struct {
	msg string
	err error
}

func (f fakeSuggester) Suggest(context.Context, string, []domain.FileStat) (string, error) {
	return f.msg, f.err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fileDiff renders a git-style section with adds added and dels deleted lines
func fileDiff(name string, adds, dels int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", name, name)
	fmt.Fprintf(&b, "index 1111111..2222222 100644\n")
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", name, name)
	fmt.Fprintf(&b, "@@ -1,%d +1,%d @@\n", dels+1, adds+1)
	b.WriteString(" context\n")
	for i := 0; i < dels; i++ {
		fmt.Fprintf(&b, "-old line %d\n", i)
	}
	for i := 0; i < adds; i++ {
		fmt.Fprintf(&b, "+new line %d\n", i)
	}
	return b.String()
}

func setupRunner(t *testing.T) (*Runner, *fakeGit, *recordingNotifier, *clock) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.DefaultConfig()
	cfg.Watch.Debounce = 20 * time.Millisecond

	git := &fakeGit{branch: "main"}
	notifier := newRecordingNotifier()
	clk := &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}

	r := NewRunner(cfg, logging.Nop(), git, sqlite.NewStateRepo(db), notifier)
	r.SetClock(clk.Now)
	return r, git, notifier, clk
}

func TestRunner_CountChanges(t *testing.T) {
	r, git, _, _ := setupRunner(t)
	git.setDiff(fileDiff("a.go", 10, 2) + fileDiff("b.go", 3, 1))

	stat, files, err := r.CountChanges(context.Background(), workspace)
	require.NoError(t, err)

	assert.Equal(t, domain.DiffStat{Additions: 13, Deletions: 3}, stat)
	require.Len(t, files, 2)
	assert.Equal(t, "a.go", files[0].Path)
	assert.Equal(t, 12, files[0].Stat().Total())
}

func TestRunner_CountChanges_CleanTree(t *testing.T) {
	r, _, _, _ := setupRunner(t)

	stat, files, err := r.CountChanges(context.Background(), workspace)
	require.NoError(t, err)
	assert.True(t, stat.IsEmpty())
	assert.Empty(t, files)
}

func TestRunner_ReminderScenario(t *testing.T) {
	ctx := context.Background()
	r, git, notifier, clk := setupRunner(t)
	git.setDiff(fileDiff("a.go", 10, 2) + fileDiff("b.go", 3, 1))

	_, err := r.SetThreshold(ctx, domain.ScopeWorkspace, workspace, "10")
	require.NoError(t, err)

	d := r.OnRelevantEvent(ctx, workspace)
	assert.True(t, d.Remind, "16 > 10")
	assert.Equal(t, 16, d.Stat.Total())
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, "main", notifier.sent[0].Branch)

	_, err = r.SetThreshold(ctx, domain.ScopeWorkspace, workspace, "20")
	require.NoError(t, err)
	d = r.OnRelevantEvent(ctx, workspace)
	assert.False(t, d.Remind, "16 <= 20")
	assert.Equal(t, 1, notifier.count())

	_, err = r.SetThreshold(ctx, domain.ScopeWorkspace, workspace, "10")
	require.NoError(t, err)
	until, err := r.Mute(ctx, workspace)
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(5*time.Minute), until)

	clk.Advance(time.Minute)
	d = r.OnRelevantEvent(ctx, workspace)
	assert.False(t, d.Remind, "muted")
	assert.True(t, d.IsMuted())
	assert.Equal(t, 1, notifier.count())

	clk.Advance(5 * time.Minute)
	d = r.OnRelevantEvent(ctx, workspace)
	assert.True(t, d.Remind, "mute expired")
	assert.Equal(t, 2, notifier.count())
}

func TestRunner_MuteExpiresAtBoundary(t *testing.T) {
	ctx := context.Background()
	r, git, _, clk := setupRunner(t)
	git.setDiff(fileDiff("a.go", 200, 0))

	_, err := r.Mute(ctx, workspace)
	require.NoError(t, err)

	clk.Advance(5*time.Minute - time.Nanosecond)
	d, err := r.Check(ctx, workspace)
	require.NoError(t, err)
	assert.False(t, d.Remind)

	clk.Advance(time.Nanosecond)
	d, err = r.Check(ctx, workspace)
	require.NoError(t, err)
	assert.True(t, d.Remind, "now == mutedUntil is no longer muted")

	until, err := r.MutedUntil(ctx, workspace)
	require.NoError(t, err)
	assert.Nil(t, until)
}

func TestRunner_Unmute(t *testing.T) {
	ctx := context.Background()
	r, git, _, _ := setupRunner(t)
	git.setDiff(fileDiff("a.go", 200, 0))

	_, err := r.Mute(ctx, workspace)
	require.NoError(t, err)
	until, err := r.MutedUntil(ctx, workspace)
	require.NoError(t, err)
	assert.NotNil(t, until)

	require.NoError(t, r.Unmute(ctx, workspace))
	d, err := r.Check(ctx, workspace)
	require.NoError(t, err)
	assert.True(t, d.Remind)
}

func TestRunner_CheckDoesNotNotify(t *testing.T) {
	r, git, notifier, _ := setupRunner(t)
	git.setDiff(fileDiff("a.go", 200, 0))

	d, err := r.Check(context.Background(), workspace)
	require.NoError(t, err)
	assert.True(t, d.Remind)
	assert.Equal(t, 0, notifier.count())
}

func TestRunner_ThresholdPrecedence(t *testing.T) {
	ctx := context.Background()
	r, _, _, _ := setupRunner(t)

	got, err := r.ResolveThreshold(ctx, workspace)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultThreshold, got)

	got, err = r.SetThreshold(ctx, domain.ScopeGlobal, "", "40")
	require.NoError(t, err)
	assert.Equal(t, 40, got)

	got, err = r.SetThreshold(ctx, domain.ScopeWorkspace, workspace, "0")
	require.NoError(t, err)
	assert.Equal(t, 0, got, "workspace 0 overrides global")

	other, err := r.ResolveThreshold(ctx, "/work/other")
	require.NoError(t, err)
	assert.Equal(t, 40, other)

	got, err = r.ClearThreshold(ctx, domain.ScopeWorkspace, workspace)
	require.NoError(t, err)
	assert.Equal(t, 40, got)

	got, err = r.ClearThreshold(ctx, domain.ScopeGlobal, "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultThreshold, got)
}

func TestRunner_SetThreshold_InvalidKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	r, _, _, _ := setupRunner(t)

	_, err := r.SetThreshold(ctx, domain.ScopeWorkspace, workspace, "30")
	require.NoError(t, err)

	for _, raw := range []string{"-1", "abc", "3.5", ""} {
		_, err := r.SetThreshold(ctx, domain.ScopeWorkspace, workspace, raw)
		assert.ErrorIs(t, err, domain.ErrInvalidThreshold, raw)
	}

	got, err := r.ResolveThreshold(ctx, workspace)
	require.NoError(t, err)
	assert.Equal(t, 30, got)
}

func TestRunner_ZeroThresholdEmptyDiff(t *testing.T) {
	ctx := context.Background()
	r, _, notifier, _ := setupRunner(t)

	_, err := r.SetThreshold(ctx, domain.ScopeWorkspace, workspace, "0")
	require.NoError(t, err)

	d := r.OnRelevantEvent(ctx, workspace)
	assert.False(t, d.Remind, "0 > 0 is false")
	assert.Equal(t, 0, notifier.count())
}

func TestRunner_ParseErrorSkipsCheck(t *testing.T) {
	ctx := context.Background()
	r, git, notifier, _ := setupRunner(t)
	git.setDiff("diff --git a/x b/x\n--- a/x\n+++ b/x\n@@ -x,y +z,w @@\n+line\n")

	_, err := r.Check(ctx, workspace)
	var pe *domain.ParseError
	assert.ErrorAs(t, err, &pe)

	d := r.OnRelevantEvent(ctx, workspace)
	assert.False(t, d.Remind)
	assert.Equal(t, 0, notifier.count())
}

func TestRunner_GitErrorAbandonsCheck(t *testing.T) {
	ctx := context.Background()
	r, git, notifier, _ := setupRunner(t)
	git.err = &domain.GitError{Operation: "diff", Err: errors.New("exit status 128")}

	d := r.OnRelevantEvent(ctx, workspace)
	assert.False(t, d.Remind)
	assert.Equal(t, 0, notifier.count())
}

func TestRunner_Suggestion(t *testing.T) {
	ctx := context.Background()
	r, git, notifier, _ := setupRunner(t)
	git.setDiff(fileDiff("a.go", 200, 0))

	r.SetSuggester(fakeSuggester{msg: "Add a.go"})
	r.OnRelevantEvent(ctx, workspace)
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, "Add a.go", notifier.sent[0].Suggestion)

	r.SetSuggester(fakeSuggester{err: errors.New("quota exceeded")})
	d := r.OnRelevantEvent(ctx, workspace)
	assert.True(t, d.Remind, "suggestion failures do not block the reminder")
	require.Equal(t, 2, notifier.count())
	assert.Empty(t, notifier.sent[1].Suggestion)
}

func TestRunner_NotifyError(t *testing.T) {
	r, git, notifier, _ := setupRunner(t)
	git.setDiff(fileDiff("a.go", 200, 0))
	notifier.err = errors.New("smtp down")

	_, err := r.Remind(context.Background(), workspace)
	assert.ErrorContains(t, err, "delivering reminder")
}
