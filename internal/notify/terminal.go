package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/juparave/commitreminder/internal/domain"
	"github.com/juparave/commitreminder/internal/reminder"
)

// Terminal prints styled reminders to a writer
type Terminal struct {
	mu       sync.Mutex
	w        io.Writer
	muteHint bool

	warn   lipgloss.Style
	added  lipgloss.Style
	remove lipgloss.Style
	faint  lipgloss.Style
	box    lipgloss.Style
}

// NewTerminal creates a Terminal notifier. w defaults to stdout.
func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = os.Stdout
	}
	r := lipgloss.NewRenderer(w)
	return &Terminal{
		w:      w,
		warn:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		added:  r.NewStyle().Foreground(lipgloss.Color("42")),
		remove: r.NewStyle().Foreground(lipgloss.Color("203")),
		faint:  r.NewStyle().Faint(true),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1),
	}
}

// SetMuteHint toggles the "type m to mute" line under each reminder
func (t *Terminal) SetMuteHint(on bool) {
	t.mu.Lock()
	t.muteHint = on
	t.mu.Unlock()
}

// Notify implements Notifier
func (t *Terminal) Notify(_ context.Context, r domain.Reminder) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := []string{
		t.warn.Render("⚠ " + Headline(r)),
		t.Totals(r.Stat),
	}
	if r.Suggestion != "" {
		lines = append(lines, "Suggested message: "+r.Suggestion)
	}
	if t.muteHint {
		lines = append(lines, t.faint.Render(fmt.Sprintf("Type m + Enter to mute for %d minutes", int(reminder.MuteDuration.Minutes()))))
	}

	_, err := fmt.Fprintln(t.w, t.box.Render(strings.Join(lines, "\n")))
	return err
}

// Totals renders the one-line change summary with colored counts
func (t *Terminal) Totals(stat domain.DiffStat) string {
	return fmt.Sprintf("Total changes: %s | %s",
		t.added.Render(fmt.Sprintf("+%d", stat.Additions)),
		t.remove.Render(fmt.Sprintf("-%d", stat.Deletions)))
}

// Print writes a plain status line
func (t *Terminal) Print(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintf(t.w, format+"\n", args...)
}
