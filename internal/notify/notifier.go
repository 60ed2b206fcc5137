package notify

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/juparave/commitreminder/internal/domain"
)

// Notifier delivers a reminder to the user
type Notifier interface {
	Notify(ctx context.Context, r domain.Reminder) error
}

// Multi fans a reminder out to several notifiers. Every notifier is tried;
// failures are joined.
type Multi []Notifier

// Notify implements Notifier
func (m Multi) Notify(ctx context.Context, r domain.Reminder) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Headline is the short reminder text shared by every notifier
func Headline(r domain.Reminder) string {
	name := baseName(r.Workspace)
	if r.Branch != "" {
		name = fmt.Sprintf("%s (%s)", name, r.Branch)
	}
	return fmt.Sprintf("%d uncommitted lines in %s, over your threshold of %d. Time to commit!",
		r.Stat.Total(), name, r.Threshold)
}

func baseName(workspace string) string {
	return filepath.Base(workspace)
}
