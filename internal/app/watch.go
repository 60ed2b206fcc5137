package app

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/juparave/commitreminder/internal/watcher"
)

const eventBuffer = 16

// Watch checks every workspace once, then again on each debounced save,
// until ctx is cancelled. Lines read from input act as commands: "m" or
// "mute" mutes the workspace that last fired (or every watched one),
// "u" or "unmute" clears it. input may be nil.
func (r *Runner) Watch(ctx context.Context, workspaces []string, input io.Reader) error {
	events := make(chan string, eventBuffer)

	w := watcher.New(func(ws string) {
		select {
		case events <- ws:
		default:
			r.logger.Debug("check already pending", "workspace", ws)
		}
	}, r.config.Watch.Ignore, r.config.Watch.Debounce, r.logger)
	defer w.Stop()

	for _, ws := range workspaces {
		if err := w.Add(ws); err != nil {
			return err
		}
		r.logger.Info("watching workspace", "workspace", ws)
	}

	commands := readCommands(ctx, input)

	var last string
	for _, ws := range workspaces {
		if d := r.OnRelevantEvent(ctx, ws); d.Remind {
			last = ws
		}
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("watch stopped")
			return nil
		case ws := <-events:
			if d := r.OnRelevantEvent(ctx, ws); d.Remind {
				last = ws
			}
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			targets := workspaces
			if last != "" {
				targets = []string{last}
			}
			r.handleCommand(ctx, cmd, targets)
		}
	}
}

func (r *Runner) handleCommand(ctx context.Context, cmd string, targets []string) {
	switch cmd {
	case "m", "mute":
		for _, ws := range targets {
			if _, err := r.Mute(ctx, ws); err != nil {
				r.logger.Error("mute failed", "workspace", ws, "error", err)
			}
		}
	case "u", "unmute":
		for _, ws := range targets {
			if err := r.Unmute(ctx, ws); err != nil {
				r.logger.Error("unmute failed", "workspace", ws, "error", err)
			}
		}
	case "":
	default:
		r.logger.Debug("unknown command", "command", cmd)
	}
}

// readCommands forwards trimmed lowercase lines from input. The channel is
// closed on EOF; a nil input yields a nil channel.
func readCommands(ctx context.Context, input io.Reader) <-chan string {
	if input == nil {
		return nil
	}
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(input)
		for sc.Scan() {
			select {
			case out <- strings.ToLower(strings.TrimSpace(sc.Text())):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
