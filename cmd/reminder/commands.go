package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/juparave/commitreminder/internal/app"
	"github.com/juparave/commitreminder/internal/config"
	"github.com/juparave/commitreminder/internal/domain"
	"github.com/juparave/commitreminder/internal/git"
	"github.com/juparave/commitreminder/internal/logging"
	"github.com/juparave/commitreminder/internal/notify"
	"github.com/juparave/commitreminder/internal/scanner"
	"github.com/juparave/commitreminder/internal/store/sqlite"
	"github.com/juparave/commitreminder/internal/suggest"
)

// env carries what every command needs
type env struct {
	cfg      *config.Config
	logger   logging.Logger
	git      *git.Client
	db       *sqlite.DB
	terminal *notify.Terminal
	runner   *app.Runner
}

func (e *env) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

func setup(ctx context.Context, out io.Writer) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with CLI flags
	cfg.RepoPath = repoPath
	if dbPath != "" {
		cfg.State.DBPath = dbPath
	}
	cfg.Verbose = verbose

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(cfg.Verbose)

	db, err := sqlite.Open(cfg.State.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	logger.Debug("state database ready", "path", db.Path())

	terminal := notify.NewTerminal(out)
	notifiers := notify.Multi{}
	if cfg.Notify.Terminal {
		notifiers = append(notifiers, terminal)
	}
	if cfg.Notify.Email.Enabled {
		notifiers = append(notifiers, notify.NewEmail(cfg.Notify.Email, logger))
	}

	gitClient := git.NewClient(cfg.GitBinary, logger)
	runner := app.NewRunner(cfg, logger, gitClient, sqlite.NewStateRepo(db), notifiers)

	if cfg.Suggest.Enabled {
		s, err := suggest.NewSuggester(ctx, cfg.Suggest, logger)
		if err != nil {
			logger.Warn("commit message suggestions disabled", "error", err)
		} else {
			runner.SetSuggester(s)
		}
	}

	return &env{
		cfg:      cfg,
		logger:   logger,
		git:      gitClient,
		db:       db,
		terminal: terminal,
		runner:   runner,
	}, nil
}

// withWorkspace runs fn with the repository root containing --repo
func withWorkspace(cmd *cobra.Command, fn func(e *env, ws string) error) error {
	e, err := setup(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer e.Close()

	ws, err := e.runner.Workspace(e.cfg.RepoPath)
	if err != nil {
		return fmt.Errorf("%s: %w", e.cfg.RepoPath, err)
	}
	return fn(e, ws)
}

func newCountCmd() *cobra.Command {
	var perFile bool
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the uncommitted line totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(e *env, ws string) error {
				stat, files, err := e.runner.CountChanges(cmd.Context(), ws)
				if err != nil {
					return err
				}
				if perFile {
					for _, f := range files {
						name := f.Path
						if f.IsRenamed() {
							name = f.OldPath + " => " + f.Path
						}
						if f.IsBinary {
							e.terminal.Print("  %s (binary)", name)
							continue
						}
						e.terminal.Print("  %s  +%d -%d", name, f.Additions, f.Deletions)
					}
				}
				e.terminal.Print("%s", e.terminal.Totals(stat))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&perFile, "files", false, "Also list per-file counts")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one check and remind if the threshold is exceeded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(e *env, ws string) error {
				d, err := e.runner.Remind(cmd.Context(), ws)
				if err != nil {
					return err
				}
				if d.Remind {
					return nil
				}
				e.terminal.Print("%s", e.terminal.Totals(d.Stat))
				switch {
				case d.IsMuted() && d.Over() > 0:
					e.terminal.Print("%d lines over the threshold of %d, muted until %s",
						d.Over(), d.Threshold, d.MutedUntil.Local().Format(time.Kitchen))
				case d.IsMuted():
					e.terminal.Print("Muted until %s", d.MutedUntil.Local().Format(time.Kitchen))
				case d.Stat.IsEmpty():
					e.terminal.Print("No uncommitted changes")
				default:
					e.terminal.Print("%d of %d lines, no reminder needed", d.Stat.Total(), d.Threshold)
				}
				return nil
			})
		},
	}
}

func newWatchCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch workspaces and remind on every save",
		Long:  `Watch checks the workspace after every file save. Type m + Enter to mute reminders for five minutes, u + Enter to unmute.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer e.Close()

			workspaces, err := watchTargets(e, root)
			if err != nil {
				return err
			}

			var input io.Reader
			if isatty.IsTerminal(os.Stdin.Fd()) {
				input = cmd.InOrStdin()
				e.terminal.SetMuteHint(true)
			}

			for _, ws := range workspaces {
				e.terminal.Print("Watching %s", scanner.GetRepoName(ws))
			}
			return e.runner.Watch(cmd.Context(), workspaces, input)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Watch every repository found under this directory")
	return cmd
}

// watchTargets returns the workspace roots to watch, keyed the same way as
// every other command: --repo alone, or each repository found under root.
func watchTargets(e *env, root string) ([]string, error) {
	if root == "" {
		ws, err := e.runner.Workspace(e.cfg.RepoPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.cfg.RepoPath, err)
		}
		return []string{ws}, nil
	}

	found, err := scanner.New(e.logger).FindRepositories(root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	seen := make(map[string]bool, len(found))
	var workspaces []string
	for _, p := range found {
		ws, err := e.runner.Workspace(p)
		if err != nil {
			e.logger.Warn("skipping repository", "path", p, "error", err)
			continue
		}
		if seen[ws] {
			continue
		}
		seen[ws] = true
		workspaces = append(workspaces, ws)
	}
	if len(workspaces) == 0 {
		return nil, fmt.Errorf("no git repositories found under %s", root)
	}
	return workspaces, nil
}

func newMuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mute",
		Short: "Mute reminders for five minutes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(e *env, ws string) error {
				until, err := e.runner.Mute(cmd.Context(), ws)
				if err != nil {
					return err
				}
				e.terminal.Print("Reminders muted until %s", until.Local().Format(time.Kitchen))
				return nil
			})
		},
	}
}

func newUnmuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmute",
		Short: "Clear an active mute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(e *env, ws string) error {
				if err := e.runner.Unmute(cmd.Context(), ws); err != nil {
					return err
				}
				e.terminal.Print("Reminders unmuted")
				return nil
			})
		},
	}
}

func newThresholdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Show or change the reminder threshold",
	}

	var (
		global    bool
		scopeName string
	)
	scope := func() (domain.Scope, error) {
		if global {
			return domain.ScopeGlobal, nil
		}
		return domain.ParseScope(scopeName)
	}

	set := &cobra.Command{
		Use:     "set VALUE",
		Short:   "Store a threshold for this workspace (or globally with --global)",
		Example: `  reminder threshold set 50
  reminder threshold set 200 --global
  reminder threshold set -- -1   # rejected: must be a non-negative integer`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scope()
			if err != nil {
				return err
			}
			return withWorkspace(cmd, func(e *env, ws string) error {
				ctx := cmd.Context()
				effective, err := e.runner.SetThreshold(ctx, sc, ws, args[0])
				if err != nil {
					return err
				}
				tc, err := e.runner.Thresholds(ctx, ws)
				if err != nil {
					return err
				}
				stored := tc.Workspace
				if sc == domain.ScopeGlobal {
					stored = tc.Global
				}
				e.terminal.Print("%s threshold set to %s, effective threshold is %d", sc, formatOptional(stored), effective)
				return nil
			})
		},
	}

	unset := &cobra.Command{
		Use:   "unset",
		Short: "Clear the workspace (or global) threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := scope()
			if err != nil {
				return err
			}
			return withWorkspace(cmd, func(e *env, ws string) error {
				effective, err := e.runner.ClearThreshold(cmd.Context(), sc, ws)
				if err != nil {
					return err
				}
				e.terminal.Print("%s threshold cleared, effective threshold is %d", sc, effective)
				return nil
			})
		},
	}

	for _, c := range []*cobra.Command{set, unset} {
		c.Flags().BoolVar(&global, "global", false, "Use the global scope (same as --scope global)")
		c.Flags().StringVar(&scopeName, "scope", string(domain.ScopeWorkspace), "Scope to change: workspace or global")
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the configured thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(e *env, ws string) error {
				tc, err := e.runner.Thresholds(cmd.Context(), ws)
				if err != nil {
					return err
				}
				e.terminal.Print("workspace: %s", formatOptional(tc.Workspace))
				e.terminal.Print("global:    %s", formatOptional(tc.Global))
				e.terminal.Print("default:   %d", e.cfg.DefaultThreshold)
				e.terminal.Print("effective: %d", tc.Resolve(e.cfg.DefaultThreshold))
				return nil
			})
		},
	}

	cmd.AddCommand(set, unset, show)
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print threshold, mute state and current totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(e *env, ws string) error {
				ctx := cmd.Context()

				branch, err := e.git.CurrentBranch(ws)
				if err != nil {
					e.logger.Debug("branch lookup failed", "error", err)
				}
				threshold, err := e.runner.ResolveThreshold(ctx, ws)
				if err != nil {
					return err
				}
				until, err := e.runner.MutedUntil(ctx, ws)
				if err != nil {
					return err
				}

				e.terminal.Print("Workspace: %s", ws)
				if branch != "" {
					e.terminal.Print("Branch:    %s", branch)
				}
				e.terminal.Print("Threshold: %d", threshold)
				if until != nil {
					e.terminal.Print("Muted:     until %s", until.Local().Format(time.Kitchen))
				} else {
					e.terminal.Print("Muted:     no")
				}

				stat, _, err := e.runner.CountChanges(ctx, ws)
				if err != nil {
					e.terminal.Print("Changes:   unavailable (%v)", err)
					return nil
				}
				e.terminal.Print("%s", e.terminal.Totals(stat))
				return nil
			})
		},
	}
}

func formatOptional(v *int) string {
	if v == nil {
		return "unset"
	}
	return fmt.Sprintf("%d", *v)
}
