package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version  = "0.1.0"
	repoPath string
	cfgFile  string
	dbPath   string
	verbose  bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "reminder",
		Short:         "Commit Reminder - nudges you to commit before changes pile up",
		Long:          `Commit Reminder counts the uncommitted lines in a Git workspace and reminds you to commit once they exceed a threshold.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&repoPath, "repo", "r", ".", "Path inside the Git workspace")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: ~/.config/commit-reminder/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the state database (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(
		newCountCmd(),
		newCheckCmd(),
		newWatchCmd(),
		newMuteCmd(),
		newUnmuteCmd(),
		newThresholdCmd(),
		newStatusCmd(),
	)

	return rootCmd
}
