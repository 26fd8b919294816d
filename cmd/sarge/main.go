// Package main provides the CLI entrypoint for sarge.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/sarge/internal/config"
	"github.com/verte-zerg/sarge/internal/dispatch"
	"github.com/verte-zerg/sarge/internal/logging"
	"github.com/verte-zerg/sarge/internal/poller"
	"github.com/verte-zerg/sarge/internal/store"
	"github.com/verte-zerg/sarge/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sarge",
		Short:         "Terminal companion for the Code Sergeant focus coach",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runDashboardCmd,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logging.SetVerbose(flagVerbose)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/sarge/config.toml)")
	pf.StringVar(&flagBaseURL, "base-url", defaultBaseURL, "session service address")
	pf.Float64Var(&flagRequestTimeout, "request-timeout", defaultRequestTimeout, "connect and response header timeout in seconds (max 10)")
	pf.Float64Var(&flagResourceTimeout, "resource-timeout", defaultResourceTimeout, "whole request timeout in seconds (max 30)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().Float64Var(&flagInterval, "interval", defaultInterval, "status poll interval in seconds")
	rootCmd.Flags().Float64Var(&flagHealthInterval, "health-interval", defaultHealthInterval, "health probe interval in seconds")
	rootCmd.Flags().Float64Var(&flagToastSeconds, "toast-seconds", defaultToastSeconds, "how long messages stay on screen")
	addSessionFlags(rootCmd)

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newEndCmd())
	rootCmd.AddCommand(newSimpleCmd("pause", "Pause the timer", (*dispatch.Dispatcher).PauseSession))
	rootCmd.AddCommand(newSimpleCmd("resume", "Resume the timer", (*dispatch.Dispatcher).ResumeSession))
	rootCmd.AddCommand(newSimpleCmd("skip-break", "Skip the current break", (*dispatch.Dispatcher).SkipBreak))
	rootCmd.AddCommand(newSimpleCmd("hush", "Stop speaking", (*dispatch.Dispatcher).StopSpeaking))
	rootCmd.AddCommand(newSayCmd())
	rootCmd.AddCommand(newKeyCmd())
	rootCmd.AddCommand(newScreenCmd())
	rootCmd.AddCommand(newRemoteConfigCmd())
	rootCmd.AddCommand(newXPCmd())
	rootCmd.AddCommand(newPersonalityCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newShutdownCmd())

	return rootCmd
}

func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	logPath := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	closeLog, err := logging.OpenFile(logPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			logging.Error("failed to close log: %v", cerr)
		}
	}()
	logging.Info("dashboard started against %s", client.BaseURL())

	var history tui.History
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logging.Warn("history disabled: %v", err)
	} else {
		history = st
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logging.Error("failed to close db: %v", cerr)
			}
		}()
	}

	ctx := cmd.Context()
	p := poller.New(ctx, client, cfg.PollInterval, cfg.HealthInterval)
	defer p.Stop()
	m := tui.NewModel(tui.Options{
		Config:     cfg,
		Poller:     p,
		Dispatcher: dispatch.New(ctx, client),
		History:    history,
	})
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
