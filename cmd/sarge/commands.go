package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/sarge/internal/bridge"
	"github.com/verte-zerg/sarge/internal/config"
	"github.com/verte-zerg/sarge/internal/dispatch"
	"github.com/verte-zerg/sarge/internal/historyui"
	"github.com/verte-zerg/sarge/internal/logging"
	"github.com/verte-zerg/sarge/internal/model"
	"github.com/verte-zerg/sarge/internal/poller"
	"github.com/verte-zerg/sarge/internal/report"
	"github.com/verte-zerg/sarge/internal/session"
	"github.com/verte-zerg/sarge/internal/store"
)

var (
	endEarly      bool
	historySince  string
	historyLast   int
	historyBrowse bool
	historyPlot   bool
	historyWindow int
)

// run issues one dispatcher command and waits for its result.
func run(cmd *cobra.Command, build func(d *dispatch.Dispatcher) tea.Cmd) (dispatch.ResultMsg, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return dispatch.ResultMsg{}, err
	}
	client, err := newClient(cfg)
	if err != nil {
		return dispatch.ResultMsg{}, err
	}
	r, ok := build(dispatch.New(cmd.Context(), client))().(dispatch.ResultMsg)
	if !ok {
		return dispatch.ResultMsg{}, errors.New("unexpected command result")
	}
	if r.Err != nil {
		logging.Debug("%s failed: %v", r.Command, r.Err)
		return r, errors.New(r.Text())
	}
	return r, nil
}

func printResult(cmd *cobra.Command, r dispatch.ResultMsg) error {
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), r.Text()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func openHistory() *store.Store {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logging.Warn("history disabled: %v", err)
		return nil
	}
	return st
}

func closeHistory(st *store.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		logging.Error("failed to close db: %v", err)
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, timer, XP and judgment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			var st session.State
			if err := poller.Snapshot(cmd.Context(), client, &st); err != nil {
				return fmt.Errorf("%s at %s", bridge.Describe(err), client.BaseURL())
			}
			out := cmd.OutOrStdout()
			return report.RenderStatus(out, &st, report.ShouldUseColor(out))
		},
	}
}

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a focus session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			r, err := run(cmd, func(d *dispatch.Dispatcher) tea.Cmd {
				return d.StartSession(cfg.Goal, cfg.WorkMinutes, cfg.BreakMinutes)
			})
			if err != nil {
				return err
			}
			if st := openHistory(); st != nil {
				defer closeHistory(st)
				if _, err := st.InsertSessionStart(cmd.Context(), time.Now(), r.Goal, r.WorkMinutes, r.BreakMinutes); err != nil {
					logging.Error("failed to record session start: %v", err)
				}
			}
			return printResult(cmd, r)
		},
	}
	addSessionFlags(cmd)
	return cmd
}

func newEndCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "end",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE:  runEndCmd,
	}
	cmd.Flags().BoolVar(&endEarly, "early", false, "end early and accept the XP penalty")
	return cmd
}

func runEndCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	xp, xpErr := client.XPStatus(ctx)
	if xpErr != nil {
		logging.Debug("xp status unavailable: %v", xpErr)
	}
	penalty := session.EstimatePenalty(xp.SessionXP, session.PenaltyPercent(xp, xpErr == nil))

	r, err := run(cmd, func(d *dispatch.Dispatcher) tea.Cmd {
		return d.EndSession(endEarly)
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := report.RenderEndSummary(out, r.Summary); err != nil {
		return err
	}
	if endEarly && penalty > 0 {
		if _, err := fmt.Fprintf(out, "Early end penalty: about %d XP\n", penalty); err != nil {
			return err
		}
	}

	st := openHistory()
	if st == nil {
		return nil
	}
	defer closeHistory(st)
	f := store.Finish{
		EndedAt:      time.Now(),
		EndedEarly:   endEarly,
		SessionXP:    xp.SessionXP,
		FocusMinutes: r.Summary.FocusMinutes,
	}
	if endEarly {
		f.EstimatedPenalty = penalty
	}
	finishOpenSession(ctx, st, f)
	return nil
}

func finishOpenSession(ctx context.Context, st *store.Store, f store.Finish) {
	id, ok, err := st.OpenSession(ctx)
	if err != nil {
		logging.Error("failed to load session history: %v", err)
		return
	}
	if !ok {
		return
	}
	if err := st.FinishSession(ctx, id, f); err != nil {
		logging.Error("failed to record session end: %v", err)
	}
}

func newSimpleCmd(use, short string, build func(d *dispatch.Dispatcher) tea.Cmd) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := run(cmd, build)
			if err != nil {
				return err
			}
			return printResult(cmd, r)
		},
	}
}

func newSayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "say <text>",
		Short: "Speak text through the service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := run(cmd, func(d *dispatch.Dispatcher) tea.Cmd {
				return d.Speak(strings.Join(args, " "))
			})
			if err != nil {
				return err
			}
			return printResult(cmd, r)
		},
	}
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key",
		Short: "Set the OpenAI API key (read from stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			apiKey, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			r, err := run(cmd, func(d *dispatch.Dispatcher) tea.Cmd {
				return d.SetOpenAIKey(apiKey)
			})
			if err != nil {
				return err
			}
			return printResult(cmd, r)
		},
	}
}

// readSecret prompts without echo on a terminal and reads one line otherwise.
func readSecret(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if _, err := fmt.Fprint(prompt, "OpenAI API key: "); err != nil {
			return "", err
		}
		data, err := term.ReadPassword(int(f.Fd()))
		if _, perr := fmt.Fprintln(prompt); perr != nil && err == nil {
			err = perr
		}
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newScreenCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "screen on|off",
		Short:     "Enable or disable screen monitoring",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := run(cmd, func(d *dispatch.Dispatcher) tea.Cmd {
				return d.ToggleScreenMonitoring(args[0] == "on")
			})
			if err != nil {
				return err
			}
			return printResult(cmd, r)
		},
	}
}

func newRemoteConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote-config",
		Short: "Show or change the service configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the service configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := run(cmd, func(d *dispatch.Dispatcher) tea.Cmd {
				return d.GetConfig()
			})
			if err != nil {
				return err
			}
			return report.RenderRemoteConfig(cmd.OutOrStdout(), r.Config)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set section.key=value...",
		Short: "Update service configuration keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := bridge.ParseAssignments(args)
			if err != nil {
				return err
			}
			r, err := run(cmd, func(d *dispatch.Dispatcher) tea.Cmd {
				return d.UpdateConfig(patch)
			})
			if err != nil {
				return err
			}
			return printResult(cmd, r)
		},
	})
	return cmd
}

func newXPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xp",
		Short: "Manage experience points",
	}
	cmd.AddCommand(newSimpleCmd("reset", "Reset all XP", (*dispatch.Dispatcher).ResetXP))
	return cmd
}

func newPersonalityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personality [name]",
		Short: "Show or switch the sergeant's personality",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				r, err := run(cmd, func(d *dispatch.Dispatcher) tea.Cmd {
					return d.SetPersonality(args[0])
				})
				if err != nil {
					return err
				}
				return printResult(cmd, r)
			}
			r, err := run(cmd, func(d *dispatch.Dispatcher) tea.Cmd {
				return d.GetPersonality()
			})
			if err != nil {
				return err
			}
			return report.RenderPersonality(cmd.OutOrStdout(), r.Personality)
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show sessions recorded by this client",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().BoolVar(&historyBrowse, "browse", false, "open the interactive history browser")
	cmd.Flags().BoolVar(&historyPlot, "plot", false, "plot focus and XP trends")
	cmd.Flags().IntVar(&historyWindow, "curve-window", defaultCurveWindow, "moving average window")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if historyWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}
	filter := model.HistoryFilter{Since: sinceTime, Last: historyLast}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeHistory(st)

	if historyBrowse {
		browser := historyui.NewModel(st, historyui.Config{Filter: filter, CurveWindow: historyWindow})
		program := tea.NewProgram(browser, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run history browser: %w", err)
		}
		return nil
	}

	entries, err := st.ListSessions(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	out := cmd.OutOrStdout()
	useColor := report.ShouldUseColor(out)
	if err := report.RenderHistory(out, entries, useColor); err != nil {
		return err
	}
	if !historyPlot || len(entries) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	return report.RenderTrends(out, entries, historyWindow, terminalWidth(out), plotHeight, useColor)
}

// terminalWidth returns the width of w when it is a terminal.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return fallbackWidth
}

func newShutdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Ask the session service to exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			if err := client.Shutdown(cmd.Context()); err != nil {
				return fmt.Errorf("shutdown failed: %s", bridge.Describe(err))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Shutdown requested")
			return err
		},
	}
}
