package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/sarge/internal/bridge"
	"github.com/verte-zerg/sarge/internal/config"
	"github.com/verte-zerg/sarge/internal/model"
)

const (
	defaultBaseURL         = bridge.DefaultBaseURL
	defaultRequestTimeout  = 10.0
	defaultResourceTimeout = 30.0
	defaultInterval        = 1.0
	defaultHealthInterval  = 5.0
	defaultWorkMinutes     = 25
	defaultBreakMinutes    = 5
	defaultToastSeconds    = 4.0
	defaultCurveWindow     = 3
	plotHeight             = 10
	fallbackWidth          = 80
)

var (
	flagConfigPath      string
	flagBaseURL         string
	flagRequestTimeout  float64
	flagResourceTimeout float64
	flagVerbose         bool

	flagInterval       float64
	flagHealthInterval float64
	flagToastSeconds   float64

	flagGoal         string
	flagWorkMinutes  int
	flagBreakMinutes int
)

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagGoal, "goal", "", "session goal")
	cmd.Flags().IntVar(&flagWorkMinutes, "work", defaultWorkMinutes, "work period in minutes")
	cmd.Flags().IntVar(&flagBreakMinutes, "break", defaultBreakMinutes, "break period in minutes")
}

func configPath() string {
	if flagConfigPath != "" {
		return flagConfigPath
	}
	return config.DefaultConfigPath()
}

// loadSettings merges flags over the config file over defaults.
func loadSettings(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(configPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "base-url", &flagBaseURL, fileCfg.Bridge.BaseURL)
	applyFloatConfig(cmd, "request-timeout", &flagRequestTimeout, fileCfg.Bridge.RequestTimeout)
	applyFloatConfig(cmd, "resource-timeout", &flagResourceTimeout, fileCfg.Bridge.ResourceTimeout)
	applyFloatConfig(cmd, "interval", &flagInterval, fileCfg.Poll.Interval)
	applyFloatConfig(cmd, "health-interval", &flagHealthInterval, fileCfg.Poll.HealthInterval)
	applyStringConfig(cmd, "goal", &flagGoal, fileCfg.Session.Goal)
	applyIntConfig(cmd, "work", &flagWorkMinutes, fileCfg.Session.WorkMinutes)
	applyIntConfig(cmd, "break", &flagBreakMinutes, fileCfg.Session.BreakMinutes)
	applyFloatConfig(cmd, "toast-seconds", &flagToastSeconds, fileCfg.UI.ToastSeconds)

	cfg := model.Config{
		BaseURL:         flagBaseURL,
		RequestTimeout:  seconds(flagRequestTimeout),
		ResourceTimeout: seconds(flagResourceTimeout),
		PollInterval:    seconds(flagInterval),
		HealthInterval:  seconds(flagHealthInterval),
		Goal:            flagGoal,
		WorkMinutes:     flagWorkMinutes,
		BreakMinutes:    flagBreakMinutes,
		ToastDuration:   seconds(flagToastSeconds),
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || !hasFlag(cmd, name) {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil || !hasFlag(cmd, name) {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil || !hasFlag(cmd, name) {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

// hasFlag reports whether cmd defines name, so a subcommand never picks up
// values for flags it does not accept.
func hasFlag(cmd *cobra.Command, name string) bool {
	return cmd.Flags().Lookup(name) != nil
}

func validateConfig(cfg model.Config) error {
	if cfg.RequestTimeout <= 0 || cfg.RequestTimeout > bridge.DefaultRequestTimeout {
		return fmt.Errorf("--request-timeout must be between 0 and %v", bridge.DefaultRequestTimeout.Seconds())
	}
	if cfg.ResourceTimeout <= 0 || cfg.ResourceTimeout > bridge.DefaultResourceTimeout {
		return fmt.Errorf("--resource-timeout must be between 0 and %v", bridge.DefaultResourceTimeout.Seconds())
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("--interval must be > 0")
	}
	if cfg.HealthInterval <= 0 {
		return fmt.Errorf("--health-interval must be > 0")
	}
	if cfg.WorkMinutes <= 0 {
		return fmt.Errorf("--work must be > 0")
	}
	if cfg.BreakMinutes <= 0 {
		return fmt.Errorf("--break must be > 0")
	}
	if cfg.ToastDuration <= 0 {
		return fmt.Errorf("--toast-seconds must be > 0")
	}
	return nil
}

func newClient(cfg model.Config) (*bridge.Client, error) {
	client, err := bridge.New(cfg.BaseURL, cfg.RequestTimeout, cfg.ResourceTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid --base-url %q: %w", cfg.BaseURL, err)
	}
	return client, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# sarge configuration
# Uncomment a value to enable it. CLI flags override config values.

[bridge]
# base-url = %q   # Session service address
# request-timeout = %.0f                 # Connect and header timeout, seconds (max 10)
# resource-timeout = %.0f                # Whole request timeout, seconds (max 30)

[poll]
# interval = %.0f                         # Status poll interval, seconds
# health-interval = %.0f                  # Health probe interval, seconds

[session]
# goal = ""                              # Default goal for new sessions
# work-minutes = %d                      # Work period
# break-minutes = %d                      # Break period

[ui]
# toast-seconds = %.0f                    # How long messages stay on screen
`,
		defaultBaseURL,
		defaultRequestTimeout,
		defaultResourceTimeout,
		defaultInterval,
		defaultHealthInterval,
		defaultWorkMinutes,
		defaultBreakMinutes,
		defaultToastSeconds,
	)
}
