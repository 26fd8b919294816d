// Package dispatch turns user intents into single service commands.
//
// Every operation returns a tea.Cmd whose message is a ResultMsg, so each
// call has an explicit outcome even when the UI only shows failures.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/sarge/internal/bridge"
	"github.com/verte-zerg/sarge/internal/model"
)

// Local validation errors. These are reported without contacting the service.
var (
	ErrEmptyKey      = errors.New("api key is required")
	ErrEmptyText     = errors.New("text is required")
	ErrEmptyProfile  = errors.New("profile name is required")
	ErrInvalidLength = errors.New("minutes must be greater than 0")
)

// API is the subset of the bridge client used for commands.
type API interface {
	StartSession(ctx context.Context, goal string, workMinutes, breakMinutes int) error
	EndSession(ctx context.Context, early bool) (model.EndSummary, error)
	PauseSession(ctx context.Context) error
	ResumeSession(ctx context.Context) error
	SkipBreak(ctx context.Context) error
	SetOpenAIKey(ctx context.Context, key string) error
	ToggleScreenMonitoring(ctx context.Context, enabled bool) (bool, error)
	Config(ctx context.Context) (bridge.RemoteConfig, error)
	UpdateConfig(ctx context.Context, patch bridge.RemoteConfig) error
	Speak(ctx context.Context, text string) error
	StopSpeaking(ctx context.Context) error
	ResetXP(ctx context.Context) error
	Personality(ctx context.Context) (model.Personality, error)
	SetPersonality(ctx context.Context, name string) error
}

// Command identifies an operation.
type Command int

const (
	CmdStartSession Command = iota
	CmdEndSession
	CmdPauseSession
	CmdResumeSession
	CmdSkipBreak
	CmdSetOpenAIKey
	CmdToggleScreenMonitoring
	CmdGetConfig
	CmdUpdateConfig
	CmdSpeak
	CmdStopSpeaking
	CmdResetXP
	CmdGetPersonality
	CmdSetPersonality
)

var commandText = map[Command][2]string{
	CmdStartSession:           {"Session started", "starting session"},
	CmdEndSession:             {"Session ended", "ending session"},
	CmdPauseSession:           {"Paused", "pausing session"},
	CmdResumeSession:          {"Resumed", "resuming session"},
	CmdSkipBreak:              {"Break skipped", "skipping break"},
	CmdSetOpenAIKey:           {"OpenAI key saved", "saving API key"},
	CmdToggleScreenMonitoring: {"Screen monitoring updated", "toggling screen monitoring"},
	CmdGetConfig:              {"Settings loaded", "loading settings"},
	CmdUpdateConfig:           {"Settings saved", "saving settings"},
	CmdSpeak:                  {"Speaking", "speaking"},
	CmdStopSpeaking:           {"Speech stopped", "stopping speech"},
	CmdResetXP:                {"XP reset", "resetting XP"},
	CmdGetPersonality:         {"Personality loaded", "loading personality"},
	CmdSetPersonality:         {"Personality changed", "changing personality"},
}

func (c Command) String() string {
	if t, ok := commandText[c]; ok {
		return t[1]
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// ResultMsg reports the outcome of one command.
type ResultMsg struct {
	Command Command
	Err     error

	Early         bool
	Goal          string
	WorkMinutes   int
	BreakMinutes  int
	Summary       model.EndSummary
	ScreenEnabled bool
	Config        bridge.RemoteConfig
	Personality   model.Personality
}

// OK reports success.
func (r ResultMsg) OK() bool {
	return r.Err == nil
}

// Text renders the transient message for this result.
func (r ResultMsg) Text() string {
	t, ok := commandText[r.Command]
	if !ok {
		t = [2]string{"Done", r.Command.String()}
	}
	if r.Err != nil {
		return "Error " + t[1] + ": " + bridge.Describe(r.Err)
	}
	if r.Command == CmdToggleScreenMonitoring {
		if r.ScreenEnabled {
			return "Screen monitoring enabled"
		}
		return "Screen monitoring disabled"
	}
	if r.Command == CmdSetPersonality && r.Personality.Name != "" {
		return "Personality: " + r.Personality.Name
	}
	return t[0]
}

// Dispatcher issues commands. It holds no state beyond its collaborators.
type Dispatcher struct {
	api API
	ctx context.Context
}

// New constructs a dispatcher whose requests are bound to ctx.
func New(ctx context.Context, api API) *Dispatcher {
	return &Dispatcher{api: api, ctx: ctx}
}

func (d *Dispatcher) run(c Command, fn func(ctx context.Context, r *ResultMsg) error) tea.Cmd {
	ctx := d.ctx
	return func() tea.Msg {
		r := ResultMsg{Command: c}
		r.Err = fn(ctx, &r)
		return r
	}
}

func fail(c Command, err error) tea.Cmd {
	return func() tea.Msg {
		return ResultMsg{Command: c, Err: err}
	}
}

// StartSession starts a session with the given goal and durations.
func (d *Dispatcher) StartSession(goal string, workMinutes, breakMinutes int) tea.Cmd {
	if workMinutes <= 0 || breakMinutes <= 0 {
		return fail(CmdStartSession, ErrInvalidLength)
	}
	goal = strings.TrimSpace(goal)
	return d.run(CmdStartSession, func(ctx context.Context, r *ResultMsg) error {
		r.Goal, r.WorkMinutes, r.BreakMinutes = goal, workMinutes, breakMinutes
		return d.api.StartSession(ctx, goal, workMinutes, breakMinutes)
	})
}

// EndSession ends the session; early asks the service to apply its penalty.
func (d *Dispatcher) EndSession(early bool) tea.Cmd {
	return d.run(CmdEndSession, func(ctx context.Context, r *ResultMsg) error {
		r.Early = early
		summary, err := d.api.EndSession(ctx, early)
		r.Summary = summary
		return err
	})
}

// PauseSession pauses the timer.
func (d *Dispatcher) PauseSession() tea.Cmd {
	return d.run(CmdPauseSession, func(ctx context.Context, _ *ResultMsg) error {
		return d.api.PauseSession(ctx)
	})
}

// ResumeSession resumes the timer.
func (d *Dispatcher) ResumeSession() tea.Cmd {
	return d.run(CmdResumeSession, func(ctx context.Context, _ *ResultMsg) error {
		return d.api.ResumeSession(ctx)
	})
}

// TogglePause pauses or resumes depending on the last known pause flag.
func (d *Dispatcher) TogglePause(paused bool) tea.Cmd {
	if paused {
		return d.ResumeSession()
	}
	return d.PauseSession()
}

// SkipBreak ends the current break.
func (d *Dispatcher) SkipBreak() tea.Cmd {
	return d.run(CmdSkipBreak, func(ctx context.Context, _ *ResultMsg) error {
		return d.api.SkipBreak(ctx)
	})
}

// SetOpenAIKey stores an API key. Blank keys are rejected locally.
func (d *Dispatcher) SetOpenAIKey(key string) tea.Cmd {
	key = strings.TrimSpace(key)
	if key == "" {
		return fail(CmdSetOpenAIKey, ErrEmptyKey)
	}
	return d.run(CmdSetOpenAIKey, func(ctx context.Context, _ *ResultMsg) error {
		return d.api.SetOpenAIKey(ctx, key)
	})
}

// ToggleScreenMonitoring asks for screen monitoring to be enabled or disabled.
func (d *Dispatcher) ToggleScreenMonitoring(enabled bool) tea.Cmd {
	return d.run(CmdToggleScreenMonitoring, func(ctx context.Context, r *ResultMsg) error {
		got, err := d.api.ToggleScreenMonitoring(ctx, enabled)
		r.ScreenEnabled = got
		return err
	})
}

// GetConfig loads the service configuration.
func (d *Dispatcher) GetConfig() tea.Cmd {
	return d.run(CmdGetConfig, func(ctx context.Context, r *ResultMsg) error {
		cfg, err := d.api.Config(ctx)
		r.Config = cfg
		return err
	})
}

// UpdateConfig sends a partial configuration.
func (d *Dispatcher) UpdateConfig(patch bridge.RemoteConfig) tea.Cmd {
	return d.run(CmdUpdateConfig, func(ctx context.Context, r *ResultMsg) error {
		r.Config = patch
		return d.api.UpdateConfig(ctx, patch)
	})
}

// Speak queues text for speech.
func (d *Dispatcher) Speak(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" {
		return fail(CmdSpeak, ErrEmptyText)
	}
	return d.run(CmdSpeak, func(ctx context.Context, _ *ResultMsg) error {
		return d.api.Speak(ctx, text)
	})
}

// StopSpeaking cancels speech.
func (d *Dispatcher) StopSpeaking() tea.Cmd {
	return d.run(CmdStopSpeaking, func(ctx context.Context, _ *ResultMsg) error {
		return d.api.StopSpeaking(ctx)
	})
}

// ResetXP clears accumulated XP.
func (d *Dispatcher) ResetXP() tea.Cmd {
	return d.run(CmdResetXP, func(ctx context.Context, _ *ResultMsg) error {
		return d.api.ResetXP(ctx)
	})
}

// GetPersonality loads the personality profile list.
func (d *Dispatcher) GetPersonality() tea.Cmd {
	return d.run(CmdGetPersonality, func(ctx context.Context, r *ResultMsg) error {
		p, err := d.api.Personality(ctx)
		r.Personality = p
		return err
	})
}

// SetPersonality switches the personality profile.
func (d *Dispatcher) SetPersonality(name string) tea.Cmd {
	name = strings.TrimSpace(name)
	if name == "" {
		return fail(CmdSetPersonality, ErrEmptyProfile)
	}
	return d.run(CmdSetPersonality, func(ctx context.Context, r *ResultMsg) error {
		r.Personality = model.Personality{Name: name}
		return d.api.SetPersonality(ctx, name)
	})
}

// NextPersonality returns the profile after current in available, wrapping.
func NextPersonality(current string, available []string) string {
	if len(available) == 0 {
		return ""
	}
	for i, name := range available {
		if name == current {
			return available[(i+1)%len(available)]
		}
	}
	return available[0]
}
