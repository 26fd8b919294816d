package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/verte-zerg/sarge/internal/model"
)

// Endpoint paths.
const (
	PathHealth           = "/api/health"
	PathStatus           = "/api/status"
	PathTimer            = "/api/timer"
	PathAIStatus         = "/api/ai/status"
	PathXPStatus         = "/api/xp/status"
	PathJudgment         = "/api/judgment/current"
	PathScreenStatus     = "/api/screen-monitoring/status"
	PathScreenToggle     = "/api/screen-monitoring/toggle"
	PathConfig           = "/api/config"
	PathSessionStart     = "/api/session/start"
	PathSessionEnd       = "/api/session/end"
	PathSessionPause     = "/api/session/pause"
	PathSessionResume    = "/api/session/resume"
	PathSessionSkipBreak = "/api/session/skip-break"
	PathOpenAIKey        = "/api/openai-key"
	PathSpeak            = "/api/tts/speak"
	PathStopSpeaking     = "/api/tts/stop"
	PathXPReset          = "/api/xp/reset"
	PathPersonality      = "/api/personality"
	PathShutdown         = "/api/shutdown"
)

type statusWire struct {
	SessionActive    *bool   `json:"session_active"`
	FocusTimeMinutes int     `json:"focus_time_minutes"`
	CurrentGoal      *string `json:"current_goal"`
	Personality      string  `json:"personality"`
	Timestamp        string  `json:"timestamp"`
}

type timerWire struct {
	State            *string `json:"state"`
	RemainingSeconds *int    `json:"remaining_seconds"`
	TotalSeconds     int     `json:"total_seconds"`
	IsBreak          bool    `json:"is_break"`
	IsPaused         bool    `json:"is_paused"`
	WorkMinutes      int     `json:"work_minutes"`
	BreakMinutes     int     `json:"break_minutes"`
}

type aiWire struct {
	OpenAIAvailable bool    `json:"openai_available"`
	OllamaAvailable bool    `json:"ollama_available"`
	PrimaryBackend  *string `json:"primary_backend"`
	OpenAIModel     string  `json:"openai_model"`
	OllamaModel     string  `json:"ollama_model"`
}

type xpWire struct {
	TotalXP                *int     `json:"total_xp"`
	SessionXP              int      `json:"session_xp"`
	CurrentRank            string   `json:"current_rank"`
	RankProgress           float64  `json:"rank_progress"`
	NextRankName           *string  `json:"next_rank_name"`
	XPToNextRank           int      `json:"xp_to_next_rank"`
	EarlyEndPenaltyPercent *float64 `json:"early_end_penalty_percent"`
}

type judgmentWire struct {
	Classification *string `json:"classification"`
	Reason         string  `json:"reason"`
}

type screenWire struct {
	Enabled        *bool  `json:"enabled"`
	UseLocalVision bool   `json:"use_local_vision"`
	BackendStatus  string `json:"backend_status"`
	Status         string `json:"status"`
}

type personalityWire struct {
	Name              *string  `json:"name"`
	AvailableProfiles []string `json:"available_profiles"`
}

// Health reports whether the service answers /api/health with a 2xx.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.Get(ctx, PathHealth)
	return err
}

// Status fetches the session summary.
func (c *Client) Status(ctx context.Context) (model.SessionStatus, error) {
	data, err := c.Get(ctx, PathStatus)
	if err != nil {
		return model.SessionStatus{}, err
	}
	w, err := decode[statusWire](PathStatus, data)
	if err != nil {
		return model.SessionStatus{}, err
	}
	if w.SessionActive == nil {
		return model.SessionStatus{}, missingField(PathStatus, "session_active")
	}
	out := model.SessionStatus{
		Active:       *w.SessionActive,
		FocusMinutes: nonNegative(w.FocusTimeMinutes),
		Personality:  w.Personality,
		Timestamp:    parseTimestamp(w.Timestamp),
	}
	if w.CurrentGoal != nil {
		out.Goal = *w.CurrentGoal
	}
	return out, nil
}

// Timer fetches the pomodoro timer.
func (c *Client) Timer(ctx context.Context) (model.TimerStatus, error) {
	data, err := c.Get(ctx, PathTimer)
	if err != nil {
		return model.TimerStatus{}, err
	}
	w, err := decode[timerWire](PathTimer, data)
	if err != nil {
		return model.TimerStatus{}, err
	}
	if w.State == nil {
		return model.TimerStatus{}, missingField(PathTimer, "state")
	}
	if w.RemainingSeconds == nil {
		return model.TimerStatus{}, missingField(PathTimer, "remaining_seconds")
	}
	out := model.TimerStatus{
		Phase:            model.ParseTimerPhase(*w.State),
		RawState:         *w.State,
		RemainingSeconds: nonNegative(*w.RemainingSeconds),
		TotalSeconds:     nonNegative(w.TotalSeconds),
		IsBreak:          w.IsBreak,
		IsPaused:         w.IsPaused,
		WorkMinutes:      nonNegative(w.WorkMinutes),
		BreakMinutes:     nonNegative(w.BreakMinutes),
	}
	if out.TotalSeconds > 0 && out.RemainingSeconds > out.TotalSeconds {
		out.RemainingSeconds = out.TotalSeconds
	}
	return out, nil
}

// AIStatus fetches AI backend availability.
func (c *Client) AIStatus(ctx context.Context) (model.AIStatus, error) {
	data, err := c.Get(ctx, PathAIStatus)
	if err != nil {
		return model.AIStatus{}, err
	}
	w, err := decode[aiWire](PathAIStatus, data)
	if err != nil {
		return model.AIStatus{}, err
	}
	backend := "none"
	if w.PrimaryBackend != nil {
		backend = *w.PrimaryBackend
	}
	return model.AIStatus{
		OpenAIAvailable: w.OpenAIAvailable,
		OllamaAvailable: w.OllamaAvailable,
		PrimaryBackend:  model.ParseBackend(backend),
		OpenAIModel:     w.OpenAIModel,
		OllamaModel:     w.OllamaModel,
	}, nil
}

// XPStatus fetches XP and rank progress.
func (c *Client) XPStatus(ctx context.Context) (model.XPStatus, error) {
	data, err := c.Get(ctx, PathXPStatus)
	if err != nil {
		return model.XPStatus{}, err
	}
	w, err := decode[xpWire](PathXPStatus, data)
	if err != nil {
		return model.XPStatus{}, err
	}
	if w.TotalXP == nil {
		return model.XPStatus{}, missingField(PathXPStatus, "total_xp")
	}
	out := model.XPStatus{
		TotalXP:                nonNegative(*w.TotalXP),
		SessionXP:              nonNegative(w.SessionXP),
		CurrentRank:            w.CurrentRank,
		RankProgress:           w.RankProgress,
		XPToNextRank:           nonNegative(w.XPToNextRank),
		EarlyEndPenaltyPercent: model.DefaultEarlyEndPenaltyPercent,
	}
	if w.NextRankName != nil {
		out.NextRankName = *w.NextRankName
	}
	if w.EarlyEndPenaltyPercent != nil {
		out.EarlyEndPenaltyPercent = min(max(int(*w.EarlyEndPenaltyPercent), 0), 100)
	}
	return out, nil
}

// Judgment fetches the current activity classification.
func (c *Client) Judgment(ctx context.Context) (model.JudgmentStatus, error) {
	data, err := c.Get(ctx, PathJudgment)
	if err != nil {
		return model.JudgmentStatus{}, err
	}
	w, err := decode[judgmentWire](PathJudgment, data)
	if err != nil {
		return model.JudgmentStatus{}, err
	}
	if w.Classification == nil {
		return model.JudgmentStatus{}, missingField(PathJudgment, "classification")
	}
	return model.JudgmentStatus{
		Classification: model.ParseClassification(*w.Classification),
		Raw:            *w.Classification,
		Reason:         w.Reason,
	}, nil
}

// ScreenMonitoring fetches screen monitoring status.
func (c *Client) ScreenMonitoring(ctx context.Context) (model.ScreenMonitoringStatus, error) {
	data, err := c.Get(ctx, PathScreenStatus)
	if err != nil {
		return model.ScreenMonitoringStatus{}, err
	}
	w, err := decode[screenWire](PathScreenStatus, data)
	if err != nil {
		return model.ScreenMonitoringStatus{}, err
	}
	if w.Enabled == nil {
		return model.ScreenMonitoringStatus{}, missingField(PathScreenStatus, "enabled")
	}
	status := w.BackendStatus
	if status == "" {
		status = w.Status
	}
	return model.ScreenMonitoringStatus{
		Enabled:        *w.Enabled,
		UseLocalVision: w.UseLocalVision,
		Backend:        model.ParseVisionBackend(status),
	}, nil
}

// Personality fetches the active personality profile.
func (c *Client) Personality(ctx context.Context) (model.Personality, error) {
	data, err := c.Get(ctx, PathPersonality)
	if err != nil {
		return model.Personality{}, err
	}
	w, err := decode[personalityWire](PathPersonality, data)
	if err != nil {
		return model.Personality{}, err
	}
	if w.Name == nil {
		return model.Personality{}, missingField(PathPersonality, "name")
	}
	return model.Personality{Name: *w.Name, Available: w.AvailableProfiles}, nil
}

func missingField(path, field string) error {
	return &DecodeError{Path: path, Err: fmt.Errorf("missing field %q", field)}
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// parseTimestamp accepts RFC 3339 and naive ISO-8601 stamps. Naive stamps are
// read in local time since the service runs on the same host.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
