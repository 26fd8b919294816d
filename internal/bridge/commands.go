package bridge

import (
	"context"

	"github.com/verte-zerg/sarge/internal/model"
)

type startRequest struct {
	Goal         string `json:"goal"`
	WorkMinutes  int    `json:"work_minutes"`
	BreakMinutes int    `json:"break_minutes"`
}

type endRequest struct {
	Early bool `json:"early"`
}

type endResponse struct {
	Summary struct {
		FocusMinutes       int `json:"focus_minutes"`
		Distractions       int `json:"distractions"`
		PomodorosCompleted int `json:"pomodoros_completed"`
	} `json:"summary"`
}

type toggleResponse struct {
	Enabled *bool `json:"enabled"`
}

// StartSession begins a focus session.
func (c *Client) StartSession(ctx context.Context, goal string, workMinutes, breakMinutes int) error {
	_, err := c.Post(ctx, PathSessionStart, startRequest{Goal: goal, WorkMinutes: workMinutes, BreakMinutes: breakMinutes})
	return err
}

// EndSession ends the current session. With early set the service applies
// its early-end XP penalty.
func (c *Client) EndSession(ctx context.Context, early bool) (model.EndSummary, error) {
	data, err := c.Post(ctx, PathSessionEnd, endRequest{Early: early})
	if err != nil {
		return model.EndSummary{}, err
	}
	resp, err := decode[endResponse](PathSessionEnd, data)
	if err != nil {
		return model.EndSummary{}, err
	}
	return model.EndSummary{
		FocusMinutes:       nonNegative(resp.Summary.FocusMinutes),
		Distractions:       nonNegative(resp.Summary.Distractions),
		PomodorosCompleted: nonNegative(resp.Summary.PomodorosCompleted),
	}, nil
}

// PauseSession pauses the timer.
func (c *Client) PauseSession(ctx context.Context) error {
	_, err := c.Post(ctx, PathSessionPause, nil)
	return err
}

// ResumeSession resumes a paused timer.
func (c *Client) ResumeSession(ctx context.Context) error {
	_, err := c.Post(ctx, PathSessionResume, nil)
	return err
}

// SkipBreak ends the current break.
func (c *Client) SkipBreak(ctx context.Context) error {
	_, err := c.Post(ctx, PathSessionSkipBreak, nil)
	return err
}

// SetOpenAIKey stores an OpenAI API key on the service.
func (c *Client) SetOpenAIKey(ctx context.Context, key string) error {
	_, err := c.Post(ctx, PathOpenAIKey, map[string]string{"api_key": key})
	return err
}

// ToggleScreenMonitoring enables or disables screen monitoring and returns
// the state the service reports afterwards.
func (c *Client) ToggleScreenMonitoring(ctx context.Context, enabled bool) (bool, error) {
	data, err := c.Post(ctx, PathScreenToggle, map[string]bool{"enabled": enabled})
	if err != nil {
		return false, err
	}
	resp, err := decode[toggleResponse](PathScreenToggle, data)
	if err != nil {
		return false, err
	}
	if resp.Enabled == nil {
		return enabled, nil
	}
	return *resp.Enabled, nil
}

// Config fetches the service configuration. Secrets come back masked.
func (c *Client) Config(ctx context.Context) (RemoteConfig, error) {
	data, err := c.Get(ctx, PathConfig)
	if err != nil {
		return nil, err
	}
	return decode[RemoteConfig](PathConfig, data)
}

// UpdateConfig sends a partial configuration. Nested objects are merged by
// the service one level deep.
func (c *Client) UpdateConfig(ctx context.Context, patch RemoteConfig) error {
	_, err := c.Patch(ctx, PathConfig, patch)
	return err
}

// Speak queues text for speech.
func (c *Client) Speak(ctx context.Context, text string) error {
	_, err := c.Post(ctx, PathSpeak, map[string]string{"text": text})
	return err
}

// StopSpeaking cancels queued and playing speech.
func (c *Client) StopSpeaking(ctx context.Context) error {
	_, err := c.Post(ctx, PathStopSpeaking, nil)
	return err
}

// ResetXP clears accumulated XP.
func (c *Client) ResetXP(ctx context.Context) error {
	_, err := c.Post(ctx, PathXPReset, nil)
	return err
}

// SetPersonality switches the personality profile.
func (c *Client) SetPersonality(ctx context.Context, name string) error {
	_, err := c.Post(ctx, PathPersonality, map[string]string{"profile": name})
	return err
}

// Shutdown asks the service process to exit.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.Post(ctx, PathShutdown, nil)
	return err
}
