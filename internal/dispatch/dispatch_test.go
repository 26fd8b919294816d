package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/sarge/internal/bridge"
	"github.com/verte-zerg/sarge/internal/bridge/bridgetest"
	"github.com/verte-zerg/sarge/internal/dispatch"
)

func setup(t *testing.T) (*bridgetest.Server, *dispatch.Dispatcher) {
	t.Helper()
	srv := bridgetest.NewServer()
	t.Cleanup(srv.Close)
	c, err := bridge.New(srv.URL(), time.Second, 2*time.Second)
	require.NoError(t, err)
	return srv, dispatch.New(context.Background(), c)
}

// peek reads fake state under its lock.
type fakeState struct {
	Active      bool
	Goal        string
	IsPaused    bool
	TotalXP     int
	OpenAIKey   string
	Personality string
	Spoken      []string
}

func peek(srv *bridgetest.Server) fakeState {
	var snap fakeState
	srv.Update(func(s *bridgetest.Server) {
		snap = fakeState{
			Active:      s.Active,
			Goal:        s.Goal,
			IsPaused:    s.IsPaused,
			TotalXP:     s.TotalXP,
			OpenAIKey:   s.OpenAIKey,
			Personality: s.Personality,
			Spoken:      append([]string(nil), s.Spoken...),
		}
	})
	return snap
}

func TestStartSessionSendsOneRequest(t *testing.T) {
	srv, d := setup(t)

	msg := d.StartSession("  write report ", 25, 5)()
	r, ok := msg.(dispatch.ResultMsg)
	require.True(t, ok)
	require.NoError(t, r.Err)
	assert.Equal(t, dispatch.CmdStartSession, r.Command)
	assert.Equal(t, "write report", r.Goal)
	assert.Equal(t, 25, r.WorkMinutes)
	assert.Equal(t, "Session started", r.Text())

	assert.Equal(t, 1, srv.Count("POST", bridge.PathSessionStart))
	assert.Len(t, srv.Requests(), 1)
	assert.True(t, peek(srv).Active)
	assert.Equal(t, "write report", peek(srv).Goal)
}

func TestStartSessionRejectsZeroLength(t *testing.T) {
	srv, d := setup(t)

	r := d.StartSession("goal", 0, 5)().(dispatch.ResultMsg)
	assert.ErrorIs(t, r.Err, dispatch.ErrInvalidLength)
	assert.Empty(t, srv.Requests())
}

func TestStartFailureReportsReason(t *testing.T) {
	srv, d := setup(t)
	srv.Close()

	r := d.StartSession("goal", 25, 5)().(dispatch.ResultMsg)
	require.Error(t, r.Err)
	assert.False(t, r.OK())
	assert.Equal(t, "Error starting session: service unreachable", r.Text())
}

func TestEndSessionTwiceSurfacesConflict(t *testing.T) {
	_, d := setup(t)

	require.NoError(t, d.StartSession("", 25, 5)().(dispatch.ResultMsg).Err)

	first := d.EndSession(false)().(dispatch.ResultMsg)
	require.NoError(t, first.Err)
	assert.False(t, first.Early)

	second := d.EndSession(false)().(dispatch.ResultMsg)
	require.Error(t, second.Err)
	var he *bridge.HTTPError
	require.True(t, errors.As(second.Err, &he))
	assert.Equal(t, 409, he.Code)
	assert.Equal(t, "Error ending session: No active session", second.Text())
}

func TestEndEarlyCarriesFlag(t *testing.T) {
	srv, d := setup(t)
	srv.Update(func(s *bridgetest.Server) {
		s.Active = true
		s.TotalXP = 100
		s.SessionXP = 40
	})

	r := d.EndSession(true)().(dispatch.ResultMsg)
	require.NoError(t, r.Err)
	assert.True(t, r.Early)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, true, reqs[0].Body["early"])
	assert.Equal(t, 80, peek(srv).TotalXP)
}

func TestTogglePauseFollowsFlag(t *testing.T) {
	srv, d := setup(t)

	r := d.TogglePause(false)().(dispatch.ResultMsg)
	require.NoError(t, r.Err)
	assert.Equal(t, dispatch.CmdPauseSession, r.Command)
	assert.True(t, peek(srv).IsPaused)

	r = d.TogglePause(true)().(dispatch.ResultMsg)
	require.NoError(t, r.Err)
	assert.Equal(t, dispatch.CmdResumeSession, r.Command)
	assert.False(t, peek(srv).IsPaused)
}

func TestEmptyKeyRejectedLocally(t *testing.T) {
	srv, d := setup(t)

	r := d.SetOpenAIKey("   ")().(dispatch.ResultMsg)
	assert.ErrorIs(t, r.Err, dispatch.ErrEmptyKey)
	assert.Equal(t, "Error saving API key: api key is required", r.Text())
	assert.Empty(t, srv.Requests())

	r = d.SetOpenAIKey("sk-test")().(dispatch.ResultMsg)
	require.NoError(t, r.Err)
	assert.Equal(t, "sk-test", peek(srv).OpenAIKey)
}

func TestToggleScreenMonitoringReportsServerFlag(t *testing.T) {
	_, d := setup(t)

	r := d.ToggleScreenMonitoring(true)().(dispatch.ResultMsg)
	require.NoError(t, r.Err)
	assert.True(t, r.ScreenEnabled)
	assert.Equal(t, "Screen monitoring enabled", r.Text())
}

func TestConfigRoundTrip(t *testing.T) {
	_, d := setup(t)

	r := d.UpdateConfig(bridge.XPPatch(3, 25))().(dispatch.ResultMsg)
	require.NoError(t, r.Err)

	r = d.GetConfig()().(dispatch.ResultMsg)
	require.NoError(t, r.Err)
	xp := r.Config.XP()
	assert.Equal(t, 3, xp.XPPerMinute)
	assert.Equal(t, 25, xp.EarlyEndPenaltyPercent)
}

func TestSpeakValidatesText(t *testing.T) {
	srv, d := setup(t)

	r := d.Speak("")().(dispatch.ResultMsg)
	assert.ErrorIs(t, r.Err, dispatch.ErrEmptyText)

	r = d.Speak("drop and give me twenty")().(dispatch.ResultMsg)
	require.NoError(t, r.Err)
	require.NoError(t, d.StopSpeaking()().(dispatch.ResultMsg).Err)
	assert.Equal(t, []string{"drop and give me twenty"}, peek(srv).Spoken)
}

func TestPersonalityCycle(t *testing.T) {
	srv, d := setup(t)
	srv.Update(func(s *bridgetest.Server) {
		s.Personality = "drill_sergeant"
		s.Profiles = []string{"drill_sergeant", "coach", "zen"}
	})

	r := d.GetPersonality()().(dispatch.ResultMsg)
	require.NoError(t, r.Err)
	next := dispatch.NextPersonality(r.Personality.Name, r.Personality.Available)
	assert.Equal(t, "coach", next)

	r = d.SetPersonality(next)().(dispatch.ResultMsg)
	require.NoError(t, r.Err)
	assert.Equal(t, "Personality: coach", r.Text())
	assert.Equal(t, "coach", peek(srv).Personality)
}

func TestNextPersonalityWraps(t *testing.T) {
	profiles := []string{"a", "b"}
	assert.Equal(t, "a", dispatch.NextPersonality("b", profiles))
	assert.Equal(t, "a", dispatch.NextPersonality("missing", profiles))
	assert.Equal(t, "", dispatch.NextPersonality("a", nil))
}

func TestResetXP(t *testing.T) {
	srv, d := setup(t)
	srv.Update(func(s *bridgetest.Server) { s.TotalXP = 500 })

	r := d.ResetXP()().(dispatch.ResultMsg)
	require.NoError(t, r.Err)
	assert.Equal(t, 0, peek(srv).TotalXP)
}
