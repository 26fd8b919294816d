package bridge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/sarge/internal/bridge"
	"github.com/verte-zerg/sarge/internal/bridge/bridgetest"
	"github.com/verte-zerg/sarge/internal/model"
)

func newClient(t *testing.T, srv *bridgetest.Server) *bridge.Client {
	t.Helper()
	c, err := bridge.New(srv.URL(), time.Second, 2*time.Second)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := bridge.New("localhost:5050", 0, 0)
	assert.ErrorIs(t, err, bridge.ErrInvalidAddress)

	_, err = bridge.New("ftp://127.0.0.1:5050", 0, 0)
	assert.ErrorIs(t, err, bridge.ErrInvalidAddress)
}

func TestGetRejectsUnrootedPath(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	_, err := c.Get(context.Background(), "api/health")
	assert.ErrorIs(t, err, bridge.ErrInvalidAddress)

	_, err = c.Get(context.Background(), "//evil.example/api")
	assert.ErrorIs(t, err, bridge.ErrInvalidAddress)
}

func TestHTTPFailureCarriesCode(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	srv.Fail(bridge.PathStatus, 500)
	c := newClient(t, srv)

	_, err := c.Status(context.Background())
	var he *bridge.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, 500, he.Code)
	assert.Equal(t, "injected failure", he.Message)
	assert.Equal(t, "injected failure", bridge.Describe(err))
}

func TestTransportFailureWhenServiceDown(t *testing.T) {
	srv := bridgetest.NewServer()
	c := newClient(t, srv)
	srv.Close()

	err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, bridge.IsUnreachable(err))
	assert.Equal(t, "service unreachable", bridge.Describe(err))
}

func TestRequestTimeoutIsTransportFailure(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	srv.Delay(bridge.PathTimer, 500*time.Millisecond)
	c, err := bridge.New(srv.URL(), 100*time.Millisecond, 200*time.Millisecond)
	require.NoError(t, err)

	_, err = c.Timer(context.Background())
	assert.True(t, bridge.IsUnreachable(err))
}

func TestDecodeFailureOnShapeMismatch(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	srv.Raw(bridge.PathTimer, `{"remaining_seconds": 10}`)
	_, err := c.Timer(context.Background())
	var de *bridge.DecodeError
	assert.True(t, errors.As(err, &de))

	srv.Raw(bridge.PathXPStatus, `not json`)
	_, err = c.XPStatus(context.Background())
	assert.True(t, errors.As(err, &de))
}

func TestStatusDecodesNullGoal(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Active)
	assert.Empty(t, st.Goal)
	assert.Equal(t, "sergeant", st.Personality)
	assert.False(t, st.Timestamp.IsZero())
}

func TestTimerMapsEngineStates(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	srv.Raw(bridge.PathTimer, `{"state":"short_break","remaining_seconds":400,"total_seconds":300,"is_break":true,"work_minutes":25,"break_minutes":5}`)
	tm, err := c.Timer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.PhaseBreak, tm.Phase)
	assert.Equal(t, "short_break", tm.RawState)
	assert.Equal(t, 300, tm.RemainingSeconds, "remaining is clamped to total")
	assert.False(t, tm.IsPaused, "missing is_paused decodes as false")
}

func TestUnknownEnumsDecodeWithoutError(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	srv.Raw(bridge.PathAIStatus, `{"openai_available":false,"ollama_available":true,"primary_backend":"gemini"}`)
	ai, err := c.AIStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.BackendUnknown, ai.PrimaryBackend.Kind)
	assert.Equal(t, "unknown(gemini)", ai.PrimaryBackend.String())

	srv.Raw(bridge.PathJudgment, `{"classification":"daydreaming","reason":"?"}`)
	j, err := c.Judgment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ClassUnknown, j.Classification)
	assert.Equal(t, "daydreaming", j.Raw)

	srv.Raw(bridge.PathScreenStatus, `{"enabled":false,"status":"not_initialized"}`)
	sm, err := c.ScreenMonitoring(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.VisionNotInitialized, sm.Backend.Kind)
}

func TestXPStatusNullNextRank(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	srv.Raw(bridge.PathXPStatus, `{"total_xp":2000,"session_xp":5,"current_rank":"Captain","rank_progress":1.3,"next_rank_name":null,"xp_to_next_rank":0}`)
	xp, err := c.XPStatus(context.Background())
	require.NoError(t, err)
	assert.Empty(t, xp.NextRankName)
	assert.InDelta(t, 1.3, xp.RankProgress, 1e-9, "raw value is preserved, clamping happens at render")
	assert.Equal(t, model.DefaultEarlyEndPenaltyPercent, xp.EarlyEndPenaltyPercent)
}

func TestXPStatusPenaltyPercentClamped(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	for body, want := range map[string]int{
		`{"total_xp":10,"early_end_penalty_percent":0}`:   0,
		`{"total_xp":10,"early_end_penalty_percent":140}`: 100,
		`{"total_xp":10,"early_end_penalty_percent":-20}`: 0,
		`{"total_xp":10,"early_end_penalty_percent":25}`:  25,
	} {
		srv.Raw(bridge.PathXPStatus, body)
		xp, err := c.XPStatus(context.Background())
		require.NoError(t, err, body)
		assert.Equal(t, want, xp.EarlyEndPenaltyPercent, body)
	}
}

func TestWritesSendJSON(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	require.NoError(t, c.StartSession(ctx, "ship it", 50, 10))
	require.NoError(t, c.PauseSession(ctx))

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "ship it", reqs[0].Body["goal"])
	assert.EqualValues(t, 50, reqs[0].Body["work_minutes"])
	assert.EqualValues(t, 10, reqs[0].Body["break_minutes"])
	assert.Equal(t, bridge.PathSessionPause, reqs[1].Path)
}

func TestEndSessionTwiceIsOrdinaryHTTPFailure(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	require.NoError(t, c.StartSession(ctx, "", 25, 5))
	_, err := c.EndSession(ctx, false)
	require.NoError(t, err)

	_, err = c.EndSession(ctx, false)
	require.Error(t, err)
	var he *bridge.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, 409, he.Code)
	assert.False(t, bridge.IsUnreachable(err))
}

func TestConfigPatchRoundTrip(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	before, err := c.Config(ctx)
	require.NoError(t, err)

	require.NoError(t, c.UpdateConfig(ctx, bridge.XPPatch(3, 25)))

	after, err := c.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, after.XP().XPPerMinute)
	assert.Equal(t, 25, after.XP().EarlyEndPenaltyPercent)
	assert.Equal(t, before.XP().Enabled, after.XP().Enabled)
	assert.Equal(t, before["tts"], after["tts"])
	assert.Equal(t, before["pomodoro"], after["pomodoro"])
}

func TestScreenToggleReturnsServiceState(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	enabled, err := c.ToggleScreenMonitoring(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, enabled)
}
