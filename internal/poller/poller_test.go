package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/sarge/internal/bridge"
	"github.com/verte-zerg/sarge/internal/bridge/bridgetest"
	"github.com/verte-zerg/sarge/internal/model"
	"github.com/verte-zerg/sarge/internal/session"
)

type fakeFetcher struct {
	mu    sync.Mutex
	errs  map[session.Record]error
	goal  string
	calls map[session.Record]int
	block chan struct{}
}

func newFake() *fakeFetcher {
	return &fakeFetcher{errs: map[session.Record]error{}, calls: map[session.Record]int{}, goal: "focus"}
}

func (f *fakeFetcher) hit(r session.Record) error {
	f.mu.Lock()
	f.calls[r]++
	err := f.errs[r]
	f.mu.Unlock()
	return err
}

func (f *fakeFetcher) setErr(r session.Record, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[r] = err
}

func (f *fakeFetcher) Health(context.Context) error { return nil }

func (f *fakeFetcher) Status(ctx context.Context) (model.SessionStatus, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return model.SessionStatus{}, ctx.Err()
		}
	}
	if err := f.hit(session.RecordSession); err != nil {
		return model.SessionStatus{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.SessionStatus{Active: true, Goal: f.goal}, nil
}

func (f *fakeFetcher) Timer(context.Context) (model.TimerStatus, error) {
	if err := f.hit(session.RecordTimer); err != nil {
		return model.TimerStatus{}, err
	}
	return model.TimerStatus{Phase: model.PhaseWorking, RawState: "working", RemainingSeconds: 90, TotalSeconds: 1500}, nil
}

func (f *fakeFetcher) XPStatus(context.Context) (model.XPStatus, error) {
	if err := f.hit(session.RecordXP); err != nil {
		return model.XPStatus{}, err
	}
	return model.XPStatus{TotalXP: 120, CurrentRank: "Private"}, nil
}

func (f *fakeFetcher) Judgment(context.Context) (model.JudgmentStatus, error) {
	if err := f.hit(session.RecordJudgment); err != nil {
		return model.JudgmentStatus{}, err
	}
	return model.JudgmentStatus{Classification: model.ClassOffTask, Raw: "off_task"}, nil
}

func (f *fakeFetcher) AIStatus(context.Context) (model.AIStatus, error) {
	if err := f.hit(session.RecordAI); err != nil {
		return model.AIStatus{}, err
	}
	return model.AIStatus{OllamaAvailable: true, PrimaryBackend: model.ParseBackend("ollama")}, nil
}

func (f *fakeFetcher) ScreenMonitoring(context.Context) (model.ScreenMonitoringStatus, error) {
	if err := f.hit(session.RecordScreen); err != nil {
		return model.ScreenMonitoringStatus{}, err
	}
	return model.ScreenMonitoringStatus{Enabled: true}, nil
}

// run executes cmd and any batched children, returning every message.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func fetched(msgs []tea.Msg) []FetchedMsg {
	var out []FetchedMsg
	for _, m := range msgs {
		if f, ok := m.(FetchedMsg); ok {
			out = append(out, f)
		}
	}
	return out
}

func applyAll(p *Poller, st *session.State, msgs []tea.Msg) {
	for _, m := range msgs {
		switch m := m.(type) {
		case FetchedMsg:
			p.Done(m)
			Apply(st, m)
		case HealthMsg:
			ApplyHealth(st, m)
		}
	}
}

func TestStartFetchesEveryRecord(t *testing.T) {
	f := newFake()
	p := New(context.Background(), f, time.Millisecond, time.Millisecond)
	defer p.Stop()

	var st session.State
	msgs := run(p.Start())
	applyAll(p, &st, msgs)

	assert.Len(t, fetched(msgs), 6)
	for r := session.RecordSession; r <= session.RecordScreen; r++ {
		assert.True(t, st.Fetched(r), r.String())
	}
	assert.Equal(t, "focus", st.Session().Goal)
	assert.Equal(t, model.WarningRed, st.WarningLevel())
	assert.Equal(t, 0, p.InFlight())
}

func TestTickIssuesFourIndependentFetches(t *testing.T) {
	f := newFake()
	p := New(context.Background(), f, time.Millisecond, time.Millisecond)
	defer p.Stop()
	var st session.State
	applyAll(p, &st, run(p.Start()))

	f.setErr(session.RecordJudgment, errors.New("judge down"))
	f.mu.Lock()
	f.goal = "second goal"
	f.mu.Unlock()

	msgs := run(p.Tick(TickMsg{}))
	got := fetched(msgs)
	require.Len(t, got, 4)
	applyAll(p, &st, msgs)

	assert.Equal(t, "second goal", st.Session().Goal, "other records still update")
	assert.Equal(t, model.ClassOffTask, st.Judgment().Classification, "failed record keeps its last value")
}

func TestFailureKeepsLastKnownValue(t *testing.T) {
	var st session.State
	ok := FetchedMsg{Record: session.RecordXP, At: time.Now(), XP: model.XPStatus{TotalXP: 42}}
	assert.True(t, Apply(&st, ok).Applied)

	failed := FetchedMsg{Record: session.RecordXP, At: time.Now(), Err: errors.New("boom")}
	assert.False(t, Apply(&st, failed).Applied)
	assert.Equal(t, 42, st.XP().TotalXP)
}

func TestTickSkippedWhileInFlight(t *testing.T) {
	f := newFake()
	p := New(context.Background(), f, time.Millisecond, time.Millisecond)
	defer p.Stop()

	first := fetched(run(p.Tick(TickMsg{})))
	require.Len(t, first, 4)
	assert.Equal(t, 4, p.InFlight(), "results not yet handed back")

	second := run(p.Tick(TickMsg{}))
	assert.Empty(t, fetched(second))
	assert.Equal(t, 1, p.Skipped())
	require.Len(t, second, 1)
	assert.IsType(t, TickMsg{}, second[0], "timer keeps running")

	for _, m := range first {
		p.Done(m)
	}
	assert.Len(t, fetched(run(p.Tick(TickMsg{}))), 4)
}

func TestStopCancelsInFlightAndEndsTicks(t *testing.T) {
	f := newFake()
	f.block = make(chan struct{})
	p := New(context.Background(), f, time.Millisecond, time.Millisecond)

	cmd := p.fetchRecord(session.RecordSession)
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	p.Stop()
	select {
	case msg := <-done:
		fm := msg.(FetchedMsg)
		assert.ErrorIs(t, fm.Err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight fetch outlived Stop")
	}

	assert.Nil(t, p.Tick(TickMsg{}))
	assert.Nil(t, p.HealthTick(HealthTickMsg{}))
	assert.Nil(t, p.RefreshSlow())
	assert.Nil(t, p.Start())
	assert.True(t, p.Stopped())
}

func TestRefreshSlowDeduplicates(t *testing.T) {
	f := newFake()
	p := New(context.Background(), f, time.Millisecond, time.Millisecond)
	defer p.Stop()

	cmd := p.RefreshSlow()
	require.NotNil(t, cmd)

	var st session.State
	applyAll(p, &st, run(cmd))
	assert.NotNil(t, p.RefreshSlow(), "previous refresh has landed")
}

func TestRefreshSlowQueuedWhileOutstanding(t *testing.T) {
	f := newFake()
	p := New(context.Background(), f, time.Millisecond, time.Millisecond)
	defer p.Stop()

	first := fetched(run(p.RefreshSlow()))
	require.Len(t, first, 2)
	assert.Nil(t, p.RefreshSlow(), "refresh already outstanding")

	assert.Nil(t, p.Done(first[0]))
	queued := p.Done(first[1])
	require.NotNil(t, queued, "queued refresh starts once the outstanding one lands")

	second := fetched(run(queued))
	require.Len(t, second, 2)
	for _, m := range second {
		assert.Nil(t, p.Done(m), "nothing else queued")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, 2, f.calls[session.RecordScreen])
	assert.Equal(t, 2, f.calls[session.RecordAI])
}

func TestServiceDownKeepsStateAndGoesOffline(t *testing.T) {
	srv := bridgetest.NewServer()
	srv.Update(func(s *bridgetest.Server) {
		s.Active = true
		s.Goal = "write docs"
		s.TimerState = "work"
		s.RemainingSeconds = 600
		s.TotalSeconds = 1500
	})
	client, err := bridge.New(srv.URL(), 200*time.Millisecond, 500*time.Millisecond)
	require.NoError(t, err)

	p := New(context.Background(), client, time.Millisecond, time.Millisecond)
	defer p.Stop()
	var st session.State
	applyAll(p, &st, run(p.Start()))
	require.True(t, st.Active())
	require.False(t, st.Offline())

	srv.Close()

	applyAll(p, &st, run(p.Tick(TickMsg{})))
	applyAll(p, &st, run(p.HealthTick(HealthTickMsg{})))
	applyAll(p, &st, run(p.HealthTick(HealthTickMsg{})))

	assert.True(t, st.Offline())
	assert.True(t, st.Active())
	assert.Equal(t, "write docs", st.Session().Goal)
	cd, ok := st.Countdown()
	assert.True(t, ok)
	assert.Equal(t, "10:00", cd)
}

func TestSnapshot(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	srv.Update(func(s *bridgetest.Server) {
		s.Classification = "on_task"
		s.TotalXP = 150
	})
	client, err := bridge.New(srv.URL(), time.Second, time.Second)
	require.NoError(t, err)

	var st session.State
	require.NoError(t, Snapshot(context.Background(), client, &st))
	assert.Equal(t, model.WarningGreen, st.WarningLevel())
	assert.Equal(t, 150, st.XP().TotalXP)
	assert.True(t, st.Fetched(session.RecordScreen))
}

func TestSnapshotAllFailed(t *testing.T) {
	srv := bridgetest.NewServer()
	client, err := bridge.New(srv.URL(), 200*time.Millisecond, 500*time.Millisecond)
	require.NoError(t, err)
	srv.Close()

	var st session.State
	err = Snapshot(context.Background(), client, &st)
	assert.True(t, bridge.IsUnreachable(err))
}

func TestApplyReportsInconsistentTimer(t *testing.T) {
	var st session.State
	out := Apply(&st, FetchedMsg{
		Record: session.RecordTimer,
		At:     time.Now(),
		Timer:  model.TimerStatus{Phase: model.PhaseWorking, RawState: "work", IsPaused: true, RemainingSeconds: 60, TotalSeconds: 120},
	})
	require.Error(t, out.Inconsistent)
	assert.True(t, out.Applied)
	assert.Equal(t, "Resume", st.PauseAction())
}
