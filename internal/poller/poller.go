// Package poller keeps the local session state in step with the service.
//
// The poller never touches state itself. Its commands run off the UI loop and
// return messages; the owner of the state applies them with Apply.
package poller

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/sarge/internal/logging"
	"github.com/verte-zerg/sarge/internal/model"
	"github.com/verte-zerg/sarge/internal/session"
)

const (
	DefaultInterval       = time.Second
	DefaultHealthInterval = 5 * time.Second
)

// Fetcher is the subset of the bridge client the poller reads from.
type Fetcher interface {
	Health(ctx context.Context) error
	Status(ctx context.Context) (model.SessionStatus, error)
	Timer(ctx context.Context) (model.TimerStatus, error)
	XPStatus(ctx context.Context) (model.XPStatus, error)
	Judgment(ctx context.Context) (model.JudgmentStatus, error)
	AIStatus(ctx context.Context) (model.AIStatus, error)
	ScreenMonitoring(ctx context.Context) (model.ScreenMonitoringStatus, error)
}

// TickMsg fires once per poll interval.
type TickMsg struct {
	At time.Time
}

// HealthTickMsg fires once per health interval.
type HealthTickMsg struct {
	At time.Time
}

// HealthMsg carries the outcome of a health probe.
type HealthMsg struct {
	At  time.Time
	Err error
}

// FetchedMsg carries one sub-record fetch. Exactly one payload field is
// meaningful, selected by Record, and only when Err is nil.
type FetchedMsg struct {
	Record   session.Record
	At       time.Time
	Err      error
	Session  model.SessionStatus
	Timer    model.TimerStatus
	XP       model.XPStatus
	Judgment model.JudgmentStatus
	AI       model.AIStatus
	Screen   model.ScreenMonitoringStatus
}

var fastRecords = []session.Record{
	session.RecordSession,
	session.RecordTimer,
	session.RecordXP,
	session.RecordJudgment,
}

var slowRecords = []session.Record{
	session.RecordAI,
	session.RecordScreen,
}

// Poller schedules status fetches. Its methods must be called from the
// goroutine that owns the state; the commands it returns may run anywhere.
type Poller struct {
	fetch          Fetcher
	interval       time.Duration
	healthInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	fastInFlight int
	slowInFlight int
	// slowPending is set when a refresh was asked for while one was
	// outstanding; the results already in flight may predate the request.
	slowPending bool
	skipped     int
	stopped     bool
}

// New constructs a poller whose requests are bound to parent.
func New(parent context.Context, f Fetcher, interval, healthInterval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if healthInterval <= 0 {
		healthInterval = DefaultHealthInterval
	}
	ctx, cancel := context.WithCancel(parent)
	return &Poller{
		fetch:          f,
		interval:       interval,
		healthInterval: healthInterval,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start issues the first round of fetches and schedules the timers.
func (p *Poller) Start() tea.Cmd {
	if p.stopped {
		return nil
	}
	return tea.Batch(
		p.fetchFast(),
		p.RefreshSlow(),
		p.probeHealth(),
		p.scheduleTick(),
		p.scheduleHealthTick(),
	)
}

// Stop cancels in-flight requests. No further ticks are scheduled.
func (p *Poller) Stop() {
	p.stopped = true
	p.cancel()
}

// Stopped reports whether Stop was called.
func (p *Poller) Stopped() bool {
	return p.stopped
}

// Skipped returns how many ticks were skipped because the previous tick's
// fetches were still in flight.
func (p *Poller) Skipped() int {
	return p.skipped
}

// InFlight returns the number of outstanding per-tick fetches.
func (p *Poller) InFlight() int {
	return p.fastInFlight
}

// Tick handles a TickMsg. A tick whose predecessor is still in flight issues
// no fetches, so results for a sub-record never arrive out of order.
func (p *Poller) Tick(TickMsg) tea.Cmd {
	if p.stopped {
		return nil
	}
	if p.fastInFlight > 0 {
		p.skipped++
		logging.Debug("poll tick skipped, %d fetches still in flight", p.fastInFlight)
		return p.scheduleTick()
	}
	return tea.Batch(p.fetchFast(), p.scheduleTick())
}

// HealthTick handles a HealthTickMsg.
func (p *Poller) HealthTick(HealthTickMsg) tea.Cmd {
	if p.stopped {
		return nil
	}
	return tea.Batch(p.probeHealth(), p.scheduleHealthTick())
}

// RefreshSlow fetches the rarely changing records: AI and screen monitoring
// status. While a previous refresh is outstanding it issues nothing and
// queues one more round, started by Done once the outstanding one lands.
func (p *Poller) RefreshSlow() tea.Cmd {
	if p.stopped {
		return nil
	}
	if p.slowInFlight > 0 {
		p.slowPending = true
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(slowRecords))
	for _, r := range slowRecords {
		cmds = append(cmds, p.fetchRecord(r))
	}
	p.slowInFlight = len(slowRecords)
	return tea.Batch(cmds...)
}

// Done must be called for every FetchedMsg before it is applied. It returns
// the queued refresh, if any, once the outstanding one has fully landed.
func (p *Poller) Done(msg FetchedMsg) tea.Cmd {
	switch msg.Record {
	case session.RecordAI, session.RecordScreen:
		if p.slowInFlight > 0 {
			p.slowInFlight--
		}
		if p.slowInFlight == 0 && p.slowPending {
			p.slowPending = false
			return p.RefreshSlow()
		}
	default:
		if p.fastInFlight > 0 {
			p.fastInFlight--
		}
	}
	return nil
}

func (p *Poller) fetchFast() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(fastRecords))
	for _, r := range fastRecords {
		cmds = append(cmds, p.fetchRecord(r))
	}
	p.fastInFlight = len(fastRecords)
	return tea.Batch(cmds...)
}

func (p *Poller) scheduleTick() tea.Cmd {
	return tea.Tick(p.interval, func(at time.Time) tea.Msg {
		return TickMsg{At: at}
	})
}

func (p *Poller) scheduleHealthTick() tea.Cmd {
	return tea.Tick(p.healthInterval, func(at time.Time) tea.Msg {
		return HealthTickMsg{At: at}
	})
}

func (p *Poller) probeHealth() tea.Cmd {
	ctx, f := p.ctx, p.fetch
	return func() tea.Msg {
		err := f.Health(ctx)
		return HealthMsg{At: time.Now(), Err: err}
	}
}

func (p *Poller) fetchRecord(r session.Record) tea.Cmd {
	ctx, f := p.ctx, p.fetch
	return func() tea.Msg {
		return fetchOne(ctx, f, r)
	}
}

func fetchOne(ctx context.Context, f Fetcher, r session.Record) FetchedMsg {
	msg := FetchedMsg{Record: r}
	switch r {
	case session.RecordSession:
		msg.Session, msg.Err = f.Status(ctx)
	case session.RecordTimer:
		msg.Timer, msg.Err = f.Timer(ctx)
	case session.RecordXP:
		msg.XP, msg.Err = f.XPStatus(ctx)
	case session.RecordJudgment:
		msg.Judgment, msg.Err = f.Judgment(ctx)
	case session.RecordAI:
		msg.AI, msg.Err = f.AIStatus(ctx)
	case session.RecordScreen:
		msg.Screen, msg.Err = f.ScreenMonitoring(ctx)
	}
	msg.At = time.Now()
	return msg
}

// Outcome describes what applying a FetchedMsg changed.
type Outcome struct {
	// Applied is false when the fetch failed and the old value was kept.
	Applied bool
	// JudgmentChanged is set when a new classification arrived.
	JudgmentChanged bool
	// OfflineChanged is set when the offline indicator flipped.
	OfflineChanged bool
	// Inconsistent describes a timer record whose phase and flags disagree.
	// The record is applied regardless.
	Inconsistent error
}

// Apply merges msg into st. A failed fetch leaves the previous value in
// place; only AI status failures count towards the offline indicator.
func Apply(st *session.State, msg FetchedMsg) Outcome {
	var out Outcome
	if msg.Err != nil {
		logging.Debug("%s poll failed: %v", msg.Record, msg.Err)
		if msg.Record == session.RecordAI {
			was := st.Offline()
			st.ApplyAIFailure()
			out.OfflineChanged = was != st.Offline()
		}
		return out
	}
	out.Applied = true
	switch msg.Record {
	case session.RecordSession:
		st.ApplySession(msg.Session, msg.At)
	case session.RecordTimer:
		out.Inconsistent = st.ApplyTimer(msg.Timer, msg.At)
	case session.RecordXP:
		st.ApplyXP(msg.XP, msg.At)
	case session.RecordJudgment:
		out.JudgmentChanged = st.ApplyJudgment(msg.Judgment, msg.At)
	case session.RecordAI:
		was := st.Offline()
		st.ApplyAI(msg.AI, msg.At)
		out.OfflineChanged = was != st.Offline()
	case session.RecordScreen:
		st.ApplyScreen(msg.Screen, msg.At)
	}
	return out
}

// ApplyHealth merges a health probe outcome and reports whether the offline
// indicator flipped.
func ApplyHealth(st *session.State, msg HealthMsg) bool {
	if msg.Err != nil {
		logging.Debug("health probe failed: %v", msg.Err)
	}
	return st.ApplyHealth(msg.Err == nil)
}

// Snapshot fetches every record once, concurrently, and applies the results
// on the calling goroutine. It returns the first transport-level error when
// every fetch failed.
func Snapshot(ctx context.Context, f Fetcher, st *session.State) error {
	records := append(append([]session.Record{}, fastRecords...), slowRecords...)
	results := make(chan FetchedMsg, len(records))
	var wg sync.WaitGroup
	for _, r := range records {
		wg.Add(1)
		go func(r session.Record) {
			defer wg.Done()
			results <- fetchOne(ctx, f, r)
		}(r)
	}
	wg.Wait()
	close(results)

	var firstErr error
	failures := 0
	for msg := range results {
		if msg.Err != nil {
			failures++
			if firstErr == nil {
				firstErr = msg.Err
			}
		}
		if out := Apply(st, msg); out.Inconsistent != nil {
			logging.Warn("inconsistent timer status: %v", out.Inconsistent)
		}
	}
	if failures == len(records) {
		return firstErr
	}
	return nil
}
