package tui

import (
	"context"
	"time"

	"github.com/verte-zerg/sarge/internal/dispatch"
	"github.com/verte-zerg/sarge/internal/logging"
	"github.com/verte-zerg/sarge/internal/store"
)

// adoptOpenSession resumes logging into a session row left open by an
// earlier run. Whether it is still running is settled by the first poll.
func (m *Model) adoptOpenSession() {
	if m.history == nil {
		return
	}
	id, ok, err := m.history.OpenSession(context.Background())
	if err != nil {
		logging.Error("failed to load session history: %v", err)
		return
	}
	if ok {
		m.historyID = id
		m.adopted = true
	}
}

func (m *Model) recordStart(r dispatch.ResultMsg) {
	m.seenActive = false
	m.adopted = false
	if m.history == nil {
		return
	}
	if m.historyID > 0 {
		m.recordEnd(false, m.state.Session().FocusMinutes)
	}
	id, err := m.history.InsertSessionStart(context.Background(), time.Now(), r.Goal, r.WorkMinutes, r.BreakMinutes)
	if err != nil {
		logging.Error("failed to record session start: %v", err)
		return
	}
	m.historyID = id
}

func (m *Model) recordEnd(early bool, focusMinutes int) {
	id := m.historyID
	m.historyID = 0
	m.seenActive = false
	m.adopted = false
	if m.history == nil || id == 0 {
		return
	}
	f := store.Finish{
		EndedAt:      time.Now(),
		EndedEarly:   early,
		SessionXP:    m.state.XP().SessionXP,
		FocusMinutes: focusMinutes,
	}
	if early {
		f.EstimatedPenalty = m.state.EstimatedPenalty()
	}
	if err := m.history.FinishSession(context.Background(), id, f); err != nil {
		logging.Error("failed to record session end: %v", err)
	}
}

// trackRemoteSession closes the history row when the service reports the
// session over without this client ending it.
func (m *Model) trackRemoteSession() {
	if m.historyID == 0 {
		return
	}
	active := m.state.Session().Active
	switch {
	case active:
		m.seenActive = true
		m.adopted = false
	case m.seenActive || m.adopted:
		logging.Info("session ended by the service")
		m.recordEnd(false, m.state.Session().FocusMinutes)
	}
}
