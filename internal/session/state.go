// Package session holds the client-side mirror of the remote session state.
//
// State is owned by a single goroutine (the UI loop). Every write goes
// through one of the Apply/Mark methods; readers use the derived accessors.
package session

import (
	"fmt"
	"time"

	"github.com/verte-zerg/sarge/internal/model"
)

// Record identifies one independently fetched sub-record.
type Record int

const (
	RecordSession Record = iota
	RecordTimer
	RecordXP
	RecordJudgment
	RecordAI
	RecordScreen
	recordCount
)

func (r Record) String() string {
	switch r {
	case RecordSession:
		return "session"
	case RecordTimer:
		return "timer"
	case RecordXP:
		return "xp"
	case RecordJudgment:
		return "judgment"
	case RecordAI:
		return "ai"
	case RecordScreen:
		return "screen"
	default:
		return "unknown"
	}
}

// offlineThreshold is the number of consecutive health or AI status failures
// after which the service is considered offline.
const offlineThreshold = 2

// State is the local mirror. The zero value is ready to use and renders the
// empty defaults.
type State struct {
	session  model.SessionStatus
	timer    model.TimerStatus
	xp       model.XPStatus
	judgment model.JudgmentStatus
	ai       model.AIStatus
	screen   model.ScreenMonitoringStatus

	fetchedAt [recordCount]time.Time

	// optimistic holds the locally assumed active flag after a successful
	// start or end command, until the next successful session poll.
	optimistic *bool

	healthFailures int
	offline        bool
}

// ApplySession replaces the session record and drops any optimistic flag.
func (s *State) ApplySession(st model.SessionStatus, at time.Time) {
	s.session = st
	s.optimistic = nil
	s.fetchedAt[RecordSession] = at
}

// ApplyTimer replaces the timer record. It returns a non-nil error describing
// a disagreement between the reported phase and pause flag; the record is
// applied regardless.
func (s *State) ApplyTimer(t model.TimerStatus, at time.Time) error {
	s.timer = t
	s.fetchedAt[RecordTimer] = at
	return timerDisagreement(t)
}

func timerDisagreement(t model.TimerStatus) error {
	switch {
	case t.Phase == model.PhasePaused && !t.IsPaused:
		return fmt.Errorf("timer state %q reported with is_paused=false", t.RawState)
	case t.IsPaused && t.Phase != model.PhasePaused && t.Phase != model.PhaseUnknown:
		return fmt.Errorf("timer state %q reported with is_paused=true", t.RawState)
	case t.Phase == model.PhaseBreak && !t.IsBreak:
		return fmt.Errorf("timer state %q reported with is_break=false", t.RawState)
	case t.Phase == model.PhaseWorking && t.IsBreak:
		return fmt.Errorf("timer state %q reported with is_break=true", t.RawState)
	}
	return nil
}

// ApplyXP replaces the XP record.
func (s *State) ApplyXP(xp model.XPStatus, at time.Time) {
	s.xp = xp
	s.fetchedAt[RecordXP] = at
}

// ApplyJudgment replaces the judgment record and reports whether the
// classification changed.
func (s *State) ApplyJudgment(j model.JudgmentStatus, at time.Time) bool {
	changed := s.fetchedAt[RecordJudgment].IsZero() || j.Raw != s.judgment.Raw
	s.judgment = j
	s.fetchedAt[RecordJudgment] = at
	return changed
}

// ApplyAI replaces the AI record and counts as a successful probe.
func (s *State) ApplyAI(ai model.AIStatus, at time.Time) {
	s.ai = ai
	s.fetchedAt[RecordAI] = at
	s.ApplyHealth(true)
}

// ApplyAIFailure counts a failed AI status fetch towards the offline state.
func (s *State) ApplyAIFailure() {
	s.ApplyHealth(false)
}

// ApplyScreen replaces the screen monitoring record.
func (s *State) ApplyScreen(sm model.ScreenMonitoringStatus, at time.Time) {
	s.screen = sm
	s.fetchedAt[RecordScreen] = at
}

// ApplyHealth records a health probe outcome and reports whether the offline
// indicator flipped.
func (s *State) ApplyHealth(ok bool) bool {
	was := s.offline
	if ok {
		s.healthFailures = 0
		s.offline = false
	} else {
		s.healthFailures++
		if s.healthFailures >= offlineThreshold {
			s.offline = true
		}
	}
	return was != s.offline
}

// MarkStarted sets the optimistic active flag after a start succeeded.
func (s *State) MarkStarted() {
	active := true
	s.optimistic = &active
}

// MarkEnded clears the optimistic active flag after an end succeeded.
func (s *State) MarkEnded() {
	active := false
	s.optimistic = &active
}

// SetScreenMonitoring flips the screen monitoring flag ahead of the service.
func (s *State) SetScreenMonitoring(enabled bool) {
	s.screen.Enabled = enabled
}

// Session returns the last known session record.
func (s *State) Session() model.SessionStatus { return s.session }

// Timer returns the last known timer record.
func (s *State) Timer() model.TimerStatus { return s.timer }

// XP returns the last known XP record.
func (s *State) XP() model.XPStatus { return s.xp }

// Judgment returns the last known judgment.
func (s *State) Judgment() model.JudgmentStatus { return s.judgment }

// AI returns the last known AI status.
func (s *State) AI() model.AIStatus { return s.ai }

// Screen returns the last known screen monitoring status.
func (s *State) Screen() model.ScreenMonitoringStatus { return s.screen }

// Fetched reports whether r was ever received.
func (s *State) Fetched(r Record) bool {
	return !s.fetchedAt[r].IsZero()
}

// Active reports whether a session is running, preferring the optimistic
// flag until the next session poll lands.
func (s *State) Active() bool {
	if s.optimistic != nil {
		return *s.optimistic
	}
	return s.session.Active
}

// Optimistic reports whether Active is currently a local assumption.
func (s *State) Optimistic() bool {
	return s.optimistic != nil
}

// Offline reports whether the service is confirmed unreachable.
func (s *State) Offline() bool {
	return s.offline
}

// WarningLevel derives the traffic light from the current judgment.
func (s *State) WarningLevel() model.WarningLevel {
	return s.judgment.Classification.Warning()
}

// Paused reports the pause flag. The is_paused field is authoritative for
// pause/resume, whatever the phase says.
func (s *State) Paused() bool {
	return s.timer.IsPaused
}

// PauseAction is the label of the pause/resume control.
func (s *State) PauseAction() string {
	if s.timer.IsPaused {
		return "Resume"
	}
	return "Pause"
}

// Phase returns the work/break phase with the pause overlay removed: a
// "paused" state string maps back to working or break using is_break.
func (s *State) Phase() model.TimerPhase {
	if s.timer.Phase == model.PhasePaused {
		if s.timer.IsBreak {
			return model.PhaseBreak
		}
		return model.PhaseWorking
	}
	return s.timer.Phase
}

// PhaseLabel renders the phase for display.
func (s *State) PhaseLabel() string {
	var label string
	switch s.Phase() {
	case model.PhaseIdle:
		return "Idle"
	case model.PhaseWorking:
		label = "Focus"
	case model.PhaseBreak:
		label = "Break"
	case model.PhaseCompleted:
		return "Completed"
	default:
		if s.timer.RawState != "" {
			label = s.timer.RawState
		} else {
			label = "Unknown"
		}
	}
	if s.timer.IsPaused {
		label += " (paused)"
	}
	return label
}

// Completed reports whether the timer finished.
func (s *State) Completed() bool {
	return s.timer.Phase == model.PhaseCompleted
}

// Countdown renders the remaining time as mm:ss. It reports false when no
// countdown should be shown.
func (s *State) Countdown() (string, bool) {
	switch s.Phase() {
	case model.PhaseIdle, model.PhaseCompleted:
		return "", false
	}
	if !s.Fetched(RecordTimer) {
		return "", false
	}
	rem := s.timer.RemainingSeconds
	return fmt.Sprintf("%02d:%02d", rem/60, rem%60), true
}

// TimerProgress is the elapsed fraction of the current phase.
func (s *State) TimerProgress() float64 {
	if s.timer.TotalSeconds <= 0 {
		return 0
	}
	elapsed := s.timer.TotalSeconds - s.timer.RemainingSeconds
	return model.ClampProgress(float64(elapsed) / float64(s.timer.TotalSeconds))
}

// RankProgress is the rank progress bounded to [0,1].
func (s *State) RankProgress() float64 {
	return model.ClampProgress(s.xp.RankProgress)
}

// EstimatePenalty estimates the XP lost by ending early. The service
// computes the real penalty; this is for the confirmation prompt only.
func EstimatePenalty(sessionXP, percent int) int {
	if sessionXP <= 0 || percent <= 0 {
		return 0
	}
	if percent > 100 {
		percent = 100
	}
	return sessionXP * percent / 100
}

// PenaltyPercent resolves the early-end penalty percent. A fetched XP record
// is authoritative, including 0; otherwise the service default applies.
func PenaltyPercent(xp model.XPStatus, fetched bool) int {
	if !fetched {
		return model.DefaultEarlyEndPenaltyPercent
	}
	return min(max(xp.EarlyEndPenaltyPercent, 0), 100)
}

// PenaltyPercent applies PenaltyPercent to the last known XP record.
func (s *State) PenaltyPercent() int {
	return PenaltyPercent(s.xp, s.Fetched(RecordXP))
}

// EstimatedPenalty estimates the early-end penalty from the last known XP
// record.
func (s *State) EstimatedPenalty() int {
	return EstimatePenalty(s.xp.SessionXP, s.PenaltyPercent())
}
