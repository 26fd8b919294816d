// Package model defines shared data structures.
package model

import "time"

// Config defines client settings after flags and the config file are merged.
type Config struct {
	BaseURL         string
	RequestTimeout  time.Duration
	ResourceTimeout time.Duration
	PollInterval    time.Duration
	HealthInterval  time.Duration
	Goal            string
	WorkMinutes     int
	BreakMinutes    int
	ToastDuration   time.Duration
}

// SessionStatus mirrors /api/status.
type SessionStatus struct {
	Active       bool
	FocusMinutes int
	Goal         string
	Personality  string
	Timestamp    time.Time
}

// TimerPhase is the work/break phase reported by the pomodoro timer.
type TimerPhase int

const (
	PhaseUnknown TimerPhase = iota
	PhaseIdle
	PhaseWorking
	PhaseBreak
	PhasePaused
	PhaseCompleted
)

// ParseTimerPhase maps a server state string onto a phase. Both the
// documented names and the pomodoro engine's own spellings are accepted.
func ParseTimerPhase(s string) TimerPhase {
	switch s {
	case "idle", "stopped", "":
		return PhaseIdle
	case "working", "work":
		return PhaseWorking
	case "break", "short_break", "long_break":
		return PhaseBreak
	case "paused":
		return PhasePaused
	case "completed":
		return PhaseCompleted
	default:
		return PhaseUnknown
	}
}

func (p TimerPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWorking:
		return "working"
	case PhaseBreak:
		return "break"
	case PhasePaused:
		return "paused"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// TimerStatus mirrors /api/timer.
type TimerStatus struct {
	Phase            TimerPhase
	RawState         string
	RemainingSeconds int
	TotalSeconds     int
	IsBreak          bool
	IsPaused         bool
	WorkMinutes      int
	BreakMinutes     int
}

// BackendKind enumerates AI backends.
type BackendKind int

const (
	BackendUnknown BackendKind = iota
	BackendNone
	BackendOpenAI
	BackendOllama
)

// Backend is a decoded primary_backend value. Raw keeps the server string so
// unrecognised values can still be displayed.
type Backend struct {
	Kind BackendKind
	Raw  string
}

// ParseBackend decodes primary_backend.
func ParseBackend(s string) Backend {
	switch s {
	case "openai":
		return Backend{Kind: BackendOpenAI, Raw: s}
	case "ollama":
		return Backend{Kind: BackendOllama, Raw: s}
	case "none", "":
		return Backend{Kind: BackendNone, Raw: s}
	default:
		return Backend{Kind: BackendUnknown, Raw: s}
	}
}

func (b Backend) String() string {
	switch b.Kind {
	case BackendOpenAI:
		return "openai"
	case BackendOllama:
		return "ollama"
	case BackendNone:
		return "none"
	default:
		if b.Raw == "" {
			return "unknown"
		}
		return "unknown(" + b.Raw + ")"
	}
}

// AIStatus mirrors /api/ai/status.
type AIStatus struct {
	OpenAIAvailable bool
	OllamaAvailable bool
	PrimaryBackend  Backend
	OpenAIModel     string
	OllamaModel     string
}

// XPStatus mirrors /api/xp/status.
type XPStatus struct {
	TotalXP                int
	SessionXP              int
	CurrentRank            string
	RankProgress           float64
	NextRankName           string
	XPToNextRank           int
	EarlyEndPenaltyPercent int
}

// DefaultEarlyEndPenaltyPercent is used when the server has not reported one.
const DefaultEarlyEndPenaltyPercent = 50

// ClampProgress bounds a progress ratio to [0,1].
func ClampProgress(v float64) float64 {
	if v != v || v < 0 { // NaN or negative
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Classification is the judge's verdict on current activity.
type Classification int

const (
	ClassUnknown Classification = iota
	ClassOnTask
	ClassOffTask
	ClassThinking
	ClassIdle
)

// ParseClassification never fails; unrecognised values become ClassUnknown.
func ParseClassification(s string) Classification {
	switch s {
	case "on_task":
		return ClassOnTask
	case "off_task":
		return ClassOffTask
	case "thinking":
		return ClassThinking
	case "idle":
		return ClassIdle
	default:
		return ClassUnknown
	}
}

func (c Classification) String() string {
	switch c {
	case ClassOnTask:
		return "on_task"
	case ClassOffTask:
		return "off_task"
	case ClassThinking:
		return "thinking"
	case ClassIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// WarningLevel is the traffic-light derived from a classification.
type WarningLevel int

const (
	WarningYellow WarningLevel = iota
	WarningGreen
	WarningRed
)

func (w WarningLevel) String() string {
	switch w {
	case WarningGreen:
		return "green"
	case WarningRed:
		return "red"
	default:
		return "yellow"
	}
}

// Warning maps a classification to its warning level.
func (c Classification) Warning() WarningLevel {
	switch c {
	case ClassOnTask:
		return WarningGreen
	case ClassOffTask:
		return WarningRed
	default:
		return WarningYellow
	}
}

// JudgmentStatus mirrors /api/judgment/current.
type JudgmentStatus struct {
	Classification Classification
	Raw            string
	Reason         string
}

// VisionKind enumerates screen-monitoring vision backends.
type VisionKind int

const (
	VisionUnknown VisionKind = iota
	VisionOllama
	VisionOpenAI
	VisionOpenAIFallback
	VisionOllamaFallback
	VisionDisabled
	VisionNotInitialized
)

// VisionBackend is a decoded backend_status value.
type VisionBackend struct {
	Kind VisionKind
	Raw  string
}

// ParseVisionBackend decodes backend_status.
func ParseVisionBackend(s string) VisionBackend {
	kinds := map[string]VisionKind{
		"ollama":          VisionOllama,
		"openai":          VisionOpenAI,
		"openai_fallback": VisionOpenAIFallback,
		"ollama_fallback": VisionOllamaFallback,
		"disabled":        VisionDisabled,
		"not_initialized": VisionNotInitialized,
	}
	if k, ok := kinds[s]; ok {
		return VisionBackend{Kind: k, Raw: s}
	}
	return VisionBackend{Kind: VisionUnknown, Raw: s}
}

func (v VisionBackend) String() string {
	if v.Raw == "" {
		return "unknown"
	}
	return v.Raw
}

// ScreenMonitoringStatus mirrors /api/screen-monitoring/status.
type ScreenMonitoringStatus struct {
	Enabled        bool
	UseLocalVision bool
	Backend        VisionBackend
}

// Personality mirrors /api/personality.
type Personality struct {
	Name      string
	Available []string
}

// EndSummary is returned by /api/session/end.
type EndSummary struct {
	FocusMinutes       int
	Distractions       int
	PomodorosCompleted int
}

// HistoryFilter defines filters for the local session history.
type HistoryFilter struct {
	Since *time.Time
	Last  int
}

// HistoryEntry is one session started from this client.
type HistoryEntry struct {
	ID               int64
	StartedAt        time.Time
	EndedAt          *time.Time
	Goal             string
	WorkMinutes      int
	BreakMinutes     int
	EndedEarly       bool
	SessionXP        int
	EstimatedPenalty int
	FocusMinutes     int
}

// JudgmentEntry records a change of classification observed by the poller.
type JudgmentEntry struct {
	ObservedAt     time.Time
	Classification string
	Reason         string
}
