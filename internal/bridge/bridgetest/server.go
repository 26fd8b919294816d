// Package bridgetest provides an in-process fake of the session service.
package bridgetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Body   map[string]any
}

// Server is a stateful fake of the session service. Session commands mutate
// the same state the status endpoints report, so pause/resume and start/end
// round-trip the way they do against the real service.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []Request
	failures map[string]int
	raw      map[string]string
	delays   map[string]time.Duration

	Active           bool
	Goal             string
	FocusMinutes     int
	Personality      string
	Profiles         []string
	TimerState       string
	RemainingSeconds int
	TotalSeconds     int
	IsPaused         bool
	WorkMinutes      int
	BreakMinutes     int
	TotalXP          int
	SessionXP        int
	RankProgress     float64
	Classification   string
	Reason           string
	OpenAIAvailable  bool
	OllamaAvailable  bool
	ScreenEnabled    bool
	OpenAIKey        string
	Spoken           []string
	Config           map[string]any
}

// NewServer starts a fake with an idle timer and default config.
func NewServer() *Server {
	s := &Server{
		failures:       map[string]int{},
		raw:            map[string]string{},
		delays:         map[string]time.Duration{},
		Personality:    "sergeant",
		Profiles:       []string{"sergeant", "buddy", "advisor", "coach"},
		TimerState:     "stopped",
		WorkMinutes:    25,
		BreakMinutes:   5,
		Classification: "unknown",
		Config: map[string]any{
			"pomodoro": map[string]any{"work_duration_minutes": 25.0, "short_break_minutes": 5.0},
			"xp":       map[string]any{"enabled": true, "xp_per_minute": 1.0, "early_end_penalty_percent": 50.0},
			"tts":      map[string]any{"provider": "pyttsx3", "rate": 150.0},
		},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the base address.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the fake down. Later requests fail with connection refused.
func (s *Server) Close() {
	s.srv.Close()
}

// Fail makes path answer with code until cleared with code 0.
func (s *Server) Fail(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = code
}

// Raw makes path answer 200 with body verbatim.
func (s *Server) Raw(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[path] = body
}

// Delay holds responses for path for d.
func (s *Server) Delay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[path] = d
}

// Update runs fn with the state lock held.
func (s *Server) Update(fn func(s *Server)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Requests returns the recorded calls.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many calls were made to method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{}
	if data, err := io.ReadAll(r.Body); err == nil && len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
	delay := s.delays[r.URL.Path]
	code, failing := s.failures[r.URL.Path]
	raw, hasRaw := s.raw[r.URL.Path]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if failing {
		writeJSON(w, code, map[string]any{"error": "injected failure"})
		return
	}
	if hasRaw {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, raw)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	switch key {
	case "GET /api/health":
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "timestamp": time.Now().Format("2006-01-02T15:04:05.000000")})
	case "GET /api/status":
		var goal any
		if s.Goal != "" {
			goal = s.Goal
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session_active":     s.Active,
			"focus_time_minutes": s.FocusMinutes,
			"current_goal":       goal,
			"personality":        s.Personality,
			"timestamp":          time.Now().Format("2006-01-02T15:04:05.000000"),
		})
	case "GET /api/timer":
		state := s.TimerState
		if s.IsPaused && state != "stopped" {
			state = "paused"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"state":             state,
			"remaining_seconds": s.RemainingSeconds,
			"total_seconds":     s.TotalSeconds,
			"is_break":          s.TimerState == "short_break" || s.TimerState == "long_break" || s.TimerState == "break",
			"is_paused":         s.IsPaused,
			"work_minutes":      s.WorkMinutes,
			"break_minutes":     s.BreakMinutes,
		})
	case "GET /api/ai/status":
		backend := "none"
		switch {
		case s.OpenAIAvailable:
			backend = "openai"
		case s.OllamaAvailable:
			backend = "ollama"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"openai_available": s.OpenAIAvailable,
			"ollama_available": s.OllamaAvailable,
			"primary_backend":  backend,
		})
	case "GET /api/xp/status":
		writeJSON(w, http.StatusOK, map[string]any{
			"total_xp":                  s.TotalXP,
			"session_xp":                s.SessionXP,
			"current_rank":              "Recruit",
			"rank_progress":             s.RankProgress,
			"next_rank_name":            "Private",
			"xp_to_next_rank":           max(0, 100-s.TotalXP),
			"early_end_penalty_percent": s.penaltyPercent(),
		})
	case "GET /api/judgment/current":
		writeJSON(w, http.StatusOK, map[string]any{"classification": s.Classification, "reason": s.Reason})
	case "GET /api/screen-monitoring/status":
		writeJSON(w, http.StatusOK, map[string]any{"enabled": s.ScreenEnabled, "use_local_vision": true, "backend_status": "ollama"})
	case "POST /api/screen-monitoring/toggle":
		if v, ok := body["enabled"].(bool); ok {
			s.ScreenEnabled = v
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "enabled": s.ScreenEnabled})
	case "GET /api/config":
		writeJSON(w, http.StatusOK, s.Config)
	case "PATCH /api/config":
		for k, v := range body {
			nested, isMap := v.(map[string]any)
			existing, hasMap := s.Config[k].(map[string]any)
			if isMap && hasMap {
				for nk, nv := range nested {
					existing[nk] = nv
				}
				continue
			}
			s.Config[k] = v
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Config updated"})
	case "POST /api/session/start":
		s.Active = true
		s.Goal, _ = body["goal"].(string)
		if v, ok := body["work_minutes"].(float64); ok && v > 0 {
			s.WorkMinutes = int(v)
		}
		if v, ok := body["break_minutes"].(float64); ok && v > 0 {
			s.BreakMinutes = int(v)
		}
		s.TimerState = "work"
		s.TotalSeconds = s.WorkMinutes * 60
		s.RemainingSeconds = s.TotalSeconds
		s.IsPaused = false
		s.SessionXP = 0
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "goal": s.Goal})
	case "POST /api/session/end":
		if !s.Active {
			writeJSON(w, http.StatusConflict, map[string]any{"error": "No active session"})
			return
		}
		if early, _ := body["early"].(bool); early {
			penalty := s.SessionXP * s.penaltyPercent() / 100
			s.TotalXP = max(0, s.TotalXP-penalty)
		}
		s.Active = false
		s.TimerState = "stopped"
		s.RemainingSeconds = 0
		s.TotalSeconds = 0
		s.IsPaused = false
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"summary": map[string]any{"focus_minutes": s.FocusMinutes, "distractions": 0, "pomodoros_completed": 0},
		})
	case "POST /api/session/pause":
		s.IsPaused = true
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case "POST /api/session/resume":
		s.IsPaused = false
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case "POST /api/session/skip-break":
		if s.TimerState == "short_break" || s.TimerState == "long_break" {
			s.TimerState = "work"
			s.TotalSeconds = s.WorkMinutes * 60
			s.RemainingSeconds = s.TotalSeconds
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case "POST /api/openai-key":
		key, _ := body["api_key"].(string)
		if key == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "API key required"})
			return
		}
		s.OpenAIKey = key
		s.OpenAIAvailable = true
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case "POST /api/tts/speak":
		text, _ := body["text"].(string)
		if text == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Text required"})
			return
		}
		s.Spoken = append(s.Spoken, text)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case "POST /api/tts/stop":
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case "POST /api/xp/reset":
		s.TotalXP = 0
		s.SessionXP = 0
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case "GET /api/personality":
		writeJSON(w, http.StatusOK, map[string]any{"name": s.Personality, "available_profiles": s.Profiles})
	case "POST /api/personality":
		s.Personality, _ = body["profile"].(string)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "profile": s.Personality})
	case "POST /api/shutdown":
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	}
}

func (s *Server) penaltyPercent() int {
	if xp, ok := s.Config["xp"].(map[string]any); ok {
		if v, ok := xp["early_end_penalty_percent"].(float64); ok {
			return int(v)
		}
	}
	return 50
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
