package bridge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RemoteConfig is the service configuration document. Its schema belongs to
// the service; only the sections below are interpreted.
type RemoteConfig map[string]any

// XPSettings is the interpreted "xp" section.
type XPSettings struct {
	Enabled                bool
	XPPerMinute            int
	EarlyEndPenaltyPercent int
	Ranks                  []Rank
}

// Rank is one rank threshold.
type Rank struct {
	Name        string
	XPThreshold int
}

// PomodoroSettings is the interpreted "pomodoro" section.
type PomodoroSettings struct {
	WorkMinutes  int
	BreakMinutes int
}

// Section returns a nested object, or nil.
func (c RemoteConfig) Section(name string) map[string]any {
	if m, ok := c[name].(map[string]any); ok {
		return m
	}
	return nil
}

// XP returns the xp section with service defaults for missing keys.
func (c RemoteConfig) XP() XPSettings {
	s := c.Section("xp")
	out := XPSettings{
		Enabled:                boolValue(s, "enabled", true),
		XPPerMinute:            intValue(s, "xp_per_minute", 1),
		EarlyEndPenaltyPercent: intValue(s, "early_end_penalty_percent", 50),
	}
	if ranks, ok := s["ranks"].([]any); ok {
		for _, r := range ranks {
			m, ok := r.(map[string]any)
			if !ok {
				continue
			}
			name, _ := m["name"].(string)
			out.Ranks = append(out.Ranks, Rank{Name: name, XPThreshold: intValue(m, "xp_threshold", 0)})
		}
		sort.SliceStable(out.Ranks, func(i, j int) bool { return out.Ranks[i].XPThreshold < out.Ranks[j].XPThreshold })
	}
	return out
}

// Pomodoro returns the pomodoro section with service defaults.
func (c RemoteConfig) Pomodoro() PomodoroSettings {
	s := c.Section("pomodoro")
	return PomodoroSettings{
		WorkMinutes:  intValue(s, "work_duration_minutes", 25),
		BreakMinutes: intValue(s, "short_break_minutes", 5),
	}
}

// XPPatch builds a partial config that updates the given xp keys only.
func XPPatch(xpPerMinute, penaltyPercent int) RemoteConfig {
	return RemoteConfig{"xp": map[string]any{
		"xp_per_minute":             xpPerMinute,
		"early_end_penalty_percent": penaltyPercent,
	}}
}

// ParseAssignments turns "section.key=value" pairs into a patch. Values are
// decoded as bool, integer, float, or null before falling back to a string.
func ParseAssignments(pairs []string) (RemoteConfig, error) {
	patch := RemoteConfig{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty key in %q", pair)
		}
		value := parseScalar(strings.TrimSpace(raw))
		section, field, nested := strings.Cut(key, ".")
		existing, seen := patch[section]
		_, isSection := existing.(map[string]any)
		if !nested {
			if isSection {
				return nil, fmt.Errorf("key %q is already a section", key)
			}
			patch[key] = value
			continue
		}
		if field == "" || strings.Contains(field, ".") {
			return nil, fmt.Errorf("key %q must be section.key", key)
		}
		if seen && !isSection {
			return nil, fmt.Errorf("key %q is already set to a value", section)
		}
		m, ok := existing.(map[string]any)
		if !ok {
			m = map[string]any{}
			patch[section] = m
		}
		m[field] = value
	}
	return patch, nil
}

func parseScalar(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return strings.Trim(raw, `"`)
}

func intValue(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func boolValue(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}
