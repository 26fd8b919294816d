package model

import (
	"math"
	"testing"
)

func TestParseTimerPhase(t *testing.T) {
	cases := map[string]TimerPhase{
		"":            PhaseIdle,
		"idle":        PhaseIdle,
		"stopped":     PhaseIdle,
		"working":     PhaseWorking,
		"work":        PhaseWorking,
		"break":       PhaseBreak,
		"short_break": PhaseBreak,
		"long_break":  PhaseBreak,
		"paused":      PhasePaused,
		"completed":   PhaseCompleted,
		"overtime":    PhaseUnknown,
	}
	for in, want := range cases {
		if got := ParseTimerPhase(in); got != want {
			t.Fatalf("ParseTimerPhase(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBackendString(t *testing.T) {
	if got := ParseBackend("openai").String(); got != "openai" {
		t.Fatalf("expected openai, got %q", got)
	}
	if got := ParseBackend("").Kind; got != BackendNone {
		t.Fatalf("expected none for empty value, got %v", got)
	}
	b := ParseBackend("anthropic")
	if b.Kind != BackendUnknown {
		t.Fatalf("expected unknown kind, got %v", b.Kind)
	}
	if got := b.String(); got != "unknown(anthropic)" {
		t.Fatalf("expected raw value kept, got %q", got)
	}
}

func TestClassificationWarning(t *testing.T) {
	cases := []struct {
		raw   string
		class Classification
		level WarningLevel
	}{
		{"on_task", ClassOnTask, WarningGreen},
		{"off_task", ClassOffTask, WarningRed},
		{"thinking", ClassThinking, WarningYellow},
		{"idle", ClassIdle, WarningYellow},
		{"napping", ClassUnknown, WarningYellow},
	}
	for _, tc := range cases {
		c := ParseClassification(tc.raw)
		if c != tc.class {
			t.Fatalf("ParseClassification(%q) = %v, want %v", tc.raw, c, tc.class)
		}
		if c.Warning() != tc.level {
			t.Fatalf("%q warning = %v, want %v", tc.raw, c.Warning(), tc.level)
		}
	}
}

func TestParseVisionBackend(t *testing.T) {
	if got := ParseVisionBackend("openai_fallback").Kind; got != VisionOpenAIFallback {
		t.Fatalf("expected openai fallback, got %v", got)
	}
	v := ParseVisionBackend("llava")
	if v.Kind != VisionUnknown || v.String() != "llava" {
		t.Fatalf("unexpected decode of unknown backend: %+v", v)
	}
	if got := ParseVisionBackend("").String(); got != "unknown" {
		t.Fatalf("expected unknown for empty value, got %q", got)
	}
}

func TestClampProgress(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0.25, 0.25},
		{1.7, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}
	for _, tc := range cases {
		if got := ClampProgress(tc.in); got != tc.want {
			t.Fatalf("ClampProgress(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
