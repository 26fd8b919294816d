package historyui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/sarge/internal/model"
	"github.com/verte-zerg/sarge/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	first, err := st.InsertSessionStart(ctx, start, "draft chapter", 25, 5)
	require.NoError(t, err)
	require.NoError(t, st.FinishSession(ctx, first, store.Finish{
		EndedAt: start.Add(25 * time.Minute), SessionXP: 25, FocusMinutes: 25,
	}))
	for i, class := range []string{"on_task", "off_task", "off_task"} {
		require.NoError(t, st.InsertJudgment(ctx, first, model.JudgmentEntry{
			ObservedAt:     start.Add(time.Duration(i+1) * time.Minute),
			Classification: class,
			Reason:         "reason " + class,
		}))
	}

	second, err := st.InsertSessionStart(ctx, start.Add(2*time.Hour), "review", 50, 10)
	require.NoError(t, err)
	require.NoError(t, st.FinishSession(ctx, second, store.Finish{
		EndedAt: start.Add(2*time.Hour + 10*time.Minute), EndedEarly: true, SessionXP: 10, EstimatedPenalty: 5, FocusMinutes: 10,
	}))
	return st
}

func press(m *Model, msg tea.KeyMsg) {
	m.Update(msg)
}

func TestOverviewSummarisesSessions(t *testing.T) {
	m := NewModel(seededStore(t), Config{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	require.Len(t, m.entries, 2)
	assert.Equal(t, "review", m.entries[0].Goal)
	out := m.View()
	assert.Contains(t, out, "Filters: since=any  last=all  window=1")
	assert.Contains(t, out, "35 min")
	assert.Contains(t, out, "1 (-5 XP)")
	assert.Contains(t, out, "Focus and XP (moving average 1)")
}

func TestSelectSessionShowsJudgments(t *testing.T) {
	m := NewModel(seededStore(t), Config{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	press(m, tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, tabSessions, m.activeTab)
	assert.Contains(t, m.View(), "draft chapter")

	press(m, tea.KeyMsg{Type: tea.KeyDown})
	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "draft chapter", selected.Goal)

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, tabJudgments, m.activeTab)
	out := m.View()
	assert.Contains(t, out, "Counts: off_task 2  on_task 1")
	assert.Contains(t, out, "off_task  reason off_task")
}

func TestFilterLimitsSessions(t *testing.T) {
	m := NewModel(seededStore(t), Config{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	require.True(t, m.filter.open)
	press(m, tea.KeyMsg{Type: tea.KeyTab})
	press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	require.False(t, m.filter.open)
	assert.Equal(t, 1, m.cfg.Filter.Last)
	require.Len(t, m.entries, 1)
	assert.Equal(t, "review", m.entries[0].Goal)
	assert.Contains(t, m.View(), "Not enough sessions for a trend.")
}

func TestFilterRejectsBadWindow(t *testing.T) {
	m := NewModel(seededStore(t), Config{CurveWindow: 3})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	m.filter.fields[fieldWindow].SetValue("0")
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.True(t, m.filter.open)
	assert.EqualError(t, m.filter.err, "invalid curve window (use integer >= 1)")
	assert.Equal(t, 3, m.cfg.CurveWindow)

	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.filter.open)
}

func TestCurveWindowSteps(t *testing.T) {
	assert.Equal(t, 5, nextCurveWindow(1))
	assert.Equal(t, 10, nextCurveWindow(5))
	assert.Equal(t, 10, nextCurveWindow(7))
	assert.Equal(t, 1, prevCurveWindow(5))
	assert.Equal(t, 5, prevCurveWindow(10))
	assert.Equal(t, 5, prevCurveWindow(7))
}

func TestQuit(t *testing.T) {
	m := NewModel(seededStore(t), Config{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
