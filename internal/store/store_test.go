package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/sarge/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	id, err := s.InsertSessionStart(ctx, start, "write the report", 25, 5)
	require.NoError(t, err)

	open, ok, err := s.OpenSession(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, open)

	err = s.FinishSession(ctx, id, Finish{
		EndedAt:          start.Add(20 * time.Minute),
		EndedEarly:       true,
		SessionXP:        20,
		EstimatedPenalty: 10,
		FocusMinutes:     20,
	})
	require.NoError(t, err)

	_, ok, err = s.OpenSession(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := s.ListSessions(ctx, model.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "write the report", e.Goal)
	assert.True(t, e.StartedAt.Equal(start))
	require.NotNil(t, e.EndedAt)
	assert.True(t, e.EndedAt.Equal(start.Add(20*time.Minute)))
	assert.True(t, e.EndedEarly)
	assert.Equal(t, 10, e.EstimatedPenalty)
	assert.Equal(t, 25, e.WorkMinutes)
}

func TestFinishUnknownSession(t *testing.T) {
	s := openTemp(t)
	err := s.FinishSession(context.Background(), 42, Finish{EndedAt: time.Now()})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestListSessionsFilters(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := s.InsertSessionStart(ctx, base.Add(time.Duration(i)*24*time.Hour), "", 25, 5)
		require.NoError(t, err)
	}

	last, err := s.ListSessions(ctx, model.HistoryFilter{Last: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.True(t, last[0].StartedAt.Equal(base.Add(48*time.Hour)))
	assert.True(t, last[1].StartedAt.Equal(base.Add(72*time.Hour)))
	assert.Nil(t, last[1].EndedAt)

	since := base.Add(24 * time.Hour)
	recent, err := s.ListSessions(ctx, model.HistoryFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestJudgments(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	id, err := s.InsertSessionStart(ctx, time.Now(), "", 25, 5)
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertJudgment(ctx, id, model.JudgmentEntry{ObservedAt: at, Classification: "on_task", Reason: "editor"}))
	require.NoError(t, s.InsertJudgment(ctx, id, model.JudgmentEntry{ObservedAt: at.Add(time.Minute), Classification: "off_task", Reason: "video"}))
	require.NoError(t, s.InsertJudgment(ctx, id, model.JudgmentEntry{ObservedAt: at.Add(2 * time.Minute), Classification: "on_task"}))
	require.NoError(t, s.InsertJudgment(ctx, 0, model.JudgmentEntry{ObservedAt: at, Classification: "idle"}))

	list, err := s.ListJudgments(ctx, id)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "off_task", list[1].Classification)
	assert.Equal(t, "video", list[1].Reason)

	counts, err := s.CountJudgments(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"on_task": 2, "off_task": 1}, counts)
}
