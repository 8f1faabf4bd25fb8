package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scoring_engine/internal/models"
	"scoring_engine/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveStrategyVersions(t *testing.T) {
	ctx := context.Background()
	s := New()

	st := &models.Strategy{Name: "momentum", CreatedBy: "u1", Directives: []models.StrategyDirective{
		{DirectiveID: "rsi_oversold", Weight: 40, Active: true, Config: map[string]float64{"period": 14}},
	}}
	v1, err := s.SaveStrategy(ctx, st, models.ChangeCreated)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ID)
	assert.Equal(t, 1, v1.Number)

	st.Directives[0].Config["period"] = 21
	v2, err := s.SaveStrategy(ctx, st, models.ChangeUpdated)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Number)

	// earlier snapshots are not affected by later edits
	got, err := s.GetVersion(ctx, st.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 14.0, got.Snapshot.Directives[0].Config["period"])

	vs, err := s.ListVersions(ctx, st.ID)
	require.NoError(t, err)
	assert.Len(t, vs, 2)

	_, err = s.GetVersion(ctx, st.ID, 3)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.SaveStrategy(ctx, &models.Strategy{ID: 99}, models.ChangeUpdated)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListStrategiesFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, st := range []*models.Strategy{
		{Name: "a", CreatedBy: "u1", Public: true},
		{Name: "b", CreatedBy: "u2"},
		{Name: "c", CreatedBy: "u1", Archived: true},
	} {
		_, err := s.SaveStrategy(ctx, st, models.ChangeCreated)
		require.NoError(t, err)
	}

	all, err := s.ListStrategies(ctx, models.StrategyFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.ListStrategies(ctx, models.StrategyFilter{CreatedBy: "u1", IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	public, err := s.ListStrategies(ctx, models.StrategyFilter{PublicOnly: true})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "a", public[0].Name)
}

func TestQueueFIFOSkipsFutureItems(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	require.NoError(t, s.Enqueue(ctx, &models.QueueItem{ID: "late", NotBefore: now.Add(time.Minute)}))
	require.NoError(t, s.Enqueue(ctx, &models.QueueItem{ID: "first", NotBefore: now}))
	require.NoError(t, s.Enqueue(ctx, &models.QueueItem{ID: "second"}))

	it, err := s.Dequeue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "first", it.ID)

	it, err = s.Dequeue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "second", it.ID)

	it, err = s.Dequeue(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, it)

	it, err = s.Dequeue(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "late", it.ID)
}

func TestSymbolsDueStalestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.AddSymbols(ctx, "AAA", "BBB", "CCC", "AAA"))

	base := time.Now()
	require.NoError(t, s.AppendScore(ctx, &models.Score{Symbol: "AAA", Value: 50, CreatedAt: base}))
	require.NoError(t, s.AppendScore(ctx, &models.Score{Symbol: "BBB", Value: 50, CreatedAt: base.Add(-time.Hour)}))

	due, err := s.SymbolsDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"CCC", "BBB", "AAA"}, due)

	due, err = s.SymbolsDue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"CCC"}, due)
}

func TestScoreHistoryAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, v := range []int{40, 55, 61} {
		require.NoError(t, s.AppendScore(ctx, &models.Score{Symbol: "AAA", Value: v}))
	}
	last, err := s.LatestScore(ctx, "AAA")
	require.NoError(t, err)
	assert.Equal(t, 61, last.Value)

	h, err := s.History(ctx, "AAA", 2)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, 61, h[0].Value)
	assert.Equal(t, 55, h[1].Value)

	_, err = s.LatestScore(ctx, "ZZZ")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSymbolsDueRotatesAttemptedSymbols(t *testing.T) {
	ctx := context.Background()
	s := New()
	dead := make([]string, 20)
	for i := range dead {
		dead[i] = fmt.Sprintf("DEAD%02d", i)
	}
	require.NoError(t, s.AddSymbols(ctx, dead...))
	require.NoError(t, s.AddSymbols(ctx, "GOOD"))

	base := time.Now()
	first, err := s.SymbolsDue(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, dead, first)
	require.NoError(t, s.MarkAttempted(ctx, base, first...))

	second, err := s.SymbolsDue(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, "GOOD", second[0])
	require.NoError(t, s.MarkAttempted(ctx, base.Add(time.Minute), second...))
	require.NoError(t, s.AppendScore(ctx, &models.Score{Symbol: "GOOD", Value: 50, CreatedAt: base.Add(time.Minute)}))

	third, err := s.SymbolsDue(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, "DEAD19", third[0])
	assert.NotContains(t, third, "GOOD")
}
