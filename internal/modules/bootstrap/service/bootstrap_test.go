package service

import (
	"context"
	"fmt"
	"testing"

	"scoring_engine/internal/models"
	"scoring_engine/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeQueue struct {
	items []models.QueueItem
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, action models.Action, payload models.Payload) (*models.QueueItem, error) {
	if q.err != nil {
		return nil, q.err
	}
	item := models.QueueItem{Action: action, Payload: payload}
	q.items = append(q.items, item)
	return &item, nil
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" aapl", "MSFT", "", "aapl ", "msft", "nvda"})
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, got)
}

func TestWatchlistSeed(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	wl := NewWatchlist(st, zap.NewNop())

	n, err := wl.Seed(ctx, []string{"aapl", "AAPL", " msft "})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = wl.Seed(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	due, err := st.SymbolsDue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, due)
}

func TestWarmupChunksWatchlist(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	symbols := make([]string, 45)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%02d", i)
	}
	require.NoError(t, st.AddSymbols(ctx, symbols...))

	q := &fakeQueue{}
	n, err := NewWarmuper(q, st, zap.NewNop(), 50).Warmup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, q.items, 4)

	for i, size := range []int{20, 20, 5} {
		assert.Equal(t, models.ActionCalculateScores, q.items[i].Action)
		assert.Len(t, q.items[i].Payload.Symbols, size)
	}
	assert.Equal(t, "S00", q.items[0].Payload.Symbols[0])
	assert.Equal(t, "S44", q.items[2].Payload.Symbols[4])
	assert.Equal(t, models.ActionUpdateRankings, q.items[3].Action)
}

func TestWarmupEmptyWatchlist(t *testing.T) {
	q := &fakeQueue{}
	n, err := NewWarmuper(q, memory.New(), zap.NewNop(), 0).Warmup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, q.items)
}

func TestWarmupEnqueueError(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.AddSymbols(ctx, "AAPL"))

	q := &fakeQueue{err: fmt.Errorf("queue down")}
	_, err := NewWarmuper(q, st, zap.NewNop(), 10).Warmup(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue down")
}
