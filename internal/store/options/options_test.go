package options

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

func TestMemoryGetOrDefault(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	v, err := GetOrDefault(ctx, s, "missing", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	require.NoError(t, s.Set(ctx, "k", state{Status: "degraded"}))
	got, err := GetOrDefault(ctx, s, "k", state{})
	require.NoError(t, err)
	assert.Equal(t, "degraded", got.Status)

	require.NoError(t, s.Delete(ctx, "k"))
	ok, err := s.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryIncr(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	n, err := s.Incr(ctx, KeyAPICalls, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = s.Incr(ctx, KeyAPICalls, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	v, err := GetOrDefault(ctx, s, KeyAPICalls, int64(0))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestMemoryDecodeError(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Set(ctx, "k", "text"))

	_, err := GetOrDefault(ctx, s, "k", 0)
	assert.Error(t, err)
}
