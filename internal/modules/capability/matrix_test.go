package capability

import (
	"sync"
	"testing"
	"time"

	"scoring_engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticReqs map[models.DirectiveID][]models.DataType

func (s staticReqs) Requirements() map[models.DirectiveID][]models.DataType { return s }

func TestQueries(t *testing.T) {
	m := New(zap.NewNop(), Config{}, nil)

	assert.Equal(t, []string{"finnhub"}, m.PlatformsFor(models.DataSentiment))
	assert.True(t, m.PlatformSupports("polygon", models.DataVolume))
	assert.False(t, m.PlatformSupports("polygon", models.DataFundamental))
	assert.Equal(t, 300, m.FreshnessFor(models.DataQuote))
	assert.Equal(t, DefaultFreshness, m.FreshnessFor("orderbook"))

	now := time.Now()
	assert.True(t, m.IsFresh(models.DataQuote, now.Add(-299*time.Second), now))
	assert.False(t, m.IsFresh(models.DataQuote, now.Add(-301*time.Second), now))
	assert.False(t, m.IsFresh(models.DataQuote, time.Time{}, now))
}

func TestProviderForPrefersEnabledInOrder(t *testing.T) {
	m := New(zap.NewNop(), Config{Enabled: map[string][]models.DataType{
		"yahoo_finance": nil,
		"finnhub":       nil,
	}}, nil)

	p, ok := m.ProviderFor(models.DataQuote)
	require.True(t, ok)
	assert.Equal(t, "finnhub", p)

	_, ok = m.ProviderFor(models.DataTechnical)
	assert.False(t, ok, "no enabled provider serves technical")
}

func TestEnabledProviderDeclaresExtraTypes(t *testing.T) {
	m := New(zap.NewNop(), Config{Enabled: map[string][]models.DataType{
		"simulated": {models.DataQuote, models.DataTechnical},
	}}, nil)

	p, ok := m.ProviderFor(models.DataTechnical)
	require.True(t, ok)
	assert.Equal(t, "simulated", p)
	assert.Equal(t, "simulated", m.PlatformsFor(models.DataQuote)[6], "unknown providers sort after the static table")
}

func TestUnsupportedRequirementGetsEmptySet(t *testing.T) {
	m := New(zap.NewNop(), Config{}, staticReqs{"options_flow": {"options_chain"}})
	assert.Empty(t, m.PlatformsFor("options_chain"))
	_, ok := m.ProviderFor("options_chain")
	assert.False(t, ok)
}

func TestTTLAndRefresh(t *testing.T) {
	m := New(zap.NewNop(), Config{TTL: time.Hour}, nil)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	m.PlatformsFor(models.DataQuote)
	first := m.BuiltAt()
	assert.Equal(t, clock, first)

	clock = clock.Add(30 * time.Minute)
	m.PlatformsFor(models.DataQuote)
	assert.Equal(t, first, m.BuiltAt(), "cached within TTL")

	clock = clock.Add(31 * time.Minute)
	m.PlatformsFor(models.DataQuote)
	assert.Equal(t, clock, m.BuiltAt(), "rebuilt after TTL")

	clock = clock.Add(time.Minute)
	m.Refresh()
	assert.Equal(t, clock, m.BuiltAt())
}

func TestConcurrentRebuildIsAtomic(t *testing.T) {
	m := New(zap.NewNop(), Config{Enabled: map[string][]models.DataType{"simulated": {models.DataQuote}}}, nil)
	want := len(m.PlatformsFor(models.DataQuote))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if got := len(m.PlatformsFor(models.DataQuote)); got != want {
					t.Errorf("partial matrix: %d providers, want %d", got, want)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		m.Refresh()
	}
	wg.Wait()
}
