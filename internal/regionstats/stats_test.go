package regionstats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimator_ByState(t *testing.T) {
	ctx := context.Background()
	est := NewEstimator(0.95, nil)

	spends := []CustomerSpend{
		{CustomerUniqueID: "a", State: "SP", Total: 100},
		{CustomerUniqueID: "b", State: "SP", Total: 200},
		{CustomerUniqueID: "c", State: "SP", Total: 300},
		{CustomerUniqueID: "d", State: "RJ", Total: 50},
		{CustomerUniqueID: "e", State: "RJ", Total: 150},
		{CustomerUniqueID: "f", State: "AC", Total: 80},
	}

	stats := est.ByState(ctx, spends)
	require.Len(t, stats, 3)

	// Sorted by state code, every state exactly once
	assert.Equal(t, "AC", stats[0].State)
	assert.Equal(t, "RJ", stats[1].State)
	assert.Equal(t, "SP", stats[2].State)

	sp := stats[2]
	assert.Equal(t, 3, sp.Count)
	assert.InDelta(t, 200.0, sp.Mean, 1e-9)
	assert.InDelta(t, 100.0, sp.Std, 1e-9)
	require.NotNil(t, sp.CILow)
	require.NotNil(t, sp.CIHigh)
	assert.Less(t, *sp.CILow, sp.Mean)
	assert.Greater(t, *sp.CIHigh, sp.Mean)

	// Singleton state has no interval
	ac := stats[0]
	assert.Equal(t, 1, ac.Count)
	assert.InDelta(t, 80.0, ac.Mean, 1e-9)
	assert.Nil(t, ac.CILow)
	assert.Nil(t, ac.CIHigh)
}

func TestEstimator_ByState_KnownInterval(t *testing.T) {
	est := NewEstimator(0.95, nil)

	// Two customers: mean 15, std sqrt(50), sem 5. With one degree of
	// freedom the 97.5th Student-t quantile is 12.7062.
	stats := est.ByState(context.Background(), []CustomerSpend{
		{CustomerUniqueID: "a", State: "MG", Total: 10},
		{CustomerUniqueID: "b", State: "MG", Total: 20},
	})
	require.Len(t, stats, 1)

	mg := stats[0]
	require.NotNil(t, mg.CILow)
	require.NotNil(t, mg.CIHigh)
	assert.InDelta(t, 15.0-12.7062*5.0, *mg.CILow, 1e-2)
	assert.InDelta(t, 15.0+12.7062*5.0, *mg.CIHigh, 1e-2)
}

func TestEstimator_ByState_SkipsBlankState(t *testing.T) {
	stats := NewEstimator(0.95, nil).ByState(context.Background(), []CustomerSpend{
		{CustomerUniqueID: "a", State: "", Total: 10},
		{CustomerUniqueID: "b", State: "BA", Total: 20},
	})
	require.Len(t, stats, 1)
	assert.Equal(t, "BA", stats[0].State)
}

func TestEstimator_ByState_Empty(t *testing.T) {
	stats := NewEstimator(0.95, nil).ByState(context.Background(), nil)
	assert.Empty(t, stats)
}

func TestEstimator_Pooled(t *testing.T) {
	est := NewEstimator(0.95, nil)

	t.Run("interval brackets the mean", func(t *testing.T) {
		overall := est.Pooled([]CustomerSpend{
			{Total: 10}, {Total: 20}, {Total: 30}, {Total: 40}, {Total: 50},
		})
		assert.Equal(t, 5, overall.Count)
		assert.InDelta(t, 30.0, overall.Mean, 1e-9)
		require.NotNil(t, overall.CILow)
		require.NotNil(t, overall.CIHigh)
		assert.Less(t, *overall.CILow, overall.Mean)
		assert.Greater(t, *overall.CIHigh, overall.Mean)
	})

	t.Run("single customer has no interval", func(t *testing.T) {
		overall := est.Pooled([]CustomerSpend{{Total: 42}})
		assert.Equal(t, 1, overall.Count)
		assert.InDelta(t, 42.0, overall.Mean, 1e-9)
		assert.Nil(t, overall.CILow)
		assert.Nil(t, overall.CIHigh)
	})

	t.Run("empty input", func(t *testing.T) {
		overall := est.Pooled(nil)
		assert.Equal(t, 0, overall.Count)
		assert.Nil(t, overall.CILow)
	})
}

func TestNewEstimator_ConfidenceFallback(t *testing.T) {
	for _, c := range []float64{0, -1, 1, 2} {
		est := NewEstimator(c, nil)
		assert.InDelta(t, 0.95, est.confidence, 1e-9)
	}
}
