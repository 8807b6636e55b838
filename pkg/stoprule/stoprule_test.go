package stoprule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimpleStopsAfterBound(t *testing.T) {
	s := NewSimple(5)
	require.False(t, s.SearchShouldStop(0, 5, 100))
	require.True(t, s.SearchShouldStop(0, 6, 100))
}

func TestSimpleIgnoresPushedStatistics(t *testing.T) {
	s := NewSimple(3)
	s.PushStatistics(100)
	s.PushStatistics(-100)
	s.ResetStatistics()
	require.False(t, s.SearchShouldStop(0, 3, 100))
	require.True(t, s.SearchShouldStop(0, 4, 100))
}

func TestAdaptiveFallsBackToStepLimitWithFewSamples(t *testing.T) {
	a := NewAdaptive(1.0)
	a.PushStatistics(5)
	require.False(t, a.SearchShouldStop(0, 2, 10))
	require.True(t, a.SearchShouldStop(0, 11, 10))
}

func TestAdaptiveUsesVarianceOnceEnoughSamples(t *testing.T) {
	a := NewAdaptive(0.01)
	for i := 0; i < 20; i++ {
		a.PushStatistics(1)
	}
	// near-zero variance and near-zero alpha collapse expected improvement
	// to ~1, so even a couple of fruitless steps should trigger a stop.
	require.True(t, a.SearchShouldStop(0, 5, 1000))
}

func TestAdaptiveResetStatisticsClearsHistory(t *testing.T) {
	a := NewAdaptive(0.01)
	for i := 0; i < 20; i++ {
		a.PushStatistics(1)
	}
	a.ResetStatistics()
	// back to the few-samples fallback path.
	require.False(t, a.SearchShouldStop(0, 5, 1000))
}

func TestChernoffStopsWhenTailBoundBelowTargetProbability(t *testing.T) {
	c := NewChernoff(0.5, 5, 0.1, 1, 50, 1)
	for i := 0; i < 10; i++ {
		c.PushStatistics(1) // all positive gains => high success rate => tight tail bound
	}
	require.True(t, c.SearchShouldStop(0, 40, 50))
}

func TestChernoffNeverExceedsMaxStepLimit(t *testing.T) {
	c := NewChernoff(1e-9, 1, 0.1, 1, 10, 1)
	require.True(t, c.SearchShouldStop(0, 11, 10))
}

func TestChernoffWithNoStatisticsUsesFullUncertainty(t *testing.T) {
	c := NewChernoff(0.5, 3, 0.1, 1, 50, 1)
	require.False(t, c.SearchShouldStop(0, 1, 50))
}
