package personality_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"whodunit/internal/mystery/personality"
)

func neutralState() *personality.State {
	return personality.NewStateWithLevels(map[string]int{
		personality.TraitAnxious: 3,
		personality.TraitMoody:   3,
		personality.TraitTrust:   3,
	})
}

func TestApplyClampsAtCeiling(t *testing.T) {
	s := personality.NewStateWithLevels(map[string]int{
		personality.TraitAnxious: 3,
		personality.TraitMoody:   3,
		personality.TraitTrust:   4,
	})

	// Repeated +2 deltas on a level-4 trait pin it at 5, never beyond.
	for i := 0; i < 3; i++ {
		s.Apply(map[string]int{personality.TraitTrust: 2})
		require.Equal(t, 5, s.Level(personality.TraitTrust))
	}
	require.InDelta(t, 5.0, s.Raw(personality.TraitTrust), 0.0001)
}

func TestApplyClampsAtFloor(t *testing.T) {
	s := neutralState()
	for i := 0; i < 4; i++ {
		s.Apply(map[string]int{personality.TraitTrust: -2})
	}
	require.Equal(t, 0, s.Level(personality.TraitTrust))
}

func TestApplyClipsOversizedDeltas(t *testing.T) {
	s := neutralState()
	applied := s.Apply(map[string]int{
		personality.TraitAnxious: 7,
		personality.TraitTrust:   -9,
	})

	require.Equal(t, map[string]int{
		personality.TraitAnxious: 2,
		personality.TraitTrust:   -2,
	}, applied)
	require.Equal(t, 5, s.Level(personality.TraitAnxious))
	require.Equal(t, 1, s.Level(personality.TraitTrust))
}

func TestApplyDropsUnknownTraits(t *testing.T) {
	s := neutralState()
	applied := s.Apply(map[string]int{"Confident": 1})
	require.Empty(t, applied)

	snapshot := s.Snapshot()
	require.NotContains(t, snapshot, "Confident")
	require.Len(t, snapshot, 3)
}

func TestShiftAccumulatesFractions(t *testing.T) {
	s := neutralState()

	s.Shift(personality.TraitTrust, 0.5)
	require.InDelta(t, 3.5, s.Raw(personality.TraitTrust), 0.0001)

	s.Shift(personality.TraitTrust, 0.7)
	require.InDelta(t, 4.2, s.Raw(personality.TraitTrust), 0.0001)
	require.Equal(t, 4, s.Level(personality.TraitTrust))
}

func TestShiftClampsWithoutRounding(t *testing.T) {
	s := neutralState()

	for i := 0; i < 10; i++ {
		s.Shift(personality.TraitAnxious, 0.7)
	}
	require.InDelta(t, 5.0, s.Raw(personality.TraitAnxious), 0.0001)

	for i := 0; i < 20; i++ {
		s.Shift(personality.TraitTrust, -0.3)
	}
	require.InDelta(t, 0.0, s.Raw(personality.TraitTrust), 0.0001)
}

func TestNewStateInitialLevels(t *testing.T) {
	s := personality.NewState(rand.New(rand.NewSource(42)))
	snapshot := s.Snapshot()
	require.Len(t, snapshot, 3)
	for _, trait := range personality.StandardTraits() {
		level, ok := snapshot[trait]
		require.True(t, ok, "trait %s missing", trait)
		require.GreaterOrEqual(t, level, 0)
		require.LessOrEqual(t, level, 5)
	}

	// Same seed, same draw.
	again := personality.NewState(rand.New(rand.NewSource(42)))
	require.Equal(t, snapshot, again.Snapshot())
}

func TestNewStateFavorsMiddleLevels(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	counts := make(map[int]int)
	for i := 0; i < 500; i++ {
		s := personality.NewState(rng)
		counts[s.Level(personality.TraitTrust)]++
	}
	require.Greater(t, counts[3], counts[0], "neutral should dominate the extreme low")
	require.Greater(t, counts[3], counts[5], "neutral should dominate the extreme high")
}
