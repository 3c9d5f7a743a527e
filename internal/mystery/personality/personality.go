package personality

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	TraitAnxious = "Anxious"
	TraitMoody   = "Moody"
	TraitTrust   = "Trust"
)

const (
	MinLevel = 0
	MaxLevel = 5
)

func StandardTraits() []string {
	return []string{TraitAnxious, TraitMoody, TraitTrust}
}

// State tracks one suspect's trait levels. Levels are reported as integers in
// [0,5], but gossip effects accumulate fractionally, so the backing store is
// float64 and only clamps, never rounds.
type State struct {
	mu     sync.Mutex
	levels map[string]float64
}

// NewState draws initial levels from a middle-weighted distribution; the
// extremes stay rare. Pass a seeded rng for deterministic tests, nil for
// time-seeded.
func NewState(rng *rand.Rand) *State {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	levels := make(map[string]float64, len(StandardTraits()))
	for _, trait := range StandardTraits() {
		levels[trait] = float64(drawLevel(rng))
	}
	return &State{levels: levels}
}

func NewStateWithLevels(levels map[string]int) *State {
	s := &State{levels: make(map[string]float64, len(levels))}
	for trait, level := range levels {
		s.levels[trait] = clampLevel(float64(level))
	}
	return s
}

// drawLevel: 5% -> 0, 10% -> 1, 20% -> 2, 30% -> 3, 20% -> 4, 15% -> 5.
func drawLevel(rng *rand.Rand) int {
	r := rng.Float64()
	switch {
	case r < 0.05:
		return 0
	case r < 0.15:
		return 1
	case r < 0.35:
		return 2
	case r < 0.65:
		return 3
	case r < 0.85:
		return 4
	default:
		return 5
	}
}

func (s *State) Level(trait string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(math.Round(clampLevel(s.levels[trait])))
}

// Raw exposes the unrounded accumulator, which is where fractional gossip
// shifts are visible before they add up to a whole level.
func (s *State) Raw(trait string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[trait]
}

func (s *State) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]int, len(s.levels))
	for trait, level := range s.levels {
		snapshot[trait] = int(math.Round(clampLevel(level)))
	}
	return snapshot
}

// Apply executes one round of integer interrogation deltas. Deltas are
// clipped to [-2,+2], unknown traits are dropped, and resulting levels clamp
// to [0,5]. The returned map holds the deltas actually applied.
func (s *State) Apply(changes map[string]int) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := make(map[string]int, len(changes))
	for trait, delta := range changes {
		if _, known := s.levels[trait]; !known {
			continue
		}
		if delta > 2 {
			delta = 2
		}
		if delta < -2 {
			delta = -2
		}
		s.levels[trait] = clampLevel(s.levels[trait] + float64(delta))
		applied[trait] = delta
	}
	return applied
}

// Shift applies one fractional gossip delta to a single trait, clamped to the
// level bounds but never rounded.
func (s *State) Shift(trait string, delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := s.levels[trait]; !known {
		return
	}
	s.levels[trait] = clampLevel(s.levels[trait] + delta)
}

func clampLevel(level float64) float64 {
	return math.Min(MaxLevel, math.Max(MinLevel, level))
}

// LevelDescription names a level the way prompts present it to the model.
func LevelDescription(level int) string {
	switch level {
	case 0:
		return "Completely suppressed"
	case 1:
		return "Very low"
	case 2:
		return "Low"
	case 3:
		return "Neutral/Normal"
	case 4:
		return "High"
	case 5:
		return "Extremely high"
	default:
		return "Unknown"
	}
}
