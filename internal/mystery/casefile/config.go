package casefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"whodunit/internal/mystery"
)

// CastConfig describes the fixed roster and the controlled vocabularies the
// case draw picks from. Relationship labels are not configurable: tension,
// briefing, and gossip rules all key on the canonical seven.
type CastConfig struct {
	Suspects  []SuspectConfig `yaml:"suspects"`
	Motives   []string        `yaml:"motives"`
	Locations []string        `yaml:"locations"`
	Causes    []string        `yaml:"causes_of_death"`
	Times     []string        `yaml:"times_of_death"`
}

type SuspectConfig struct {
	Name       string   `yaml:"name"`
	Age        int      `yaml:"age"`
	Gender     string   `yaml:"gender"`
	Occupation string   `yaml:"occupation"`
	Traits     []string `yaml:"traits"`
}

func DefaultCastConfig() CastConfig {
	return CastConfig{
		Suspects: []SuspectConfig{
			{Name: "Nick", Age: 30, Gender: "Male", Occupation: "Lawyer", Traits: []string{"Intelligent", "Ambitious", "Witty"}},
			{Name: "Sarah", Age: 28, Gender: "Female", Occupation: "Artist", Traits: []string{"Creative", "Sensitive", "Observant"}},
			{Name: "James", Age: 35, Gender: "Male", Occupation: "Chef", Traits: []string{"Charming", "Confident", "Jealous"}},
			{Name: "Emma", Age: 32, Gender: "Female", Occupation: "Tech Worker", Traits: []string{"Logical", "Introverted", "Calculated"}},
			{Name: "David", Age: 29, Gender: "Male", Occupation: "Writer", Traits: []string{"Observant", "Sarcastic", "Moody"}},
			{Name: "Lisa", Age: 31, Gender: "Female", Occupation: "Musician", Traits: []string{"Expressive", "Emotional", "Loyal"}},
		},
		Motives: []string{
			"Jealousy over a romantic relationship",
			"Financial gain or inheritance",
			"Revenge for past wrongs",
			"Protecting a secret",
			"Eliminating competition",
			"Accidental crime during argument",
		},
		Locations: []string{
			"The victim's bedroom",
			"The mansion's library",
			"The dining room",
			"The guest house",
			"The wine cellar",
			"The study",
			"The conservatory",
			"The drawing room",
		},
		Causes: []string{
			"Poisoning (antifreeze in their wine glass)",
			"Blunt force trauma (hit with a marble statue)",
			"Suffocation (smothered with a pillow)",
			"Stabbing (with a letter opener from the study)",
			"Strangulation (with a rope from the garden shed)",
			"Medication overdose (their own pills tampered with)",
		},
		Times: []string{
			"Around 10:30 PM last night",
			"Around 11:45 PM last night",
			"Around 9:15 PM last night",
			"Around 12:30 AM",
			"Around 8:45 PM last night",
		},
	}
}

// LoadCastConfig reads an optional YAML override. An empty path or a missing
// file falls back to the built-in cast.
func LoadCastConfig(path string) (CastConfig, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCastConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultCastConfig(), nil
		}
		return CastConfig{}, fmt.Errorf("cast config: read %s: %w", path, err)
	}

	var cfg CastConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CastConfig{}, fmt.Errorf("cast config: decode %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return CastConfig{}, fmt.Errorf("cast config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *CastConfig) applyDefaults() {
	defaults := DefaultCastConfig()
	if len(c.Suspects) == 0 {
		c.Suspects = defaults.Suspects
	}
	if len(c.Motives) == 0 {
		c.Motives = defaults.Motives
	}
	if len(c.Locations) == 0 {
		c.Locations = defaults.Locations
	}
	if len(c.Causes) == 0 {
		c.Causes = defaults.Causes
	}
	if len(c.Times) == 0 {
		c.Times = defaults.Times
	}
}

func (c *CastConfig) normalize() {
	for i := range c.Suspects {
		c.Suspects[i].Name = strings.TrimSpace(c.Suspects[i].Name)
		c.Suspects[i].Gender = strings.TrimSpace(c.Suspects[i].Gender)
		c.Suspects[i].Occupation = strings.TrimSpace(c.Suspects[i].Occupation)
		c.Suspects[i].Traits = trimNonEmpty(c.Suspects[i].Traits)
	}
	c.Motives = trimNonEmpty(c.Motives)
	c.Locations = trimNonEmpty(c.Locations)
	c.Causes = trimNonEmpty(c.Causes)
	c.Times = trimNonEmpty(c.Times)
}

func trimNonEmpty(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return cleaned
}

func (c CastConfig) Validate() error {
	if len(c.Suspects) < 3 {
		return fmt.Errorf("need at least 3 suspects, got %d", len(c.Suspects))
	}
	seen := make(map[string]bool, len(c.Suspects))
	for _, s := range c.Suspects {
		if s.Name == "" {
			return fmt.Errorf("suspect with empty name")
		}
		if strings.Contains(s.Name, "_") {
			return fmt.Errorf("suspect name %q must not contain underscores", s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate suspect name %q", s.Name)
		}
		seen[s.Name] = true
		if s.Age <= 0 {
			return fmt.Errorf("suspect %q has invalid age %d", s.Name, s.Age)
		}
	}
	if len(c.Motives) == 0 {
		return fmt.Errorf("motive list is empty")
	}
	if len(c.Locations) == 0 {
		return fmt.Errorf("location list is empty")
	}
	if len(c.Causes) == 0 {
		return fmt.Errorf("cause of death list is empty")
	}
	if len(c.Times) == 0 {
		return fmt.Errorf("time of death list is empty")
	}
	return nil
}

func (c CastConfig) Roster() []mystery.Character {
	roster := make([]mystery.Character, 0, len(c.Suspects))
	for _, s := range c.Suspects {
		roster = append(roster, mystery.Character{
			Name:       s.Name,
			Age:        s.Age,
			Gender:     s.Gender,
			Occupation: s.Occupation,
			Traits:     s.Traits,
		})
	}
	return roster
}

func (c CastConfig) Names() []string {
	names := make([]string, 0, len(c.Suspects))
	for _, s := range c.Suspects {
		names = append(names, s.Name)
	}
	return names
}
