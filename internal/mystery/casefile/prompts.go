package casefile

import (
	"fmt"
	"strings"

	"whodunit/internal/mystery"
)

const caseSystemPrompt = `You are a JSON generator for a murder mystery game. Always return valid JSON only.`

func buildCasePrompt(cfg CastConfig) string {
	suspectLines := make([]string, 0, len(cfg.Suspects))
	for _, s := range cfg.Suspects {
		suspectLines = append(suspectLines, fmt.Sprintf("- %s: %d year old %s %s, personality: %s",
			s.Name, s.Age, s.Gender, s.Occupation, strings.Join(s.Traits, ", ")))
	}

	labels := make([]string, 0, 7)
	for _, label := range mystery.KnownRelationships() {
		labels = append(labels, string(label))
	}

	return fmt.Sprintf(`You are a master storyteller for a murder mystery game set in a MANSION where all %d suspects live together.

These are the %d fixed characters (same traits every game):
%s

Suspect names: %s

MANSION CONTEXT:
- All %d suspects live in a large mansion together
- They were all present in the mansion last night when the murder occurred
- The murder happened between 8 PM and 1 AM
- No one left the mansion - all doors were locked

Your job for THIS game:
1. Randomly select one suspect as the VICTIM (killed last night in the mansion)
2. Randomly select a DIFFERENT suspect as the MURDERER
3. For each pair of suspects, assign a RELATIONSHIP TYPE from: %s
4. Assign a MOTIVE to the murderer from: %s
5. Create a plausible ALIBI for each suspect (what they claim they were doing in the mansion)
6. Choose the LOCATION where the body was found from: %s
7. Choose the CAUSE OF DEATH from: %s
8. Choose the ESTIMATED TIME OF DEATH from: %s
9. Generate 3 CLUES that could help or mislead the detective (some true, some false/misleading)

IMPORTANT:
- ALL %d SUSPECTS must have alibis
- Relationships should be consistent (if one suspect is another's friend, the feeling is mutual)
- The murderer's alibi should be vague or show signs they're lying
- Create alibis where some suspects can partially corroborate each other
- Clues should be distributed among suspects (some might know something, others might lie about it)
- Clues should be discoverable through interrogation`,
		len(cfg.Suspects),
		len(cfg.Suspects),
		strings.Join(suspectLines, "\n"),
		strings.Join(cfg.Names(), ", "),
		len(cfg.Suspects),
		strings.Join(labels, ", "),
		strings.Join(cfg.Motives, ", "),
		strings.Join(cfg.Locations, ", "),
		strings.Join(cfg.Causes, ", "),
		strings.Join(cfg.Times, ", "),
		len(cfg.Suspects),
	)
}

// buildCaseSchema derives the strict response schema from the configured
// roster, so the draw can only name real characters and known labels.
func buildCaseSchema(cfg CastConfig) map[string]interface{} {
	names := cfg.Names()

	labels := make([]string, 0, 7)
	for _, label := range mystery.KnownRelationships() {
		labels = append(labels, string(label))
	}

	alibiProps := make(map[string]interface{}, len(names))
	for _, name := range names {
		alibiProps[name] = map[string]interface{}{"type": "string"}
	}

	pairKeys := make([]string, 0, len(names)*(len(names)-1)/2)
	relationshipProps := make(map[string]interface{})
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			key := names[i] + "_" + names[j]
			pairKeys = append(pairKeys, key)
			relationshipProps[key] = map[string]interface{}{
				"type": "string",
				"enum": labels,
			}
		}
	}

	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"victim": map[string]interface{}{
				"type": "string",
				"enum": names,
			},
			"murderer": map[string]interface{}{
				"type": "string",
				"enum": names,
			},
			"murderer_motive": map[string]interface{}{"type": "string"},
			"crime_location":  map[string]interface{}{"type": "string"},
			"cause_of_death":  map[string]interface{}{"type": "string"},
			"time_of_death":   map[string]interface{}{"type": "string"},
			"alibis": map[string]interface{}{
				"type":                 "object",
				"properties":           alibiProps,
				"required":             names,
				"additionalProperties": false,
			},
			"relationships": map[string]interface{}{
				"type":                 "object",
				"properties":           relationshipProps,
				"required":             pairKeys,
				"additionalProperties": false,
			},
			"clues": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"clue": map[string]interface{}{"type": "string"},
						"known_by": map[string]interface{}{
							"type": "string",
							"enum": names,
						},
						"is_true": map[string]interface{}{"type": "boolean"},
						"category": map[string]interface{}{
							"type": "string",
							"enum": []string{"physical evidence", "witness statement", "financial", "relationship"},
						},
					},
					"required":             []string{"clue", "known_by", "is_true", "category"},
					"additionalProperties": false,
				},
			},
		},
		"required": []string{
			"victim", "murderer", "murderer_motive", "crime_location",
			"cause_of_death", "time_of_death", "alibis", "relationships", "clues",
		},
		"additionalProperties": false,
	}
}
