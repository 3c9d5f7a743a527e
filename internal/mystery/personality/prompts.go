package personality

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const deltaSystemPrompt = `You analyze interrogation dynamics for a murder mystery game and return only JSON.`

func buildDeltaPrompt(suspect string, isMurderer bool, levels map[string]int, question, response string) string {
	traits := make([]string, 0, len(levels))
	for trait := range levels {
		traits = append(traits, trait)
	}
	sort.Strings(traits)

	levelsJSON, _ := json.Marshal(levels)

	return fmt.Sprintf(`Analyze how this interrogation affects the suspect's personality.

SUSPECT: %s
PERSONALITY TRAITS: %s
CURRENT PERSONALITY LEVELS: %s

DETECTIVE'S QUESTION: %s
SUSPECT'S RESPONSE: %s

IS MURDERER: %t

Based on:
1. How accusatory/friendly the question is
2. The suspect's response (defensive, confident, nervous, etc.)
3. Whether they're the murderer (pressure affects them differently)
4. The tone and content of their answer

Determine if each personality trait should increase, decrease, or stay the same.

For each trait, consider:
- If a trait matches the behavior shown (e.g., if anxious and they show nervousness, anxiety might increase)
- If pressure is applied, stress-related traits rise
- If they're being cooperative, negative traits decrease
- If caught in contradictions, defensive traits rise

Return a JSON object with ONLY personality changes (omit traits that don't change):
{
    "trait_name": change_amount,
    ...
}

Where change_amount is between -2 and +2 (e.g., -1 means decrease by 1 level)

Example: {"Anxious": 1, "Trust": -1}

Return ONLY the JSON object.`,
		suspect,
		strings.Join(traits, ", "),
		string(levelsJSON),
		question,
		response,
		isMurderer,
	)
}
