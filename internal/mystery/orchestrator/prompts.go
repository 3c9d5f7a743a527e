package orchestrator

import (
	"fmt"
	"strings"

	"whodunit/internal/mystery"
)

func buildHintableFactsPrompt(c *mystery.Case, character mystery.Character, role mystery.Role) string {
	var context strings.Builder
	context.WriteString(fmt.Sprintf(`
SUSPECT: %s (%d year old %s %s)
ROLE: %s
VICTIM: %s
MURDERER: %s
MOTIVE: %s

RELATIONSHIPS WITH OTHER SUSPECTS:
`, character.Name, character.Age, character.Gender, character.Occupation,
		strings.ToUpper(string(role)), c.Victim, c.Murderer, c.Motive))

	for _, other := range c.Roster {
		if other.Name == character.Name {
			continue
		}
		if rel, ok := c.Relationship(character.Name, other.Name); ok {
			context.WriteString(fmt.Sprintf("  - %s: %s\n", other.Name, rel))
		}
	}

	context.WriteString("\nKNOWN CLUES:\n")
	for _, clue := range c.OwnedClues(character.Name) {
		context.WriteString(fmt.Sprintf("  - %s\n", clue.Text))
	}

	return fmt.Sprintf(`You are a detective briefing assistant. Generate 2-3 specific, hintable facts that %s might reveal during interrogation if the detective asks the right questions or treats them well.

%s

These hintable facts should be:
1. CONTEXTUALLY RELEVANT: Based on their relationships, role, and what they know
2. SPECIFIC: Not vague - include names, times, or concrete details when possible
3. REVEALABLE: Things they would naturally know and might slip up about
4. USEFUL: Facts that would help solve the mystery (clues, observations, suspicious behavior)

For a %s:
- If MURDERER: Include details they might slip up about (location, time, interactions with victim)
- If INNOCENT: Include gossip about others, suspicious observations, relationship conflicts

Return ONLY a JSON array of 2-3 facts (strings), no other text. Example format:
["saw Lisa leave study at 11:45pm", "heard arguing between James and victim", "found key to study room"]`,
		character.Name, context.String(), role)
}

func buildSnippetPrompt(suspect string, records []mystery.InteractionRecord) string {
	lines := make([]string, 0, len(records)*2)
	for _, record := range records {
		lines = append(lines, fmt.Sprintf("Detective: %s", record.Question))
		lines = append(lines, fmt.Sprintf("%s: %s", suspect, record.Response))
	}

	return fmt.Sprintf(`Analyze this interview with %s and write ONE short suspicious or notable observation (5-7 words max).
Example: "David seemed nervous about Emma"

Transcript:
%s

Observation:`, suspect, strings.Join(lines, "\n"))
}
