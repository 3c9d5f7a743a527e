package gossip

import (
	"fmt"

	"whodunit/internal/mystery"
	"whodunit/internal/mystery/personality"
)

const relaySystemPrompt = "You roleplay conversations between murder mystery suspects."

func buildSharePrompt(from, to string, rel mystery.Relationship, question, response string, levels map[string]int, truthfulness float64) string {
	return fmt.Sprintf(`You are %s. You were just interrogated by a detective.

Detective asked: "%s"
You responded: "%s"

Now you're telling %s (%s) about it.

Your personality: Trust %d/5, Anxious %d/5, Moody %d/5
Truthfulness level: %.2f

Tell them about the interrogation naturally (1-2 sentences). Adjust honesty to match your truthfulness level.`,
		from, question, response, to, rel,
		levels[personality.TraitTrust], levels[personality.TraitAnxious], levels[personality.TraitMoody],
		truthfulness)
}

func buildReactPrompt(to, from string, rel mystery.Relationship, share string, levels map[string]int) string {
	return fmt.Sprintf(`You are %s.

%s (%s) just told you: "%s"

Your personality: Trust %d/5, Anxious %d/5, Moody %d/5

React to what they said naturally (1-2 sentences).`,
		to, from, rel, share,
		levels[personality.TraitTrust], levels[personality.TraitAnxious], levels[personality.TraitMoody])
}
