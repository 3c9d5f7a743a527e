package personality

import (
	"context"
	"encoding/json"
	"math"

	"whodunit/internal/debug"
	"whodunit/internal/llm"
)

type completer interface {
	CompleteJSON(ctx context.Context, req llm.JSONCompletionRequest) (string, error)
}

// DeltaAnalyzer turns one question/answer exchange into sparse trait deltas.
// It never fails outward: anything going wrong means no change this round.
type DeltaAnalyzer struct {
	llm   completer
	debug *debug.Logger
}

func NewDeltaAnalyzer(llmService completer, debugLogger *debug.Logger) *DeltaAnalyzer {
	return &DeltaAnalyzer{
		llm:   llmService,
		debug: debugLogger,
	}
}

func (a *DeltaAnalyzer) Analyze(ctx context.Context, suspect string, isMurderer bool, levels map[string]int, question, response string) map[string]int {
	req := llm.JSONCompletionRequest{
		SystemPrompt: deltaSystemPrompt,
		UserPrompt:   buildDeltaPrompt(suspect, isMurderer, levels, question, response),
		Temperature:  0.7,
		MaxTokens:    200,
	}

	ctx = llm.WithOperationType(ctx, "personality.delta")
	content, err := a.llm.CompleteJSON(ctx, req)
	if err != nil {
		if a.debug != nil {
			a.debug.Printf("Personality delta analysis failed for %s: %v", suspect, err)
		}
		return map[string]int{}
	}

	return parseDeltas(content, a.debug)
}

// parseDeltas accepts the bare sparse map, or the same map nested under the
// wrapper keys models sometimes add.
func parseDeltas(content string, debugLogger *debug.Logger) map[string]int {
	var raw map[string]float64
	if err := json.Unmarshal([]byte(content), &raw); err == nil {
		return clipDeltas(raw)
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		if debugLogger != nil {
			debugLogger.Printf("Personality delta parse failed, content: %q", content)
		}
		return map[string]int{}
	}

	for _, key := range []string{"changes", "personality_changes", "deltas"} {
		if inner, exists := wrapped[key]; exists {
			var nested map[string]float64
			if err := json.Unmarshal(inner, &nested); err == nil {
				return clipDeltas(nested)
			}
		}
	}

	if debugLogger != nil {
		debugLogger.Printf("Personality delta parse found no usable map, content: %q", content)
	}
	return map[string]int{}
}

func clipDeltas(raw map[string]float64) map[string]int {
	deltas := make(map[string]int, len(raw))
	for trait, value := range raw {
		delta := int(math.Round(value))
		if delta > 2 {
			delta = 2
		}
		if delta < -2 {
			delta = -2
		}
		if delta == 0 {
			continue
		}
		deltas[trait] = delta
	}
	return deltas
}
