package casefile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"whodunit/internal/debug"
	"whodunit/internal/llm"
	"whodunit/internal/mystery"
)

const defaultAlibi = "I was minding my own business."

// CaseGenerationError means the draw could not be turned into a complete,
// valid case. The caller may retry the whole generation or abort; a partial
// case is never returned alongside one.
type CaseGenerationError struct {
	Reason string
	Err    error
}

func (e *CaseGenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("case generation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("case generation failed: %s", e.Reason)
}

func (e *CaseGenerationError) Unwrap() error {
	return e.Err
}

type completer interface {
	CompleteJSONSchema(ctx context.Context, req llm.JSONSchemaCompletionRequest) (string, error)
}

type Generator struct {
	llm   completer
	cfg   CastConfig
	debug *debug.Logger
}

func NewGenerator(llmService completer, cfg CastConfig, debugLogger *debug.Logger) *Generator {
	return &Generator{
		llm:   llmService,
		cfg:   cfg,
		debug: debugLogger,
	}
}

type caseDraw struct {
	Victim         string            `json:"victim"`
	Murderer       string            `json:"murderer"`
	MurdererMotive string            `json:"murderer_motive"`
	CrimeLocation  string            `json:"crime_location"`
	CauseOfDeath   string            `json:"cause_of_death"`
	TimeOfDeath    string            `json:"time_of_death"`
	Alibis         map[string]string `json:"alibis"`
	Relationships  map[string]string `json:"relationships"`
	Clues          []clueDraw        `json:"clues"`
}

type clueDraw struct {
	Clue     string `json:"clue"`
	KnownBy  string `json:"known_by"`
	IsTrue   bool   `json:"is_true"`
	Category string `json:"category"`
}

// Generate issues one structured draw and validates it into a Case.
func (g *Generator) Generate(ctx context.Context) (*mystery.Case, error) {
	tracer := otel.Tracer("casefile")
	ctx, span := tracer.Start(ctx, "case.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("langfuse.observation.type", "generation"),
		attribute.Int("case.roster_size", len(g.cfg.Suspects)),
	)

	req := llm.JSONSchemaCompletionRequest{
		SystemPrompt: caseSystemPrompt,
		UserPrompt:   buildCasePrompt(g.cfg),
		Temperature:  0.8,
		MaxTokens:    2000,
		SchemaName:   "murder_case",
		Schema:       buildCaseSchema(g.cfg),
	}

	ctx = llm.WithOperationType(ctx, "case.generate")
	content, err := g.llm.CompleteJSONSchema(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, &CaseGenerationError{Reason: "completion failed", Err: err}
	}

	var draw caseDraw
	if err := json.Unmarshal([]byte(content), &draw); err != nil {
		span.RecordError(err)
		if g.debug != nil {
			g.debug.Printf("Case draw parse failed: %v, content: %q", err, content)
		}
		return nil, &CaseGenerationError{Reason: "unparseable draw", Err: err}
	}

	c, err := g.buildCase(draw)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("case.clue_count", len(c.Clues)),
		attribute.String("case.victim", c.Victim),
	)

	return c, nil
}

// buildCase checks the structural invariants the rest of the engine depends
// on and fills the tolerated gaps (individual alibis, crime scene detail).
func (g *Generator) buildCase(draw caseDraw) (*mystery.Case, error) {
	roster := g.cfg.Roster()
	names := g.cfg.Names()
	inRoster := make(map[string]bool, len(names))
	for _, name := range names {
		inRoster[name] = true
	}

	if !inRoster[draw.Victim] {
		return nil, &CaseGenerationError{Reason: fmt.Sprintf("victim %q not in roster", draw.Victim)}
	}
	if !inRoster[draw.Murderer] {
		return nil, &CaseGenerationError{Reason: fmt.Sprintf("murderer %q not in roster", draw.Murderer)}
	}
	if draw.Murderer == draw.Victim {
		return nil, &CaseGenerationError{Reason: "murderer and victim are the same character"}
	}

	relationships := make(map[string]mystery.Relationship, len(draw.Relationships))
	for key, value := range draw.Relationships {
		a, b := mystery.SplitPairKey(key)
		if !inRoster[a] || !inRoster[b] {
			return nil, &CaseGenerationError{Reason: fmt.Sprintf("relationship pair %q names unknown characters", key)}
		}
		label := mystery.Relationship(strings.TrimSpace(value))
		if !label.Known() {
			return nil, &CaseGenerationError{Reason: fmt.Sprintf("unknown relationship label %q for pair %q", value, key)}
		}
		relationships[mystery.PairKey(a, b)] = label
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if _, ok := relationships[mystery.PairKey(names[i], names[j])]; !ok {
				return nil, &CaseGenerationError{Reason: fmt.Sprintf("missing relationship for pair %s and %s", names[i], names[j])}
			}
		}
	}

	if len(draw.Clues) < 2 || len(draw.Clues) > 4 {
		return nil, &CaseGenerationError{Reason: fmt.Sprintf("clue count %d outside [2,4]", len(draw.Clues))}
	}
	clues := make([]mystery.Clue, 0, len(draw.Clues))
	for _, cd := range draw.Clues {
		text := strings.TrimSpace(cd.Clue)
		if text == "" {
			return nil, &CaseGenerationError{Reason: "clue with empty text"}
		}
		if !inRoster[cd.KnownBy] {
			return nil, &CaseGenerationError{Reason: fmt.Sprintf("clue owner %q not in roster", cd.KnownBy)}
		}
		clues = append(clues, mystery.Clue{
			Text:     text,
			Owner:    cd.KnownBy,
			IsTrue:   cd.IsTrue,
			Category: strings.TrimSpace(cd.Category),
		})
	}

	alibis := make(map[string]string, len(names))
	for _, name := range names {
		alibi := strings.TrimSpace(draw.Alibis[name])
		if alibi == "" {
			alibi = defaultAlibi
		}
		alibis[name] = alibi
	}

	return &mystery.Case{
		Roster:        roster,
		Victim:        draw.Victim,
		Murderer:      draw.Murderer,
		Motive:        fallback(draw.MurdererMotive, "Unknown motive"),
		Location:      fallback(draw.CrimeLocation, "Unknown location"),
		Cause:         fallback(draw.CauseOfDeath, "Unknown cause"),
		Time:          fallback(draw.TimeOfDeath, "Unknown time"),
		Alibis:        alibis,
		Relationships: relationships,
		Clues:         clues,
	}, nil
}

func fallback(value, def string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	return value
}
