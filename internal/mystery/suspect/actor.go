package suspect

import (
	"context"
	"strings"
	"sync"

	"whodunit/internal/debug"
	"whodunit/internal/llm"
	"whodunit/internal/mystery"
	"whodunit/internal/mystery/personality"
)

type completer interface {
	CompleteText(ctx context.Context, req llm.TextCompletionRequest) (string, error)
	CompleteJSON(ctx context.Context, req llm.JSONCompletionRequest) (string, error)
}

// Actor plays one character under interrogation. It owns that character's
// personality state, conversation history, and the gossip that reached them;
// everything mutating goes through the actor so concurrent gossip effects and
// foreground questions stay serialized per character.
type Actor struct {
	record    mystery.CharacterRecord
	caseModel *mystery.Case
	briefing  mystery.Briefing
	llm       completer
	analyzer  *personality.DeltaAnalyzer
	debug     *debug.Logger

	mu          sync.Mutex
	personality *personality.State
	history     *mystery.History
	gossip      []mystery.GossipEntry
	responses   map[string]string
	opening     string
}

// New builds an actor for one character. Pass a nil state to draw fresh
// personality levels; tests inject a fixed state instead.
func New(record mystery.CharacterRecord, caseModel *mystery.Case, briefing mystery.Briefing, state *personality.State, llmService completer, debugLogger *debug.Logger) *Actor {
	if state == nil {
		state = personality.NewState(nil)
	}
	return &Actor{
		record:      record,
		caseModel:   caseModel,
		briefing:    briefing,
		llm:         llmService,
		analyzer:    personality.NewDeltaAnalyzer(llmService, debugLogger),
		debug:       debugLogger,
		personality: state,
		history:     mystery.NewHistory(),
		responses:   make(map[string]string),
	}
}

func (a *Actor) Name() string {
	return a.record.Name
}

func (a *Actor) Record() mystery.CharacterRecord {
	return a.record
}

func (a *Actor) Briefing() mystery.Briefing {
	return a.briefing
}

func (a *Actor) PersonalityLevels() map[string]int {
	return a.personality.Snapshot()
}

// RawTrait exposes the unrounded level, where fractional gossip shifts show
// up before they amount to a whole step.
func (a *Actor) RawTrait(trait string) float64 {
	return a.personality.Raw(trait)
}

func (a *Actor) History() []mystery.InteractionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Records()
}

// Reply is everything one answer produces: the line itself plus the trait
// movement it caused.
type Reply struct {
	Text     string
	Changes  map[string]int
	Traits   map[string]int
	Cached   bool
	Fallback bool
	Err      error
}

// Respond answers one question end to end: cache check, generation,
// personality update. It never returns an error; failures come back as an
// in-character fallback line.
func (a *Actor) Respond(ctx context.Context, question string) Reply {
	if cached, ok := a.CachedResponse(question); ok {
		return Reply{Text: cached, Cached: true, Traits: a.personality.Snapshot()}
	}

	req := a.QuestionPrompt(question)
	ctx = llm.WithOperationType(ctx, "suspect.respond")
	ctx = llm.WithGameContext(ctx, map[string]interface{}{"suspect": a.record.Name})

	content, err := a.llm.CompleteText(ctx, llm.TextCompletionRequest{
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		return a.FallbackReply(question, err)
	}

	return a.CommitExchange(ctx, question, strings.TrimSpace(content))
}

// CachedResponse replays a previously given answer for the same question,
// matched on normalized text. Repeating a question must not re-roll the
// story.
func (a *Actor) CachedResponse(question string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	response, ok := a.responses[normalizeQuestion(question)]
	return response, ok
}

// QuestionPrompt builds the full generation request for one question without
// sending it. The streaming UI path uses this, then commits the assembled
// answer through CommitExchange.
func (a *Actor) QuestionPrompt(question string) llm.StreamCompletionRequest {
	a.mu.Lock()
	defer a.mu.Unlock()

	return llm.StreamCompletionRequest{
		SystemPrompt: a.systemPromptLocked(question),
		UserPrompt:   question,
		Temperature:  0.9,
		MaxTokens:    300,
	}
}

// CommitExchange appends a completed exchange, runs the personality update,
// and caches the answer for exact-question replay.
func (a *Actor) CommitExchange(ctx context.Context, question, response string) Reply {
	changes := a.analyzer.Analyze(ctx, a.record.Name, a.record.IsMurderer, a.personality.Snapshot(), question, response)
	applied := a.personality.Apply(changes)
	traits := a.personality.Snapshot()

	a.mu.Lock()
	a.history.Add(question, response, traits)
	a.responses[normalizeQuestion(question)] = response
	a.mu.Unlock()

	return Reply{Text: response, Changes: applied, Traits: traits}
}

// FallbackReply records a failed generation as an in-character line. The line
// goes into history so the conversation stays coherent, but it is not cached;
// asking again retries the service.
func (a *Actor) FallbackReply(question string, err error) Reply {
	traits := a.personality.Snapshot()
	line := fallbackLine(traits)

	a.mu.Lock()
	a.history.Add(question, line, traits)
	a.mu.Unlock()

	if a.debug != nil {
		a.debug.Printf("Response generation failed for %s, using fallback: %v", a.record.Name, err)
	}
	return Reply{Text: line, Traits: traits, Fallback: true, Err: err}
}

// OpeningStatement generates the line the suspect greets the detective with.
// Cached after the first success so reopening the conversation never
// re-queries; failures fall back to a fixed line and stay uncached.
func (a *Actor) OpeningStatement(ctx context.Context) string {
	a.mu.Lock()
	cached := a.opening
	a.mu.Unlock()
	if cached != "" {
		return cached
	}

	ctx = llm.WithOperationType(ctx, "suspect.opening")
	content, err := a.llm.CompleteText(ctx, llm.TextCompletionRequest{
		SystemPrompt: "You write natural in-character dialogue for a murder mystery game.",
		UserPrompt:   buildOpeningPrompt(a.record.Name),
		Temperature:  0.8,
		MaxTokens:    100,
	})

	statement := strings.TrimSpace(content)
	if err != nil || statement == "" {
		if a.debug != nil {
			a.debug.Printf("Opening statement failed for %s: %v", a.record.Name, err)
		}
		return openingFallback
	}

	a.mu.Lock()
	if a.opening == "" {
		a.opening = statement
	} else {
		statement = a.opening
	}
	a.mu.Unlock()

	return statement
}

// ReceiveGossip appends what another character passed along. Gossip shapes
// the actor through trait shifts and the memory trail, not the prompt.
func (a *Actor) ReceiveGossip(entry mystery.GossipEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gossip = append(a.gossip, entry)
}

func (a *Actor) GossipLog() []mystery.GossipEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	log := make([]mystery.GossipEntry, len(a.gossip))
	copy(log, a.gossip)
	return log
}

// ShiftTrait applies one fractional gossip effect.
func (a *Actor) ShiftTrait(trait string, delta float64) {
	a.personality.Shift(trait, delta)
}

func normalizeQuestion(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}
