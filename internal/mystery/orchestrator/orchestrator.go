package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"whodunit/internal/debug"
	"whodunit/internal/llm"
	"whodunit/internal/mystery"
)

type completer interface {
	CompleteText(ctx context.Context, req llm.TextCompletionRequest) (string, error)
	CompleteJSON(ctx context.Context, req llm.JSONCompletionRequest) (string, error)
}

// Orchestrator keeps the story coherent across all suspects: it derives
// per-suspect briefings from the case, tracks everything said to the
// detective, flags contradictions, and collects what leaks between suspects.
type Orchestrator struct {
	caseModel *mystery.Case
	llm       completer
	debug     *debug.Logger
	narrative NarrativeContext

	mu              sync.Mutex
	checker         ConsistencyChecker
	histories       map[string]*mystery.History
	statements      map[string][]mystery.Statement
	revealedOrder   []string
	revealedBy      map[string][]string
	gossipSummaries map[string][]string
	snippets        map[string][]string
}

func NewOrchestrator(caseModel *mystery.Case, llmService completer, debugLogger *debug.Logger) *Orchestrator {
	o := &Orchestrator{
		caseModel:       caseModel,
		llm:             llmService,
		debug:           debugLogger,
		checker:         NewNegationOverlapChecker(),
		histories:       make(map[string]*mystery.History),
		statements:      make(map[string][]mystery.Statement),
		revealedBy:      make(map[string][]string),
		gossipSummaries: make(map[string][]string),
		snippets:        make(map[string][]string),
	}
	o.narrative = o.buildNarrativeContext()
	return o
}

// SetChecker swaps the contradiction heuristic. Nil is ignored.
func (o *Orchestrator) SetChecker(checker ConsistencyChecker) {
	if checker == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checker = checker
}

// ClueDistribution records who beyond the owner plausibly knows a clue.
type ClueDistribution struct {
	Clue         mystery.Clue
	OtherKnowers []string
	Relevance    string
}

type NarrativeContext struct {
	MurdererBehaviors []string
	MurdererEvidence  []string
	VictimConnections map[string]mystery.Relationship
	Web               map[string]mystery.RelationshipContext
	Clues             []ClueDistribution
}

func (o *Orchestrator) NarrativeContext() NarrativeContext {
	return o.narrative
}

func (o *Orchestrator) buildNarrativeContext() NarrativeContext {
	c := o.caseModel

	connections := make(map[string]mystery.Relationship)
	for _, other := range c.Names() {
		if other == c.Victim {
			continue
		}
		if rel, ok := c.Relationship(c.Victim, other); ok {
			connections[other] = rel
		}
	}

	web := make(map[string]mystery.RelationshipContext, len(c.Relationships))
	for key, rel := range c.Relationships {
		web[key] = mystery.RelationshipContext{Label: rel, Tension: tensionFor(rel)}
	}

	clues := make([]ClueDistribution, 0, len(c.Clues))
	for _, clue := range c.Clues {
		clues = append(clues, ClueDistribution{
			Clue:         clue,
			OtherKnowers: o.clueKnowers(clue),
			Relevance:    o.clueRelevance(clue.Text),
		})
	}

	var evidence []string
	for _, clue := range c.Clues {
		if clue.Owner == c.Murderer || clue.IsTrue {
			evidence = append(evidence, clue.Text)
		}
	}

	return NarrativeContext{
		MurdererBehaviors: []string{
			"Will be defensive about their whereabouts",
			"May try to shift blame to others they don't like",
			"Will have inconsistencies if pressed hard",
			"May show nervousness when confronted with specific evidence",
			"Will protect their secret fiercely",
			"May contradict themselves under pressure",
		},
		MurdererEvidence:  evidence,
		VictimConnections: connections,
		Web:               web,
		Clues:             clues,
	}
}

// clueKnowers spreads knowledge along the graph: romantic partners for
// romantic clues, close friends for relationship clues, and the murderer
// always knows what evidence exists.
func (o *Orchestrator) clueKnowers(clue mystery.Clue) []string {
	c := o.caseModel
	seen := make(map[string]bool)
	var knowers []string

	add := func(names []string) {
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				knowers = append(knowers, name)
			}
		}
	}

	lower := strings.ToLower(clue.Text)
	if strings.Contains(lower, "romantic") || strings.Contains(lower, "love") {
		add(c.RelatedTo(clue.Owner, mystery.RomanticPartner))
	}
	if clue.Category == "relationship" {
		add(c.RelatedTo(clue.Owner, mystery.CloseFriend))
	}
	add([]string{c.Murderer})

	return knowers
}

func (o *Orchestrator) clueRelevance(text string) string {
	lower := strings.ToLower(text)
	if strings.Contains(lower, strings.ToLower(o.caseModel.Murderer)) ||
		strings.Contains(lower, strings.ToLower(o.caseModel.Victim)) {
		return "high"
	}
	for _, word := range []string{"motive", "reason", "why", "because"} {
		if strings.Contains(lower, word) {
			return "high"
		}
	}
	for _, word := range []string{"saw", "together", "alone", "time"} {
		if strings.Contains(lower, word) {
			return "medium"
		}
	}
	return "low"
}

func tensionFor(rel mystery.Relationship) mystery.Tension {
	switch rel {
	case mystery.Rival, mystery.Enemy:
		return mystery.TensionHigh
	case mystery.CloseFriend, mystery.RomanticPartner:
		return mystery.TensionLow
	default:
		return mystery.TensionMedium
	}
}

// Briefing derives a suspect's full instruction set from the case alone. No
// generation call happens here; HintableFacts is the one briefing piece that
// costs a request.
func (o *Orchestrator) Briefing(name string) mystery.Briefing {
	return mystery.Briefing{
		Suspect:         name,
		Role:            o.caseModel.Role(name),
		Knowledge:       o.knowledge(name),
		Secrets:         o.secrets(name),
		Relationships:   o.relationshipContext(name),
		Exposure:        o.exposure(name),
		LikelyQuestions: o.likelyQuestions(),
		DefensiveTopics: o.defensiveTopics(name),
	}
}

func (o *Orchestrator) knowledge(name string) []string {
	c := o.caseModel
	items := []string{fmt.Sprintf("Their alibi: %s", c.Alibi(name))}

	for _, clue := range c.OwnedClues(name) {
		items = append(items, fmt.Sprintf("Clue: %s", clue.Text))
	}

	for _, other := range c.RelatedTo(name, mystery.CloseFriend, mystery.RomanticPartner) {
		for _, clue := range c.OwnedClues(other) {
			items = append(items, fmt.Sprintf("Might know through %s: %s", other, clue.Text))
		}
	}

	return items
}

func (o *Orchestrator) secrets(name string) []string {
	c := o.caseModel
	var secrets []string

	if name == c.Murderer {
		secrets = append(secrets, fmt.Sprintf("Their guilt in killing %s", c.Victim))
		secrets = append(secrets, fmt.Sprintf("Their motive: %s", c.Motive))
		for _, clue := range c.OwnedClues(name) {
			if clue.IsTrue {
				secrets = append(secrets, fmt.Sprintf("Evidence: %s", clue.Text))
			}
		}
	}

	for _, clue := range c.OwnedClues(name) {
		if !clue.IsTrue {
			secrets = append(secrets, fmt.Sprintf("False rumor: %s", clue.Text))
		}
	}

	return secrets
}

func (o *Orchestrator) relationshipContext(name string) map[string]mystery.RelationshipContext {
	c := o.caseModel
	context := make(map[string]mystery.RelationshipContext)
	for _, other := range c.Names() {
		if other == name {
			continue
		}
		if rel, ok := c.Relationship(name, other); ok {
			context[other] = mystery.RelationshipContext{Label: rel, Tension: tensionFor(rel)}
		}
	}
	return context
}

func (o *Orchestrator) exposure(name string) mystery.Exposure {
	c := o.caseModel
	if name == c.Victim {
		return mystery.ExposureLow
	}
	if rel, ok := c.Relationship(name, c.Victim); ok {
		switch rel {
		case mystery.Rival, mystery.Enemy:
			return mystery.ExposureHigh
		case mystery.Acquaintance:
			return mystery.ExposureMedium
		}
	}
	return mystery.ExposureLow
}

func (o *Orchestrator) likelyQuestions() []string {
	c := o.caseModel
	questions := []string{
		fmt.Sprintf("Where were you when %s was killed?", c.Victim),
		fmt.Sprintf("What's your relationship with %s?", c.Victim),
		"Did you see anyone suspicious?",
		fmt.Sprintf("What do you know about %s?", c.Victim),
	}

	if strings.Contains(strings.ToLower(c.Motive), "jealousy") {
		names := c.Names()
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				if rel, ok := c.Relationship(names[i], names[j]); ok && rel == mystery.RomanticPartner {
					questions = append(questions, "What's your relationship status?")
				}
			}
		}
	}

	return questions
}

func (o *Orchestrator) defensiveTopics(name string) []string {
	c := o.caseModel
	var topics []string

	if name == c.Murderer {
		topics = append(topics, c.Victim, "alibi", "whereabouts")
	}

	topics = append(topics, o.likelyAccusations(name)...)
	return topics
}

func (o *Orchestrator) likelyAccusations(name string) []string {
	c := o.caseModel
	var accusations []string

	if name != c.Victim {
		if rel, ok := c.Relationship(name, c.Victim); ok && (rel == mystery.Rival || rel == mystery.Enemy) {
			accusations = append(accusations, fmt.Sprintf("Had conflict with %s", c.Victim))
		}
	}

	for _, clue := range c.OwnedClues(name) {
		if !clue.IsTrue {
			accusations = append(accusations, "Spreading false rumors")
			break
		}
	}

	return accusations
}

// HintableFacts asks the generation service for 2-3 concrete things this
// suspect might let slip. Degrades to an empty list on any failure.
func (o *Orchestrator) HintableFacts(ctx context.Context, name string) []string {
	character, ok := o.caseModel.Character(name)
	if !ok {
		return []string{}
	}

	tracer := otel.Tracer("orchestrator")
	ctx, span := tracer.Start(ctx, "briefing.hintable_facts")
	defer span.End()

	span.SetAttributes(
		attribute.String("langfuse.observation.type", "generation"),
		attribute.String("briefing.suspect", name),
	)

	req := llm.JSONCompletionRequest{
		SystemPrompt: "You are a detective briefing assistant for a murder mystery game. Always return valid JSON.",
		UserPrompt:   buildHintableFactsPrompt(o.caseModel, character, o.caseModel.Role(name)),
		Temperature:  0.8,
		MaxTokens:    300,
	}

	ctx = llm.WithOperationType(ctx, "briefing.hintable_facts")
	content, err := o.llm.CompleteJSON(ctx, req)
	if err != nil {
		span.RecordError(err)
		if o.debug != nil {
			o.debug.Printf("Hintable facts generation failed for %s: %v", name, err)
		}
		return []string{}
	}

	var facts []string

	// Try to parse as array first
	if jerr := json.Unmarshal([]byte(content), &facts); jerr != nil {
		// If array parsing fails, try parsing as object with common keys
		var objResponse map[string]interface{}
		if objErr := json.Unmarshal([]byte(content), &objResponse); objErr != nil {
			span.RecordError(jerr)
			if o.debug != nil {
				o.debug.Printf("Hintable facts parse failed for %s, content: %q", name, content)
			}
			return []string{}
		}

		for _, key := range []string{"facts", "hintable_facts", "results", "items"} {
			if val, exists := objResponse[key]; exists {
				if arr, ok := val.([]interface{}); ok {
					facts = make([]string, 0, len(arr))
					for _, item := range arr {
						if str, ok := item.(string); ok {
							facts = append(facts, str)
						}
					}
					break
				}
			}
		}
	}

	cleanFacts := make([]string, 0, len(facts))
	for _, fact := range facts {
		fact = strings.TrimSpace(fact)
		if fact != "" {
			cleanFacts = append(cleanFacts, fact)
		}
	}

	span.SetAttributes(attribute.Int("briefing.fact_count", len(cleanFacts)))
	return cleanFacts
}

// RecordInteraction is the authoritative append of one completed exchange.
func (o *Orchestrator) RecordInteraction(name, question, response string, traits map[string]int) mystery.InteractionRecord {
	o.mu.Lock()
	defer o.mu.Unlock()

	h := o.histories[name]
	if h == nil {
		h = mystery.NewHistory()
		o.histories[name] = h
	}
	record := h.Add(question, response, traits)

	o.statements[name] = append(o.statements[name], mystery.Statement{
		Text:            response,
		QuestionContext: question,
		Ordinal:         record.Ordinal,
	})

	return record
}

func (o *Orchestrator) InterrogationHistory(name string) []mystery.InteractionRecord {
	o.mu.Lock()
	defer o.mu.Unlock()

	h := o.histories[name]
	if h == nil {
		return []mystery.InteractionRecord{}
	}
	return h.Records()
}

// DetectRevealedClues scans an answer for case clues and records any hit.
// Only first-time reveals are returned; sources keep accumulating either way.
func (o *Orchestrator) DetectRevealedClues(name, response string) []string {
	lower := strings.ToLower(response)

	o.mu.Lock()
	defer o.mu.Unlock()

	var newly []string
	for _, clue := range o.caseModel.Clues {
		if !strings.Contains(lower, strings.ToLower(clue.Text)) {
			continue
		}
		if o.recordRevealLocked(clue.Text, name) {
			newly = append(newly, clue.Text)
		}
	}
	return newly
}

func (o *Orchestrator) RecordRevealedClue(clueText, source string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recordRevealLocked(clueText, source)
}

func (o *Orchestrator) recordRevealLocked(clueText, source string) bool {
	sources, known := o.revealedBy[clueText]
	if !known {
		o.revealedOrder = append(o.revealedOrder, clueText)
	}

	for _, s := range sources {
		if s == source {
			return !known
		}
	}
	o.revealedBy[clueText] = append(sources, source)
	return !known
}

func (o *Orchestrator) RevealedClues() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	clues := make([]string, len(o.revealedOrder))
	copy(clues, o.revealedOrder)
	return clues
}

// RevealedClue pairs a revealed clue with the suspects who surfaced it.
type RevealedClue struct {
	Text    string
	Sources []string
}

func (o *Orchestrator) RevealedClueDetails() []RevealedClue {
	o.mu.Lock()
	defer o.mu.Unlock()

	details := make([]RevealedClue, 0, len(o.revealedOrder))
	for _, text := range o.revealedOrder {
		sources := make([]string, len(o.revealedBy[text]))
		copy(sources, o.revealedBy[text])
		details = append(details, RevealedClue{Text: text, Sources: sources})
	}
	return details
}

func (o *Orchestrator) RecordGossipSummary(name, summary string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gossipSummaries[name] = append(o.gossipSummaries[name], summary)

	if o.debug != nil {
		o.debug.Printf("Recorded gossip summary for %s: %s", name, summary)
	}
}

func (o *Orchestrator) GossipSummaries(name string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	summaries := make([]string, len(o.gossipSummaries[name]))
	copy(summaries, o.gossipSummaries[name])
	return summaries
}

// ContradictionAnalysis returns nil unless the suspect has at least two
// recorded statements and the checker found something.
func (o *Orchestrator) ContradictionAnalysis(name string) *mystery.ConsistencyReport {
	o.mu.Lock()
	statements := make([]mystery.Statement, len(o.statements[name]))
	copy(statements, o.statements[name])
	checker := o.checker
	o.mu.Unlock()

	return checker.Check(name, statements)
}

// GenerateLogSnippet condenses the interview so far into one 5-7 word
// observation for the investigation log. Empty when nothing was said yet.
func (o *Orchestrator) GenerateLogSnippet(ctx context.Context, name string) string {
	records := o.InterrogationHistory(name)
	if len(records) == 0 {
		return ""
	}

	req := llm.TextCompletionRequest{
		SystemPrompt: "You summarize detective interviews into terse notebook observations.",
		UserPrompt:   buildSnippetPrompt(name, records),
		Temperature:  0.7,
		MaxTokens:    50,
	}

	ctx = llm.WithOperationType(ctx, "log.snippet")
	content, err := o.llm.CompleteText(ctx, req)

	snippet := strings.TrimSpace(content)
	if err != nil || snippet == "" {
		if o.debug != nil {
			o.debug.Printf("Snippet generation failed for %s: %v", name, err)
		}
		snippet = "(Unable to generate snippet)"
	}

	o.mu.Lock()
	o.snippets[name] = append(o.snippets[name], snippet)
	o.mu.Unlock()

	return snippet
}

// LogSnippets returns the unique snippets for a suspect in first-seen order.
func (o *Orchestrator) LogSnippets(name string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	seen := make(map[string]bool)
	var unique []string
	for _, snippet := range o.snippets[name] {
		if !seen[snippet] {
			seen[snippet] = true
			unique = append(unique, snippet)
		}
	}
	return unique
}

// OrchestratorState is a debugging snapshot of the tracking maps.
type OrchestratorState struct {
	RevealedClues       []string
	StatementCounts     map[string]int
	InterrogationCounts map[string]int
	GossipSummaryCounts map[string]int
}

func (o *Orchestrator) State() OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()

	state := OrchestratorState{
		RevealedClues:       make([]string, len(o.revealedOrder)),
		StatementCounts:     make(map[string]int, len(o.statements)),
		InterrogationCounts: make(map[string]int, len(o.histories)),
		GossipSummaryCounts: make(map[string]int, len(o.gossipSummaries)),
	}
	copy(state.RevealedClues, o.revealedOrder)
	for name, statements := range o.statements {
		state.StatementCounts[name] = len(statements)
	}
	for name, h := range o.histories {
		state.InterrogationCounts[name] = h.Len()
	}
	for name, summaries := range o.gossipSummaries {
		state.GossipSummaryCounts[name] = len(summaries)
	}
	return state
}
