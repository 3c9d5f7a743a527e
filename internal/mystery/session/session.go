package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"whodunit/internal/debug"
	"whodunit/internal/llm"
	"whodunit/internal/logging"
	"whodunit/internal/mystery"
	"whodunit/internal/mystery/gossip"
	"whodunit/internal/mystery/orchestrator"
	"whodunit/internal/mystery/suspect"
)

type completer interface {
	CompleteText(ctx context.Context, req llm.TextCompletionRequest) (string, error)
	CompleteJSON(ctx context.Context, req llm.JSONCompletionRequest) (string, error)
	Model() string
}

type memoryService interface {
	Store(ctx context.Context, character string, entries []mystery.GossipEntry) (string, error)
	Summarize(ctx context.Context, character string) (string, string, error)
}

type interrogationLogger interface {
	Log(sessionID, suspect, question, systemPrompt, response string, metadata logging.InterrogationMetadata) error
}

// Session owns one full investigation: the case, one actor per living
// suspect, the orchestrator, and the gossip propagator. Every player-facing
// operation goes through it, and every completed exchange feeds the same
// pipeline: record, detect revealed clues, log, then detached gossip fan-out
// and a log-snippet refresh.
type Session struct {
	id        string
	caseModel *mystery.Case
	llm       completer
	logger    interrogationLogger
	debug     *debug.Logger

	orch       *orchestrator.Orchestrator
	actors     map[string]*suspect.Actor
	order      []string
	propagator *gossip.Propagator

	background sync.WaitGroup
}

// New assembles a session for a generated case: one briefing per living
// suspect (including the generated hintable facts), one actor each, and the
// gossip propagator over the relationship graph. The victim gets no actor.
func New(ctx context.Context, caseModel *mystery.Case, llmService completer, memoryStore memoryService, logger interrogationLogger, debugLogger *debug.Logger) *Session {
	s := &Session{
		id:        uuid.NewString(),
		caseModel: caseModel,
		llm:       llmService,
		logger:    logger,
		debug:     debugLogger,
		orch:      orchestrator.NewOrchestrator(caseModel, llmService, debugLogger),
		actors:    make(map[string]*suspect.Actor),
	}

	ctx = llm.WithSessionID(ctx, s.id)
	world := caseModel.BuildWorldState()
	for _, name := range caseModel.Names() {
		if name == caseModel.Victim {
			continue
		}
		briefing := s.orch.Briefing(name)
		briefing.HintableFacts = s.orch.HintableFacts(ctx, name)
		s.actors[name] = suspect.New(world[name], caseModel, briefing, nil, llmService, debugLogger)
		s.order = append(s.order, name)
	}

	participants := make(map[string]gossip.Participant, len(s.actors))
	for name, actor := range s.actors {
		participants[name] = actor
	}
	s.propagator = gossip.NewPropagator(caseModel, participants, llmService, memoryStore, s.orch.RecordGossipSummary, debugLogger)

	return s
}

func (s *Session) ID() string {
	return s.id
}

// Case exposes the underlying facts. The case is immutable after generation,
// so handing it out is safe.
func (s *Session) Case() *mystery.Case {
	return s.caseModel
}

// Suspects lists the living suspects in roster order.
func (s *Session) Suspects() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

func (s *Session) PersonalityLevels(name string) map[string]int {
	actor, ok := s.actors[name]
	if !ok {
		return nil
	}
	return actor.PersonalityLevels()
}

func (s *Session) History(name string) []mystery.InteractionRecord {
	actor, ok := s.actors[name]
	if !ok {
		return nil
	}
	return actor.History()
}

// Exchange is one completed question/answer turn as the player sees it.
type Exchange struct {
	Suspect  string
	Question string
	Response string
	Changes  map[string]int
	Traits   map[string]int
	Cached   bool
	Fallback bool
	NewClues []string
}

// Ask runs one blocking interrogation turn. A repeated question replays the
// cached answer without a new generation; a failed generation comes back as
// an in-character fallback line, never as an error.
func (s *Session) Ask(ctx context.Context, name, question string) (Exchange, error) {
	actor, ok := s.actors[name]
	if !ok {
		return Exchange{}, fmt.Errorf("no suspect named %q", name)
	}

	if cached, ok := actor.CachedResponse(question); ok {
		return Exchange{
			Suspect:  name,
			Question: question,
			Response: cached,
			Traits:   actor.PersonalityLevels(),
			Cached:   true,
		}, nil
	}

	req := actor.QuestionPrompt(question)
	start := time.Now()
	content, err := s.llm.CompleteText(s.callContext(ctx, name, "suspect.respond"), llm.TextCompletionRequest{
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})
	elapsed := time.Since(start)

	if err != nil {
		return s.FailAnswer(name, req, err, elapsed), nil
	}
	return s.CommitAnswer(ctx, name, req, content, elapsed)
}

// CachedAnswer replays an earlier answer to the same question, if any. The
// streaming path checks this before opening a stream.
func (s *Session) CachedAnswer(name, question string) (string, bool) {
	actor, ok := s.actors[name]
	if !ok {
		return "", false
	}
	return actor.CachedResponse(question)
}

// StreamRequest builds the generation request for one question so the caller
// can stream the answer itself. Hand the same request back to CommitAnswer
// or FailAnswer when the stream finishes.
func (s *Session) StreamRequest(name, question string) (llm.StreamCompletionRequest, error) {
	actor, ok := s.actors[name]
	if !ok {
		return llm.StreamCompletionRequest{}, fmt.Errorf("no suspect named %q", name)
	}
	return actor.QuestionPrompt(question), nil
}

// CommitAnswer records a finished generation: personality delta, histories,
// revealed-clue detection, the interrogation log row, then the detached
// gossip fan-out and log-snippet refresh.
func (s *Session) CommitAnswer(ctx context.Context, name string, req llm.StreamCompletionRequest, answer string, elapsed time.Duration) (Exchange, error) {
	actor, ok := s.actors[name]
	if !ok {
		return Exchange{}, fmt.Errorf("no suspect named %q", name)
	}

	question := req.UserPrompt
	reply := actor.CommitExchange(s.callContext(ctx, name, ""), question, strings.TrimSpace(answer))

	s.orch.RecordInteraction(name, question, reply.Text, reply.Traits)
	newClues := s.orch.DetectRevealedClues(name, reply.Text)
	s.logExchange(name, req, reply, elapsed)

	bg := llm.WithSessionID(context.Background(), s.id)
	s.spreadGossip(bg, gossip.Event{Suspect: name, Question: question, Response: reply.Text})
	s.refreshSnippet(bg, name)

	return Exchange{
		Suspect:  name,
		Question: question,
		Response: reply.Text,
		Changes:  reply.Changes,
		Traits:   reply.Traits,
		NewClues: newClues,
	}, nil
}

// FailAnswer converts a failed generation into the in-character fallback
// line. The line is logged for review but feeds nothing downstream; clue
// detection and gossip only run on real answers.
func (s *Session) FailAnswer(name string, req llm.StreamCompletionRequest, cause error, elapsed time.Duration) Exchange {
	actor, ok := s.actors[name]
	if !ok {
		return Exchange{}
	}

	reply := actor.FallbackReply(req.UserPrompt, cause)
	s.logExchange(name, req, reply, elapsed)

	return Exchange{
		Suspect:  name,
		Question: req.UserPrompt,
		Response: reply.Text,
		Traits:   reply.Traits,
		Fallback: true,
	}
}

// OpeningStatement returns the line a suspect greets the detective with,
// generated and cached on first use.
func (s *Session) OpeningStatement(ctx context.Context, name string) (string, error) {
	actor, ok := s.actors[name]
	if !ok {
		return "", fmt.Errorf("no suspect named %q", name)
	}
	return actor.OpeningStatement(s.callContext(ctx, name, "")), nil
}

// Notebook is the aggregated-facts view: the fixed crime facts plus every
// clue that has surfaced so far and who let it slip.
type Notebook struct {
	Victim   mystery.Character
	Location string
	Cause    string
	Time     string
	Clues    []orchestrator.RevealedClue
}

func (s *Session) Notebook() Notebook {
	victim, _ := s.caseModel.Character(s.caseModel.Victim)
	return Notebook{
		Victim:   victim,
		Location: s.caseModel.Location,
		Cause:    s.caseModel.Cause,
		Time:     s.caseModel.Time,
		Clues:    s.orch.RevealedClueDetails(),
	}
}

// LogSnippets returns the observation lines generated for one suspect's
// interviews, oldest first.
func (s *Session) LogSnippets(name string) []string {
	return s.orch.LogSnippets(name)
}

func (s *Session) GossipSummaries(name string) []string {
	return s.orch.GossipSummaries(name)
}

// Contradictions reports inconsistencies across everything one suspect has
// said, or nil when nothing conflicts yet.
func (s *Session) Contradictions(name string) *mystery.ConsistencyReport {
	return s.orch.ContradictionAnalysis(name)
}

// Wait blocks until all detached background work (gossip relays, snippet
// refreshes) has finished. Shutdown and tests use it; gameplay never does.
func (s *Session) Wait() {
	s.background.Wait()
}

func (s *Session) spreadGossip(ctx context.Context, event gossip.Event) {
	reports := s.propagator.Propagate(ctx, event)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		for range reports {
		}
	}()
}

func (s *Session) refreshSnippet(ctx context.Context, name string) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.orch.GenerateLogSnippet(ctx, name)
	}()
}

func (s *Session) logExchange(name string, req llm.StreamCompletionRequest, reply suspect.Reply, elapsed time.Duration) {
	if s.logger == nil {
		return
	}

	metadata := logging.InterrogationMetadata{
		Model:        s.llm.Model(),
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		ResponseTime: elapsed,
		Traits:       reply.Traits,
		Fallback:     reply.Fallback,
	}
	if reply.Err != nil {
		msg := reply.Err.Error()
		metadata.Error = &msg
	}

	if err := s.logger.Log(s.id, name, req.UserPrompt, req.SystemPrompt, reply.Text, metadata); err != nil && s.debug != nil {
		s.debug.Printf("Failed to log interrogation for %s: %v", name, err)
	}
}

func (s *Session) callContext(ctx context.Context, name, op string) context.Context {
	ctx = llm.WithSessionID(ctx, s.id)
	ctx = llm.WithGameContext(ctx, map[string]interface{}{"suspect": name})
	if op != "" {
		ctx = llm.WithOperationType(ctx, op)
	}
	return ctx
}
