package gossip_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"whodunit/internal/debug"
	"whodunit/internal/llm"
	"whodunit/internal/mystery"
	"whodunit/internal/mystery/gossip"
	"whodunit/internal/mystery/personality"
	"whodunit/internal/mystery/suspect"
)

type fakeLLM struct {
	mu        sync.Mutex
	response  string
	errOnCall map[int]error
	reqs      []llm.TextCompletionRequest
}

func (f *fakeLLM) CompleteText(_ context.Context, req llm.TextCompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if err := f.errOnCall[len(f.reqs)]; err != nil {
		return "", err
	}
	return f.response, nil
}

func (f *fakeLLM) CompleteJSON(_ context.Context, _ llm.JSONCompletionRequest) (string, error) {
	return "{}", nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func (f *fakeLLM) req(i int) llm.TextCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[i]
}

type fakeMemory struct {
	mu         sync.Mutex
	storeErr   error
	summary    string
	summaryErr error
	stored     map[string][]mystery.GossipEntry
	storeCalls int
}

func (f *fakeMemory) Store(_ context.Context, character string, entries []mystery.GossipEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeCalls++
	if f.storeErr != nil {
		return "", f.storeErr
	}
	if f.stored == nil {
		f.stored = make(map[string][]mystery.GossipEntry)
	}
	f.stored[character] = entries
	return "handle-1", nil
}

func (f *fakeMemory) Summarize(_ context.Context, character string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summaryErr != nil {
		return "", "", f.summaryErr
	}
	return "handle-1", f.summary, nil
}

type sinkRecorder struct {
	mu        sync.Mutex
	summaries map[string][]string
}

func (s *sinkRecorder) record(character, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summaries == nil {
		s.summaries = make(map[string][]string)
	}
	s.summaries[character] = append(s.summaries[character], summary)
}

func (s *sinkRecorder) forCharacter(character string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaries[character]
}

func gossipCase(relationships map[string]mystery.Relationship) *mystery.Case {
	return &mystery.Case{
		Roster: []mystery.Character{
			{Name: "Sarah", Age: 28, Gender: "female", Occupation: "Art gallery owner"},
			{Name: "Nick", Age: 34, Gender: "male", Occupation: "Software engineer"},
			{Name: "James", Age: 45, Gender: "male", Occupation: "Retired military officer"},
			{Name: "Emma", Age: 26, Gender: "female", Occupation: "Medical student"},
		},
		Victim:        "Sarah",
		Murderer:      "James",
		Motive:        "Revenge for past wrongs",
		Alibis:        map[string]string{"Nick": "Outside.", "James": "Reading.", "Emma": "Sleeping."},
		Relationships: relationships,
	}
}

// buildParticipants creates a live actor per non-victim character, all at
// neutral trait levels.
func buildParticipants(t *testing.T, c *mystery.Case, service *fakeLLM) (map[string]gossip.Participant, map[string]*suspect.Actor) {
	t.Helper()

	participants := make(map[string]gossip.Participant)
	actors := make(map[string]*suspect.Actor)
	for name, record := range c.BuildWorldState() {
		if record.IsVictim {
			continue
		}
		levels := map[string]int{
			personality.TraitAnxious: 3,
			personality.TraitMoody:   3,
			personality.TraitTrust:   3,
		}
		actor := suspect.New(record, c, mystery.Briefing{Suspect: name}, personality.NewStateWithLevels(levels), service, debug.NewLogger(false))
		participants[name] = actor
		actors[name] = actor
	}
	return participants, actors
}

func drain(reports <-chan gossip.Report) []gossip.Report {
	var all []gossip.Report
	for report := range reports {
		all = append(all, report)
	}
	return all
}

func TestShareRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel          mystery.Relationship
		shares       bool
		truthfulness float64
	}{
		{mystery.CloseFriend, true, 0.95},
		{mystery.RomanticPartner, true, 0.98},
		{mystery.Enemy, true, 0.15},
		{mystery.Rival, true, 0.35},
		{mystery.BusinessPartner, false, 0},
		{mystery.Acquaintance, false, 0},
		{mystery.FamilyMember, false, 0},
		{mystery.Relationship("Stranger"), false, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.rel), func(t *testing.T) {
			t.Parallel()

			shares, truthfulness := gossip.ShareRule(tt.rel)
			require.Equal(t, tt.shares, shares)
			require.InDelta(t, tt.truthfulness, truthfulness, 0.001)
		})
	}
}

func TestPropagateEnemyRelay(t *testing.T) {
	t.Parallel()

	c := gossipCase(map[string]mystery.Relationship{
		"James_Nick": mystery.Enemy,
		"Emma_Nick":  mystery.Acquaintance,
		"Emma_James": mystery.BusinessPartner,
	})
	service := &fakeLLM{response: "The detective grilled Nick about the cellar."}
	memory := &fakeMemory{summary: "James heard Nick was cornered about the cellar"}
	sink := &sinkRecorder{}
	participants, actors := buildParticipants(t, c, service)

	p := gossip.NewPropagator(c, participants, service, memory, sink.record, debug.NewLogger(false))
	reports := drain(p.Propagate(context.Background(), gossip.Event{
		Suspect:  "Nick",
		Question: "Where were you?",
		Response: "I was outside.",
	}))

	require.Len(t, reports, 1, "only the enemy edge shares")
	report := reports[0]
	require.NoError(t, report.Err)
	require.Equal(t, "Nick", report.From)
	require.Equal(t, "James", report.To)
	require.Equal(t, mystery.Enemy, report.Relationship)
	require.Equal(t, "The detective grilled Nick about the cellar.", report.Share)
	require.Equal(t, "James heard Nick was cornered about the cellar", report.Summary)

	sharePrompt := service.req(0).UserPrompt
	require.Contains(t, sharePrompt, `Detective asked: "Where were you?"`)
	require.Contains(t, sharePrompt, `You responded: "I was outside."`)
	require.Contains(t, sharePrompt, "telling James (Enemy) about it")
	require.Contains(t, sharePrompt, "Truthfulness level: 0.15", "enemies hear a heavily distorted account")

	reactPrompt := service.req(1).UserPrompt
	require.Contains(t, reactPrompt, "You are James.")
	require.Contains(t, reactPrompt, "Nick (Enemy) just told you")

	james := actors["James"]
	require.InDelta(t, 3.5, james.RawTrait(personality.TraitAnxious), 0.001, "enemy gossip raises anxiety by a half step")
	require.InDelta(t, 2.5, james.RawTrait(personality.TraitTrust), 0.001, "enemy gossip erodes trust by a half step")

	log := james.GossipLog()
	require.Len(t, log, 1)
	require.Equal(t, mystery.GossipEntry{From: "Nick", Info: report.Share, Relationship: mystery.Enemy}, log[0])

	require.Equal(t, log, memory.stored["James"], "the full gossip log is persisted")
	require.Equal(t, []string{"James heard Nick was cornered about the cellar"}, sink.forCharacter("James"))
}

func TestPropagateMultipleRecipients(t *testing.T) {
	t.Parallel()

	c := gossipCase(map[string]mystery.Relationship{
		"James_Nick": mystery.CloseFriend,
		"Emma_Nick":  mystery.Rival,
	})
	service := &fakeLLM{response: "They asked about the party."}
	memory := &fakeMemory{summary: "summary"}
	participants, actors := buildParticipants(t, c, service)

	p := gossip.NewPropagator(c, participants, service, memory, nil, debug.NewLogger(false))
	reports := drain(p.Propagate(context.Background(), gossip.Event{Suspect: "Nick", Question: "q", Response: "r"}))

	require.Len(t, reports, 2)
	byRecipient := make(map[string]gossip.Report, len(reports))
	for _, report := range reports {
		byRecipient[report.To] = report
	}
	require.Equal(t, mystery.CloseFriend, byRecipient["James"].Relationship)
	require.Equal(t, mystery.Rival, byRecipient["Emma"].Relationship)

	require.InDelta(t, 3.5, actors["James"].RawTrait(personality.TraitTrust), 0.001, "friends grow closer")
	require.InDelta(t, 3.3, actors["Emma"].RawTrait(personality.TraitMoody), 0.001)
	require.InDelta(t, 2.7, actors["Emma"].RawTrait(personality.TraitTrust), 0.001, "rival gossip sours the mood")
}

func TestPropagateNoSharingEdges(t *testing.T) {
	t.Parallel()

	c := gossipCase(map[string]mystery.Relationship{
		"James_Nick": mystery.Acquaintance,
		"Emma_Nick":  mystery.FamilyMember,
	})
	service := &fakeLLM{response: "x"}
	participants, _ := buildParticipants(t, c, service)

	p := gossip.NewPropagator(c, participants, service, &fakeMemory{}, nil, debug.NewLogger(false))
	reports := drain(p.Propagate(context.Background(), gossip.Event{Suspect: "Nick", Question: "q", Response: "r"}))

	require.Empty(t, reports)
	require.Zero(t, service.calls(), "non-sharing edges make no service calls")
}

func TestPropagateUnknownSuspect(t *testing.T) {
	t.Parallel()

	c := gossipCase(map[string]mystery.Relationship{"James_Nick": mystery.Enemy})
	service := &fakeLLM{response: "x"}
	participants, _ := buildParticipants(t, c, service)

	p := gossip.NewPropagator(c, participants, service, &fakeMemory{}, nil, debug.NewLogger(false))
	reports := drain(p.Propagate(context.Background(), gossip.Event{Suspect: "Ghost", Question: "q", Response: "r"}))

	require.Empty(t, reports)
}

func TestPropagateShareFailureLeavesRecipientUntouched(t *testing.T) {
	t.Parallel()

	c := gossipCase(map[string]mystery.Relationship{"James_Nick": mystery.Enemy})
	service := &fakeLLM{errOnCall: map[int]error{1: errors.New("share down")}}
	memory := &fakeMemory{}
	participants, actors := buildParticipants(t, c, service)

	p := gossip.NewPropagator(c, participants, service, memory, nil, debug.NewLogger(false))
	reports := drain(p.Propagate(context.Background(), gossip.Event{Suspect: "Nick", Question: "q", Response: "r"}))

	require.Len(t, reports, 1)
	require.Error(t, reports[0].Err)
	require.Empty(t, reports[0].Share)

	james := actors["James"]
	require.Empty(t, james.GossipLog())
	require.InDelta(t, 3.0, james.RawTrait(personality.TraitAnxious), 0.001)
	require.InDelta(t, 3.0, james.RawTrait(personality.TraitTrust), 0.001)
	require.Zero(t, memory.storeCalls)
}

func TestPropagateReactionFailureSkipsEffects(t *testing.T) {
	t.Parallel()

	c := gossipCase(map[string]mystery.Relationship{"James_Nick": mystery.Enemy})
	service := &fakeLLM{response: "shared line", errOnCall: map[int]error{2: errors.New("react down")}}
	memory := &fakeMemory{}
	participants, actors := buildParticipants(t, c, service)

	p := gossip.NewPropagator(c, participants, service, memory, nil, debug.NewLogger(false))
	reports := drain(p.Propagate(context.Background(), gossip.Event{Suspect: "Nick", Question: "q", Response: "r"}))

	require.Len(t, reports, 1)
	require.Error(t, reports[0].Err)
	require.Equal(t, "shared line", reports[0].Share, "the share text is kept for diagnostics")
	require.Empty(t, reports[0].Reaction)

	require.Empty(t, actors["James"].GossipLog(), "a half-finished relay applies nothing")
	require.Zero(t, memory.storeCalls)
}

func TestPropagateStoreFailureStillAppliesEffects(t *testing.T) {
	t.Parallel()

	c := gossipCase(map[string]mystery.Relationship{"James_Nick": mystery.CloseFriend})
	service := &fakeLLM{response: "shared line"}
	memory := &fakeMemory{storeErr: errors.New("db locked")}
	sink := &sinkRecorder{}
	participants, actors := buildParticipants(t, c, service)

	p := gossip.NewPropagator(c, participants, service, memory, sink.record, debug.NewLogger(false))
	reports := drain(p.Propagate(context.Background(), gossip.Event{Suspect: "Nick", Question: "q", Response: "r"}))

	require.Len(t, reports, 1)
	require.NoError(t, reports[0].Err, "persistence problems do not undo the relay")
	require.Empty(t, reports[0].Summary)

	require.Len(t, actors["James"].GossipLog(), 1)
	require.InDelta(t, 3.5, actors["James"].RawTrait(personality.TraitTrust), 0.001)
	require.Empty(t, sink.forCharacter("James"))
}

func TestPropagateEmptySummaryNotForwarded(t *testing.T) {
	t.Parallel()

	c := gossipCase(map[string]mystery.Relationship{"James_Nick": mystery.CloseFriend})
	service := &fakeLLM{response: "shared line"}
	memory := &fakeMemory{summary: ""}
	sink := &sinkRecorder{}
	participants, _ := buildParticipants(t, c, service)

	p := gossip.NewPropagator(c, participants, service, memory, sink.record, debug.NewLogger(false))
	reports := drain(p.Propagate(context.Background(), gossip.Event{Suspect: "Nick", Question: "q", Response: "r"}))

	require.Len(t, reports, 1)
	require.Empty(t, reports[0].Summary)
	require.Empty(t, sink.forCharacter("James"))
}
