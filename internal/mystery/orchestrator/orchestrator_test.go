package orchestrator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"whodunit/internal/debug"
	"whodunit/internal/llm"
	"whodunit/internal/mystery"
	"whodunit/internal/mystery/orchestrator"
)

type fakeLLM struct {
	jsonResponse string
	jsonErr      error
	textResponse string
	textErr      error

	jsonCalls   int
	textCalls   int
	lastJSONReq llm.JSONCompletionRequest
	lastTextReq llm.TextCompletionRequest
}

func (f *fakeLLM) CompleteJSON(_ context.Context, req llm.JSONCompletionRequest) (string, error) {
	f.jsonCalls++
	f.lastJSONReq = req
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	return f.jsonResponse, nil
}

func (f *fakeLLM) CompleteText(_ context.Context, req llm.TextCompletionRequest) (string, error) {
	f.textCalls++
	f.lastTextReq = req
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.textResponse, nil
}

func testCase() *mystery.Case {
	return &mystery.Case{
		Roster: []mystery.Character{
			{Name: "Sarah", Age: 28, Gender: "female", Occupation: "Art gallery owner"},
			{Name: "James", Age: 45, Gender: "male", Occupation: "Retired military officer"},
			{Name: "Emma", Age: 26, Gender: "female", Occupation: "Medical student"},
			{Name: "Nick", Age: 34, Gender: "male", Occupation: "Software engineer"},
		},
		Victim:   "Sarah",
		Murderer: "James",
		Motive:   "Jealousy over a romantic relationship",
		Location: "The wine cellar",
		Cause:    "Poisoning (antifreeze in their wine glass)",
		Time:     "Around 10:30 PM last night",
		Alibis: map[string]string{
			"Sarah": "I was hosting the dinner party.",
			"James": "I was alone in the study reading.",
			"Emma":  "I was on the terrace getting air.",
			"Nick":  "I stepped out to take a work call.",
		},
		Relationships: map[string]mystery.Relationship{
			"James_Sarah": mystery.Rival,
			"Emma_Sarah":  mystery.RomanticPartner,
			"Nick_Sarah":  mystery.Acquaintance,
			"Emma_Nick":   mystery.CloseFriend,
			"James_Nick":  mystery.Enemy,
			"Emma_James":  mystery.Acquaintance,
		},
		Clues: []mystery.Clue{
			{Text: "James was seen near the wine cellar", Owner: "Nick", IsTrue: true, Category: "witness statement"},
			{Text: "A love letter was found torn to pieces", Owner: "Emma", IsTrue: false, Category: "relationship"},
			{Text: "The victim argued with someone because of money", Owner: "James", IsTrue: true, Category: "financial"},
		},
	}
}

func newOrchestrator(t *testing.T, service *fakeLLM) *orchestrator.Orchestrator {
	t.Helper()
	return orchestrator.NewOrchestrator(testCase(), service, debug.NewLogger(false))
}

func TestBriefingMurderer(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeLLM{})
	briefing := o.Briefing("James")

	require.Equal(t, "James", briefing.Suspect)
	require.Equal(t, mystery.RoleMurderer, briefing.Role)

	require.Equal(t, []string{
		"Their alibi: I was alone in the study reading.",
		"Clue: The victim argued with someone because of money",
	}, briefing.Knowledge, "murderer has no close friends, so no secondhand knowledge")

	require.Equal(t, []string{
		"Their guilt in killing Sarah",
		"Their motive: Jealousy over a romantic relationship",
		"Evidence: The victim argued with someone because of money",
	}, briefing.Secrets)

	require.Equal(t, []string{
		"Sarah", "alibi", "whereabouts",
		"Had conflict with Sarah",
	}, briefing.DefensiveTopics)

	require.Equal(t, mystery.ExposureHigh, briefing.Exposure, "rival of the victim draws suspicion")
	require.Equal(t, mystery.RelationshipContext{Label: mystery.Rival, Tension: mystery.TensionHigh}, briefing.Relationships["Sarah"])
	require.Equal(t, mystery.RelationshipContext{Label: mystery.Enemy, Tension: mystery.TensionHigh}, briefing.Relationships["Nick"])
	require.Equal(t, mystery.RelationshipContext{Label: mystery.Acquaintance, Tension: mystery.TensionMedium}, briefing.Relationships["Emma"])
}

func TestBriefingInnocent(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeLLM{})
	briefing := o.Briefing("Emma")

	require.Equal(t, mystery.RoleInnocent, briefing.Role)

	require.Equal(t, []string{
		"Their alibi: I was on the terrace getting air.",
		"Clue: A love letter was found torn to pieces",
		"Might know through Nick: James was seen near the wine cellar",
	}, briefing.Knowledge, "close friends and romantic partners leak their clues")

	require.Equal(t, []string{
		"False rumor: A love letter was found torn to pieces",
	}, briefing.Secrets, "innocents only hide the false clues they spread")

	require.Equal(t, []string{"Spreading false rumors"}, briefing.DefensiveTopics)
	require.Equal(t, mystery.ExposureLow, briefing.Exposure, "romantic partner of the victim is not an obvious suspect")
}

func TestBriefingLikelyQuestions(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeLLM{})
	questions := o.Briefing("Nick").LikelyQuestions

	require.Equal(t, []string{
		"Where were you when Sarah was killed?",
		"What's your relationship with Sarah?",
		"Did you see anyone suspicious?",
		"What do you know about Sarah?",
		"What's your relationship status?",
	}, questions, "jealousy motive plus a romantic pair adds the relationship question")
}

func TestBriefingNoJealousyQuestion(t *testing.T) {
	t.Parallel()

	c := testCase()
	c.Motive = "Financial gain or inheritance"
	o := orchestrator.NewOrchestrator(c, &fakeLLM{}, debug.NewLogger(false))

	require.Len(t, o.Briefing("Nick").LikelyQuestions, 4)
}

func TestBriefingDeterministic(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeLLM{})
	first := o.Briefing("James")
	second := o.Briefing("James")

	require.Equal(t, first, second, "briefings derive from the case alone")
}

func TestNarrativeContext(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeLLM{})
	narrative := o.NarrativeContext()

	require.Len(t, narrative.MurdererBehaviors, 6)
	require.Contains(t, narrative.MurdererBehaviors, "Will be defensive about their whereabouts")

	require.Equal(t, []string{
		"James was seen near the wine cellar",
		"The victim argued with someone because of money",
	}, narrative.MurdererEvidence, "true clues and murderer-held clues are evidence")

	require.Equal(t, map[string]mystery.Relationship{
		"James": mystery.Rival,
		"Emma":  mystery.RomanticPartner,
		"Nick":  mystery.Acquaintance,
	}, narrative.VictimConnections)

	require.Len(t, narrative.Clues, 3)
	require.Equal(t, "high", narrative.Clues[0].Relevance, "names the murderer")
	require.Equal(t, "low", narrative.Clues[1].Relevance)
	require.Equal(t, "high", narrative.Clues[2].Relevance, "motive wording")

	require.Equal(t, []string{"Sarah", "Nick", "James"}, narrative.Clues[1].OtherKnowers,
		"romantic clue spreads to partners, relationship category to close friends, murderer always")
	require.Equal(t, []string{"James"}, narrative.Clues[0].OtherKnowers)
}

func TestHintableFactsParsing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "plain array",
			response: `["I saw the cellar door open", "Sarah seemed upset at dinner"]`,
			want:     []string{"I saw the cellar door open", "Sarah seemed upset at dinner"},
		},
		{
			name:     "object with facts key",
			response: `{"facts": ["The wine was already poured", "James left early"]}`,
			want:     []string{"The wine was already poured", "James left early"},
		},
		{
			name:     "object with items key",
			response: `{"items": ["Nick took a phone call"]}`,
			want:     []string{"Nick took a phone call"},
		},
		{
			name:     "whitespace and empties dropped",
			response: `["  padded fact  ", "", "kept"]`,
			want:     []string{"padded fact", "kept"},
		},
		{
			name:     "unparseable content",
			response: `not json at all`,
			want:     []string{},
		},
		{
			name:     "object without a known key",
			response: `{"wrong": ["x"]}`,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			service := &fakeLLM{jsonResponse: tt.response}
			o := orchestrator.NewOrchestrator(testCase(), service, debug.NewLogger(false))

			facts := o.HintableFacts(context.Background(), "Emma")
			require.Equal(t, tt.want, facts)
		})
	}
}

func TestHintableFactsRequest(t *testing.T) {
	t.Parallel()

	service := &fakeLLM{jsonResponse: `["a"]`}
	o := orchestrator.NewOrchestrator(testCase(), service, debug.NewLogger(false))

	o.HintableFacts(context.Background(), "Emma")

	require.Equal(t, 1, service.jsonCalls)
	require.InDelta(t, 0.8, service.lastJSONReq.Temperature, 0.001)
	require.Equal(t, 300, service.lastJSONReq.MaxTokens)
	require.Contains(t, service.lastJSONReq.UserPrompt, "SUSPECT: Emma")
	require.Contains(t, service.lastJSONReq.UserPrompt, "VICTIM: Sarah")
}

func TestHintableFactsFailure(t *testing.T) {
	t.Parallel()

	service := &fakeLLM{jsonErr: errors.New("rate limited")}
	o := orchestrator.NewOrchestrator(testCase(), service, debug.NewLogger(false))

	require.Empty(t, o.HintableFacts(context.Background(), "Emma"), "generation failures degrade to no hints")
}

func TestHintableFactsUnknownSuspect(t *testing.T) {
	t.Parallel()

	service := &fakeLLM{jsonResponse: `["a"]`}
	o := orchestrator.NewOrchestrator(testCase(), service, debug.NewLogger(false))

	require.Empty(t, o.HintableFacts(context.Background(), "Moriarty"))
	require.Zero(t, service.jsonCalls)
}

func TestRecordInteractionOrdinals(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeLLM{})

	first := o.RecordInteraction("Nick", "Where were you?", "On a call outside.", map[string]int{"Trust": 3})
	second := o.RecordInteraction("Nick", "With whom?", "A client, I can prove it.", map[string]int{"Trust": 4})
	other := o.RecordInteraction("Emma", "How are you holding up?", "Not well.", nil)

	require.Equal(t, 1, first.Ordinal)
	require.Equal(t, 2, second.Ordinal)
	require.Equal(t, 1, other.Ordinal, "ordinals are per suspect")

	history := o.InterrogationHistory("Nick")
	require.Len(t, history, 2)
	require.Equal(t, "Where were you?", history[0].Question)
	require.Equal(t, map[string]int{"Trust": 3}, history[0].Traits)

	require.Empty(t, o.InterrogationHistory("James"))
}

func TestContradictionAnalysis(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		exchanges [][2]string
		wantNil   bool
		wantCount int
		wantScore float64
	}{
		{
			name:      "single statement is never contradictory",
			exchanges: [][2]string{{"Where were you?", "I was in the library."}},
			wantNil:   true,
		},
		{
			name: "denial of a prior claim",
			exchanges: [][2]string{
				{"Where were you?", "I was in the library with Nick."},
				{"library", "I didn't go anywhere near there."},
			},
			wantCount: 1,
			wantScore: 0.75,
		},
		{
			name: "consistent answers produce no report",
			exchanges: [][2]string{
				{"Where were you?", "I was in the library."},
				{"Who else was there?", "Nick joined me around ten."},
			},
			wantNil: true,
		},
		{
			name: "score floors at zero",
			exchanges: [][2]string{
				{"home", "I was home"},
				{"home", "I didn't leave, I was home"},
				{"home", "I didn't leave, I was home"},
				{"home", "I didn't leave, I was home"},
				{"home", "I didn't leave, I was home"},
				{"home", "I didn't leave, I was home"},
			},
			wantCount: 5,
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := orchestrator.NewOrchestrator(testCase(), &fakeLLM{}, debug.NewLogger(false))
			for _, exchange := range tt.exchanges {
				o.RecordInteraction("Emma", exchange[0], exchange[1], nil)
			}

			report := o.ContradictionAnalysis("Emma")
			if tt.wantNil {
				require.Nil(t, report)
				return
			}

			require.NotNil(t, report)
			require.Equal(t, "Emma", report.Suspect)
			require.Equal(t, len(tt.exchanges), report.TotalStatements)
			require.Len(t, report.Contradictions, tt.wantCount)
			require.InDelta(t, tt.wantScore, report.Score, 0.001)
		})
	}
}

func TestDetectRevealedClues(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeLLM{})

	newly := o.DetectRevealedClues("Nick", "Honestly? JAMES WAS SEEN NEAR THE WINE CELLAR that night.")
	require.Equal(t, []string{"James was seen near the wine cellar"}, newly, "matching is case-insensitive")

	again := o.DetectRevealedClues("Emma", "Everyone knows james was seen near the wine cellar.")
	require.Empty(t, again, "a clue is only new once")

	repeat := o.DetectRevealedClues("Nick", "Like I said, james was seen near the wine cellar.")
	require.Empty(t, repeat)

	require.Equal(t, []string{"James was seen near the wine cellar"}, o.RevealedClues())

	details := o.RevealedClueDetails()
	require.Len(t, details, 1)
	require.Equal(t, []string{"Nick", "Emma"}, details[0].Sources, "each source is attributed once")
}

func TestRevealedCluesMonotonic(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeLLM{})

	o.DetectRevealedClues("Nick", "james was seen near the wine cellar")
	o.DetectRevealedClues("Emma", "a love letter was found torn to pieces, I heard")
	o.DetectRevealedClues("Nick", "nothing new to add")

	require.Equal(t, []string{
		"James was seen near the wine cellar",
		"A love letter was found torn to pieces",
	}, o.RevealedClues(), "reveal order is preserved and nothing is dropped")
}

func TestGenerateLogSnippet(t *testing.T) {
	t.Parallel()

	service := &fakeLLM{textResponse: "  Nick evasive about phone call  \n"}
	o := orchestrator.NewOrchestrator(testCase(), service, debug.NewLogger(false))

	require.Empty(t, o.GenerateLogSnippet(context.Background(), "Nick"), "no interview, no snippet")
	require.Zero(t, service.textCalls)

	o.RecordInteraction("Nick", "Where were you?", "On a call.", nil)
	snippet := o.GenerateLogSnippet(context.Background(), "Nick")

	require.Equal(t, "Nick evasive about phone call", snippet)
	require.InDelta(t, 0.7, service.lastTextReq.Temperature, 0.001)
	require.Equal(t, 50, service.lastTextReq.MaxTokens)
	require.Contains(t, service.lastTextReq.UserPrompt, "Detective: Where were you?")
	require.Contains(t, service.lastTextReq.UserPrompt, "Nick: On a call.")
}

func TestGenerateLogSnippetFallback(t *testing.T) {
	t.Parallel()

	service := &fakeLLM{textErr: errors.New("timeout")}
	o := orchestrator.NewOrchestrator(testCase(), service, debug.NewLogger(false))
	o.RecordInteraction("Nick", "Where were you?", "On a call.", nil)

	require.Equal(t, "(Unable to generate snippet)", o.GenerateLogSnippet(context.Background(), "Nick"))
	require.Equal(t, "(Unable to generate snippet)", o.GenerateLogSnippet(context.Background(), "Nick"))

	require.Equal(t, []string{"(Unable to generate snippet)"}, o.LogSnippets("Nick"),
		"duplicate snippets collapse in the log view")
}

func TestGossipSummaries(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeLLM{})

	o.RecordGossipSummary("Emma", "Emma heard Nick was questioned about the cellar")
	o.RecordGossipSummary("Emma", "Emma heard James snapped at the detective")

	require.Equal(t, []string{
		"Emma heard Nick was questioned about the cellar",
		"Emma heard James snapped at the detective",
	}, o.GossipSummaries("Emma"))

	require.Empty(t, o.GossipSummaries("Nick"))
}

func TestState(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeLLM{})

	o.RecordInteraction("Nick", "q1", "a1", nil)
	o.RecordInteraction("Nick", "q2", "a2", nil)
	o.RecordInteraction("Emma", "q1", "a1", nil)
	o.DetectRevealedClues("Nick", "james was seen near the wine cellar")
	o.RecordGossipSummary("Emma", "heard something")

	state := o.State()
	require.Equal(t, []string{"James was seen near the wine cellar"}, state.RevealedClues)
	require.Equal(t, 2, state.InterrogationCounts["Nick"])
	require.Equal(t, 2, state.StatementCounts["Nick"])
	require.Equal(t, 1, state.InterrogationCounts["Emma"])
	require.Equal(t, 1, state.GossipSummaryCounts["Emma"])
}

func TestSetCheckerOverride(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeLLM{})
	o.RecordInteraction("Nick", "q", "a", nil)
	o.RecordInteraction("Nick", "q2", "a2", nil)

	o.SetChecker(stubChecker{})

	report := o.ContradictionAnalysis("Nick")
	require.NotNil(t, report)
	require.InDelta(t, 0.5, report.Score, 0.001)
}

type stubChecker struct{}

func (stubChecker) Check(suspect string, statements []mystery.Statement) *mystery.ConsistencyReport {
	return &mystery.ConsistencyReport{
		Suspect:         suspect,
		TotalStatements: len(statements),
		Score:           0.5,
	}
}
