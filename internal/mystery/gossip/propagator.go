package gossip

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"whodunit/internal/debug"
	"whodunit/internal/llm"
	"whodunit/internal/mystery"
	"whodunit/internal/mystery/personality"
)

// relayConcurrency bounds how many recipients are processed at once.
const relayConcurrency = 3

type completer interface {
	CompleteText(ctx context.Context, req llm.TextCompletionRequest) (string, error)
}

// Participant is the slice of a suspect actor the propagator touches.
type Participant interface {
	Name() string
	PersonalityLevels() map[string]int
	ReceiveGossip(entry mystery.GossipEntry)
	ShiftTrait(trait string, delta float64)
	GossipLog() []mystery.GossipEntry
}

type memoryService interface {
	Store(ctx context.Context, character string, entries []mystery.GossipEntry) (string, error)
	Summarize(ctx context.Context, character string) (string, string, error)
}

// ShareRule decides whether a suspect passes interrogation news along a
// relationship edge, and how honestly. Friends and partners hear nearly the
// truth; enemies and rivals hear a distorted version; everyone else hears
// nothing.
func ShareRule(rel mystery.Relationship) (bool, float64) {
	switch rel {
	case mystery.CloseFriend:
		return true, 0.95
	case mystery.RomanticPartner:
		return true, 0.98
	case mystery.Enemy:
		return true, 0.15
	case mystery.Rival:
		return true, 0.35
	default:
		return false, 0
	}
}

// traitEffects are the fixed fractional shifts hearing gossip causes,
// keyed on the edge it arrived through. Fractions accumulate; they are
// deliberately smaller than interrogation deltas.
func traitEffects(rel mystery.Relationship) map[string]float64 {
	switch rel {
	case mystery.CloseFriend:
		return map[string]float64{personality.TraitTrust: 0.5}
	case mystery.RomanticPartner:
		return map[string]float64{personality.TraitTrust: 0.7}
	case mystery.Enemy:
		return map[string]float64{personality.TraitAnxious: 0.5, personality.TraitTrust: -0.5}
	case mystery.Rival:
		return map[string]float64{personality.TraitMoody: 0.3, personality.TraitTrust: -0.3}
	default:
		return nil
	}
}

type phase string

const (
	phaseSelecting  phase = "selecting"
	phaseRelaying   phase = "relaying"
	phaseReacting   phase = "reacting"
	phaseApplying   phase = "applying"
	phasePersisting phase = "persisting"
)

// Event is one completed interrogation exchange worth gossiping about.
type Event struct {
	Suspect  string
	Question string
	Response string
}

// Report describes what one relay did, or why it did nothing.
type Report struct {
	From         string
	To           string
	Relationship mystery.Relationship
	Share        string
	Reaction     string
	Summary      string
	Err          error
}

// Propagator spreads interrogation news through the relationship graph after
// each exchange. It runs detached from the player loop; every failure
// degrades to "that recipient heard nothing".
type Propagator struct {
	caseModel    *mystery.Case
	participants map[string]Participant
	llm          completer
	memory       memoryService
	summarySink  func(character, summary string)
	debug        *debug.Logger
}

func NewPropagator(caseModel *mystery.Case, participants map[string]Participant, llmService completer, memoryStore memoryService, summarySink func(character, summary string), debugLogger *debug.Logger) *Propagator {
	return &Propagator{
		caseModel:    caseModel,
		participants: participants,
		llm:          llmService,
		memory:       memoryStore,
		summarySink:  summarySink,
		debug:        debugLogger,
	}
}

type selection struct {
	recipient    Participant
	relationship mystery.Relationship
	truthfulness float64
}

// Propagate fans the event out to every sharing-eligible recipient. The
// returned channel is buffered for every selected recipient and closed when
// all relays finish, so callers may drain it or walk away.
func (p *Propagator) Propagate(ctx context.Context, event Event) <-chan Report {
	selections := p.selectRecipients(event.Suspect)
	reports := make(chan Report, len(selections))

	source, ok := p.participants[event.Suspect]
	if !ok || len(selections) == 0 {
		close(reports)
		return reports
	}

	go func() {
		defer close(reports)

		var g errgroup.Group
		g.SetLimit(relayConcurrency)
		for _, sel := range selections {
			sel := sel
			g.Go(func() error {
				reports <- p.relay(ctx, source, sel, event)
				return nil
			})
		}
		g.Wait()
	}()

	return reports
}

func (p *Propagator) selectRecipients(suspect string) []selection {
	p.logPhase(phaseSelecting, suspect, "")

	var selections []selection
	for _, name := range p.caseModel.Names() {
		if name == suspect {
			continue
		}
		recipient, ok := p.participants[name]
		if !ok {
			continue
		}
		rel, ok := p.caseModel.Relationship(suspect, name)
		if !ok {
			continue
		}
		share, truthfulness := ShareRule(rel)
		if !share {
			continue
		}
		selections = append(selections, selection{
			recipient:    recipient,
			relationship: rel,
			truthfulness: truthfulness,
		})
	}
	return selections
}

// relay walks one recipient through the full pipeline: share, react, apply,
// persist. A failure at any step leaves the recipient untouched from that
// step on.
func (p *Propagator) relay(ctx context.Context, source Participant, sel selection, event Event) Report {
	to := sel.recipient.Name()
	report := Report{From: event.Suspect, To: to, Relationship: sel.relationship}

	p.logPhase(phaseRelaying, event.Suspect, to)
	shareCtx := llm.WithOperationType(ctx, "gossip.share")
	share, err := p.llm.CompleteText(shareCtx, llm.TextCompletionRequest{
		SystemPrompt: relaySystemPrompt,
		UserPrompt: buildSharePrompt(event.Suspect, to, sel.relationship, event.Question, event.Response,
			source.PersonalityLevels(), sel.truthfulness),
		Temperature: 0.8,
		MaxTokens:   150,
	})
	if err != nil {
		report.Err = err
		p.logFailure(event.Suspect, to, err)
		return report
	}
	report.Share = strings.TrimSpace(share)

	p.logPhase(phaseReacting, event.Suspect, to)
	reactCtx := llm.WithOperationType(ctx, "gossip.react")
	reaction, err := p.llm.CompleteText(reactCtx, llm.TextCompletionRequest{
		SystemPrompt: relaySystemPrompt,
		UserPrompt:   buildReactPrompt(to, event.Suspect, sel.relationship, report.Share, sel.recipient.PersonalityLevels()),
		Temperature:  0.8,
		MaxTokens:    150,
	})
	if err != nil {
		report.Err = err
		p.logFailure(event.Suspect, to, err)
		return report
	}
	report.Reaction = strings.TrimSpace(reaction)

	p.logPhase(phaseApplying, event.Suspect, to)
	sel.recipient.ReceiveGossip(mystery.GossipEntry{
		From:         event.Suspect,
		Info:         report.Share,
		Relationship: sel.relationship,
	})
	for trait, delta := range traitEffects(sel.relationship) {
		sel.recipient.ShiftTrait(trait, delta)
	}

	p.logPhase(phasePersisting, event.Suspect, to)
	if _, err := p.memory.Store(ctx, to, sel.recipient.GossipLog()); err != nil {
		p.logFailure(event.Suspect, to, err)
		return report
	}
	if _, summary, err := p.memory.Summarize(ctx, to); err == nil && summary != "" {
		report.Summary = summary
		if p.summarySink != nil {
			p.summarySink(to, summary)
		}
	} else if err != nil {
		p.logFailure(event.Suspect, to, err)
	}

	return report
}

func (p *Propagator) logPhase(ph phase, from, to string) {
	if p.debug == nil {
		return
	}
	if to == "" {
		p.debug.Printf("Gossip %s: %s", ph, from)
		return
	}
	p.debug.Printf("Gossip %s: %s -> %s", ph, from, to)
}

func (p *Propagator) logFailure(from, to string, err error) {
	if p.debug != nil {
		p.debug.Printf("Gossip relay %s -> %s degraded: %v", from, to, err)
	}
}
