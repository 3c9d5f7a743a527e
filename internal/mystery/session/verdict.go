package session

import (
	"fmt"

	"whodunit/internal/mystery"
)

// Canned reveal lines for when a briefing had nothing concrete to surface.
var (
	defaultEvidence = []string{
		"False alibi that couldn't hold under scrutiny",
		"Suspicious behavior and nervousness",
		"Motive connected to the victim",
	}
	defaultMisleads = []string{
		"Had conflicts with the victim",
		"Nervous about unrelated secrets",
	}
)

// Verdict carries everything the reveal screen shows for either outcome.
// Murderer and Motive always name the real culprit, so a wrong accusation
// still ends with the full solution.
type Verdict struct {
	Accused  mystery.Character
	Correct  bool
	Murderer mystery.Character
	Motive   string
	Cause    string
	Location string
	Time     string
	Evidence []string
	Misleads []string
}

// Accuse resolves the final accusation. Correctness is a pure name check
// against the stored murderer. Evidence lists what the murderer was hiding;
// for a wrong accusation, Misleads explains why the accused looked guilty.
func (s *Session) Accuse(name string) (Verdict, error) {
	accused, ok := s.caseModel.Character(name)
	if !ok {
		return Verdict{}, fmt.Errorf("no suspect named %q", name)
	}
	if name == s.caseModel.Victim {
		return Verdict{}, fmt.Errorf("%s is the victim, not a suspect", name)
	}

	murderer, _ := s.caseModel.Character(s.caseModel.Murderer)
	verdict := Verdict{
		Accused:  accused,
		Correct:  name == s.caseModel.Murderer,
		Murderer: murderer,
		Motive:   s.caseModel.Motive,
		Cause:    s.caseModel.Cause,
		Location: s.caseModel.Location,
		Time:     s.caseModel.Time,
		Evidence: firstN(s.secretsOf(s.caseModel.Murderer), 3, defaultEvidence),
	}
	if !verdict.Correct {
		verdict.Misleads = firstN(s.secretsOf(name), 2, defaultMisleads)
	}
	return verdict, nil
}

func (s *Session) secretsOf(name string) []string {
	actor, ok := s.actors[name]
	if !ok {
		return nil
	}
	return actor.Briefing().Secrets
}

func firstN(items []string, n int, canned []string) []string {
	if len(items) == 0 {
		items = canned
	}
	if len(items) > n {
		items = items[:n]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}
