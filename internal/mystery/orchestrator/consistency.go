package orchestrator

import (
	"strings"

	"whodunit/internal/mystery"
)

// ConsistencyChecker scans a suspect's recorded statements for
// contradictions. Implementations must return nil when nothing was found;
// callers branch on presence of a report, not on an empty contradiction list.
type ConsistencyChecker interface {
	Check(suspect string, statements []mystery.Statement) *mystery.ConsistencyReport
}

// negationOverlapChecker is the baseline heuristic: a statement contradicts
// its immediate predecessor when it contains an explicit negation and the
// question it answers overlaps the predecessor's content.
type negationOverlapChecker struct{}

func NewNegationOverlapChecker() ConsistencyChecker {
	return negationOverlapChecker{}
}

func (negationOverlapChecker) Check(suspect string, statements []mystery.Statement) *mystery.ConsistencyReport {
	if len(statements) < 2 {
		return nil
	}

	var found []mystery.Contradiction
	for i := 1; i < len(statements); i++ {
		curr := statements[i]
		prev := statements[i-1]

		if strings.Contains(strings.ToLower(curr.Text), "didn't") &&
			strings.Contains(prev.Text, curr.QuestionContext) {
			found = append(found, mystery.Contradiction{
				Previous: prev.Text,
				Current:  curr.Text,
				Context:  curr.QuestionContext,
			})
		}
	}

	if len(found) == 0 {
		return nil
	}

	score := 1.0 - 0.25*float64(len(found))
	if score < 0 {
		score = 0
	}

	return &mystery.ConsistencyReport{
		Suspect:         suspect,
		TotalStatements: len(statements),
		Contradictions:  found,
		Score:           score,
	}
}
