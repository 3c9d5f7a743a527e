package mystery

import (
	"fmt"
	"strings"
)

// InteractionRecord captures one completed exchange with a suspect, plus the
// personality snapshot taken right after the answer. Ordinals are 1-based and
// never reused.
type InteractionRecord struct {
	Ordinal  int
	Question string
	Response string
	Traits   map[string]int
}

// Statement is the orchestrator's view of a single answer, kept for
// consistency checking against later answers.
type Statement struct {
	Text            string
	QuestionContext string
	Ordinal         int
}

// History is an append-only record of exchanges with one suspect. Nothing is
// ever trimmed or rewritten; contradiction analysis depends on the full run.
type History struct {
	records []InteractionRecord
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Add(question, response string, traits map[string]int) InteractionRecord {
	snapshot := make(map[string]int, len(traits))
	for trait, level := range traits {
		snapshot[trait] = level
	}

	record := InteractionRecord{
		Ordinal:  len(h.records) + 1,
		Question: question,
		Response: response,
		Traits:   snapshot,
	}
	h.records = append(h.records, record)
	return record
}

func (h *History) Len() int {
	return len(h.records)
}

func (h *History) Records() []InteractionRecord {
	result := make([]InteractionRecord, len(h.records))
	copy(result, h.records)
	return result
}

// BuildConversationContext formats prior exchanges the way the suspect prompt
// expects them, optionally ending with a question that has no answer yet.
func BuildConversationContext(records []InteractionRecord, pendingQuestion string) string {
	if len(records) == 0 && pendingQuestion == "" {
		return ""
	}

	var context strings.Builder
	context.WriteString("CONVERSATION SO FAR:\n")
	for _, record := range records {
		context.WriteString(fmt.Sprintf("DETECTIVE: %s\n", record.Question))
		context.WriteString(fmt.Sprintf("YOU: %s\n", record.Response))
	}
	if pendingQuestion != "" {
		context.WriteString(fmt.Sprintf("DETECTIVE: %s\n", pendingQuestion))
	}

	return context.String()
}
