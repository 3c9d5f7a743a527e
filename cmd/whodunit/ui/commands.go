package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"whodunit/internal/debug"
	"whodunit/internal/llm"
	"whodunit/internal/mystery/session"
)

var errEmptyStream = errors.New("model returned an empty response")

// openConversation fetches the suspect's opening statement. The session
// caches it, so re-entering a conversation is instant.
func openConversation(sess *session.Session, name string) tea.Cmd {
	return func() tea.Msg {
		line, err := sess.OpeningStatement(context.Background(), name)
		if err != nil {
			return askFailedMsg{err: err}
		}
		return openingMsg{suspect: name, line: line}
	}
}

// askSuspect resolves a question: replay the cached answer if the detective
// already asked it, otherwise open a completion stream and hand the chunk
// channel back to the update loop.
func askSuspect(sess *session.Session, service *llm.Service, debugLogger *debug.Logger, name, question string) tea.Cmd {
	return func() tea.Msg {
		if answer, ok := sess.CachedAnswer(name, question); ok {
			return cachedAnswerMsg{suspect: name, answer: answer}
		}

		req, err := sess.StreamRequest(name, question)
		if err != nil {
			return askFailedMsg{err: err}
		}

		ctx := llm.WithSessionID(context.Background(), sess.ID())
		ctx = llm.WithOperationType(ctx, "suspect.respond")
		ctx = llm.WithGameContext(ctx, map[string]interface{}{"suspect": name})

		stream := service.CompleteStream(ctx, req)
		chunks := llm.ReadStreamChunks(stream, debugLogger.IsEnabled())

		return streamStartedMsg{pending: pendingQuestion{
			suspect:  name,
			question: question,
			req:      req,
			chunks:   chunks,
			start:    time.Now(),
		}}
	}
}

func readChunk(chunks <-chan llm.StreamChunk) tea.Cmd {
	return func() tea.Msg {
		chunk, ok := <-chunks
		if !ok {
			return streamDoneMsg{}
		}
		if chunk.Error != nil {
			return streamFailedMsg{err: chunk.Error}
		}
		if chunk.Done {
			return streamDoneMsg{}
		}
		return streamChunkMsg{text: chunk.Text}
	}
}

// commitAnswer records a fully streamed reply: history, cache, personality
// shifts, clue detection, logging, and the detached gossip round.
func commitAnswer(sess *session.Session, pending pendingQuestion, answer string) tea.Cmd {
	return func() tea.Msg {
		exchange, err := sess.CommitAnswer(context.Background(), pending.suspect, pending.req, answer, time.Since(pending.start))
		if err != nil {
			return askFailedMsg{err: err}
		}
		return answerCommittedMsg{exchange: exchange}
	}
}

// abandonAnswer swaps a failed generation for an in-character fallback line.
func abandonAnswer(sess *session.Session, pending pendingQuestion, cause error) tea.Cmd {
	return func() tea.Msg {
		exchange := sess.FailAnswer(pending.suspect, pending.req, cause, time.Since(pending.start))
		return fallbackMsg{exchange: exchange}
	}
}
