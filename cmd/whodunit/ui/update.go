package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if !m.loading {
			return m, nil
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case openingMsg:
		return m.handleOpening(msg)

	case cachedAnswerMsg:
		return m.handleCachedAnswer(msg)

	case streamStartedMsg:
		return m.handleStreamStarted(msg)

	case streamChunkMsg:
		return m.handleStreamChunk(msg)

	case streamDoneMsg:
		return m.handleStreamDone()

	case streamFailedMsg:
		return m.handleStreamFailed(msg)

	case askFailedMsg:
		m.loading = false
		m.streaming = false
		m.busyWith = ""
		m.status = msg.err.Error()
		return m, nil

	case answerCommittedMsg:
		return m.handleAnswerCommitted(msg)

	case fallbackMsg:
		return m.handleFallback(msg)
	}

	if m.screen == screenConversation {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.screen {
	case screenConversation:
		return m.handleConversationKey(msg)
	case screenNotebook, screenLog:
		return m.handleOverlayKey(msg)
	case screenAccuse:
		return m.handleAccuseKey(msg)
	case screenVerdict:
		return m.handleVerdictKey(msg)
	}
	return m.handleRosterKey(msg)
}

func (m Model) handleRosterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.suspects)-1 {
			m.cursor++
		}
	case "n":
		m.screen = screenNotebook
	case "l":
		m.screen = screenLog
	case "a":
		m.accuseCursor = m.cursor
		m.status = ""
		m.screen = screenAccuse
	case "enter":
		if len(m.suspects) == 0 {
			return m, nil
		}
		name := m.suspects[m.cursor]
		m.current = name
		m.screen = screenConversation
		m.status = ""
		m.input.SetValue("")
		if !m.opened[name] {
			m.opened[name] = true
			m.loading = true
			m.busyWith = name
			return m, tea.Batch(m.spin.Tick, openConversation(m.session, name))
		}
	}
	return m, nil
}

func (m Model) handleConversationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.loading {
			return m, nil
		}
		m.screen = screenRoster
		return m, nil
	case "enter":
		question := strings.TrimSpace(m.input.Value())
		if question == "" || m.loading {
			return m, nil
		}
		m.input.SetValue("")
		m.status = ""
		m.appendLine(m.current, "> "+question)
		m.loading = true
		m.busyWith = m.current
		m.partial = ""
		return m, tea.Batch(m.spin.Tick, askSuspect(m.session, m.llm, m.debug, m.current, question))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "n":
		m.screen = screenNotebook
	case "l":
		m.screen = screenLog
	case "esc", "q", "enter":
		m.screen = screenRoster
	}
	return m, nil
}

func (m Model) handleAccuseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenRoster
	case "up", "k":
		if m.accuseCursor > 0 {
			m.accuseCursor--
		}
	case "down", "j":
		if m.accuseCursor < len(m.suspects)-1 {
			m.accuseCursor++
		}
	case "enter":
		if len(m.suspects) == 0 {
			return m, nil
		}
		verdict, err := m.session.Accuse(m.suspects[m.accuseCursor])
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.verdict = &verdict
		m.screen = screenVerdict
	}
	return m, nil
}

func (m Model) handleVerdictKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "enter":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) appendLine(name, line string) {
	m.conversations[name] = append(m.conversations[name], line, "")
}

func (m Model) handleOpening(msg openingMsg) (tea.Model, tea.Cmd) {
	m.appendLine(msg.suspect, msg.suspect+": "+msg.line)
	m.loading = false
	m.busyWith = ""
	return m, nil
}

func (m Model) handleCachedAnswer(msg cachedAnswerMsg) (tea.Model, tea.Cmd) {
	m.appendLine(msg.suspect, msg.suspect+": "+msg.answer)
	m.loading = false
	m.busyWith = ""
	return m, nil
}

func (m Model) handleStreamStarted(msg streamStartedMsg) (tea.Model, tea.Cmd) {
	m.pending = msg.pending
	m.streaming = true
	m.partial = ""
	return m, readChunk(msg.pending.chunks)
}

func (m Model) handleStreamChunk(msg streamChunkMsg) (tea.Model, tea.Cmd) {
	m.partial += msg.text
	return m, readChunk(m.pending.chunks)
}

// handleStreamDone commits the streamed text. The spinner keeps running
// until the commit lands because clue detection still has to run.
func (m Model) handleStreamDone() (tea.Model, tea.Cmd) {
	m.streaming = false
	if strings.TrimSpace(m.partial) == "" {
		return m, abandonAnswer(m.session, m.pending, errEmptyStream)
	}
	return m, commitAnswer(m.session, m.pending, m.partial)
}

func (m Model) handleStreamFailed(msg streamFailedMsg) (tea.Model, tea.Cmd) {
	m.streaming = false
	return m, abandonAnswer(m.session, m.pending, msg.err)
}

func (m Model) handleAnswerCommitted(msg answerCommittedMsg) (tea.Model, tea.Cmd) {
	m.appendLine(msg.exchange.Suspect, msg.exchange.Suspect+": "+msg.exchange.Response)
	for _, clue := range msg.exchange.NewClues {
		m.appendLine(msg.exchange.Suspect, "[NOTED] "+clue)
	}
	m.partial = ""
	m.pending = pendingQuestion{}
	m.loading = false
	m.busyWith = ""
	return m, nil
}

func (m Model) handleFallback(msg fallbackMsg) (tea.Model, tea.Cmd) {
	m.appendLine(msg.exchange.Suspect, msg.exchange.Suspect+": "+msg.exchange.Response)
	m.partial = ""
	m.pending = pendingQuestion{}
	m.loading = false
	m.busyWith = ""
	return m, nil
}
