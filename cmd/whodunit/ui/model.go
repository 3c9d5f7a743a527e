package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"whodunit/internal/debug"
	"whodunit/internal/llm"
	"whodunit/internal/mystery/session"
)

type screen int

const (
	screenRoster screen = iota
	screenConversation
	screenNotebook
	screenLog
	screenAccuse
	screenVerdict
)

// Model drives the investigation interface. The detective moves between a
// suspect roster, streaming interrogation conversations, the case notebook,
// the investigation log, and a final accusation that ends the game.
type Model struct {
	session *session.Session
	llm     *llm.Service
	debug   *debug.Logger

	width  int
	height int
	screen screen

	suspects []string
	cursor   int

	current       string
	conversations map[string][]string
	opened        map[string]bool
	input         textinput.Model
	spin          spinner.Model
	loading       bool
	streaming     bool
	busyWith      string
	partial       string
	pending       pendingQuestion

	accuseCursor int
	verdict      *session.Verdict
	status       string
}

// pendingQuestion carries one in-flight generation from stream start to the
// commit (or fallback) that records it.
type pendingQuestion struct {
	suspect  string
	question string
	req      llm.StreamCompletionRequest
	chunks   <-chan llm.StreamChunk
	start    time.Time
}

func NewModel(sess *session.Session, llmService *llm.Service, debugLogger *debug.Logger) Model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "Ask a question..."
	input.CharLimit = 280
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	return Model{
		session:       sess,
		llm:           llmService,
		debug:         debugLogger,
		suspects:      sess.Suspects(),
		conversations: make(map[string][]string),
		opened:        make(map[string]bool),
		input:         input,
		spin:          sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

type openingMsg struct {
	suspect string
	line    string
}

type cachedAnswerMsg struct {
	suspect string
	answer  string
}

type streamStartedMsg struct {
	pending pendingQuestion
}

type streamChunkMsg struct {
	text string
}

type streamDoneMsg struct{}

type streamFailedMsg struct {
	err error
}

type askFailedMsg struct {
	err error
}

type answerCommittedMsg struct {
	exchange session.Exchange
}

type fallbackMsg struct {
	exchange session.Exchange
}
