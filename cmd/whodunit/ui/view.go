package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"whodunit/internal/mystery/personality"
	"whodunit/internal/mystery/session"
)

const loadingSentinel = "LOADING_ANIMATION"

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	messageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	noteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	solvedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(1)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	switch m.screen {
	case screenConversation:
		return m.viewConversation()
	case screenNotebook:
		return m.viewNotebook()
	case screenLog:
		return m.viewLog()
	case screenAccuse:
		return m.viewAccuse()
	case screenVerdict:
		return m.viewVerdict()
	}
	return m.viewRoster()
}

func (m Model) viewRoster() string {
	nb := m.session.Notebook()

	var b strings.Builder
	b.WriteString(titleStyle.Render("THE MURDER OF "+strings.ToUpper(nb.Victim.Name)) + "\n")
	b.WriteString(messageStyle.Render(fmt.Sprintf("%s, %d, %s. Found in %s %s. Cause of death: %s.",
		nb.Victim.Name, nb.Victim.Age, nb.Victim.Occupation, nb.Location, nb.Time, nb.Cause)) + "\n\n")

	b.WriteString(titleStyle.Render("SUSPECTS") + "\n")
	for i, name := range m.suspects {
		record, _ := m.session.Case().Character(name)
		line := fmt.Sprintf("%s (%d, %s)", name, record.Age, record.Occupation)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("▸ "+line) + "\n")
		} else {
			b.WriteString(messageStyle.Render("  "+line) + "\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n" + errorStyle.Render(m.status) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("↑/↓ move · enter interrogate · n notebook · l log · a accuse · q quit"))
	return m.framed(b.String())
}

func (m Model) viewConversation() string {
	inputHeight := 3
	headerHeight := 2
	chatHeight := m.height - inputHeight - headerHeight
	if chatHeight < 5 {
		chatHeight = 5
	}

	header := titleStyle.Render("Interrogating " + m.current)
	if levels := m.session.PersonalityLevels(m.current); levels != nil {
		parts := make([]string, 0, 3)
		for _, trait := range personality.StandardTraits() {
			parts = append(parts, fmt.Sprintf("%s %d", strings.ToLower(trait), levels[trait]))
		}
		header += dimStyle.Render("   " + strings.Join(parts, " · "))
	}

	chatPanel := panelStyle.Width(m.width - 2).Height(chatHeight)
	contentWidth := m.width - 6
	if contentWidth < 20 {
		contentWidth = 20
	}

	lines := m.conversations[m.current]
	if m.loading && m.busyWith == m.current {
		if m.partial != "" {
			lines = append(lines[:len(lines):len(lines)], m.current+": "+m.partial)
		} else {
			lines = append(lines[:len(lines):len(lines)], loadingSentinel)
		}
	}

	maxLines := chatHeight - 2
	if maxLines < 1 {
		maxLines = 1
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	var chat strings.Builder
	for i := 0; i < maxLines-len(lines); i++ {
		chat.WriteString("\n")
	}
	for _, line := range lines {
		switch {
		case line == "":
			chat.WriteString("\n")
		case line == loadingSentinel:
			chat.WriteString(m.spin.View() + "\n")
		case strings.HasPrefix(line, "> "):
			chat.WriteString(userStyle.Render(wrapAndIndent(line, contentWidth, " ")) + "\n")
		case strings.HasPrefix(line, "[NOTED] "):
			chat.WriteString(noteStyle.Render(wrapAndIndent(line, contentWidth, " ")) + "\n")
		default:
			chat.WriteString(messageStyle.Render(wrapAndIndent(line, contentWidth, " ")) + "\n")
		}
	}

	footer := dimStyle.Render("enter ask · esc back to roster")
	if m.status != "" {
		footer = errorStyle.Render(m.status)
	}

	input := inputStyle.Width(m.width - 4).Render(m.input.View())
	return header + "\n" + chatPanel.Render(chat.String()) + "\n" + input + "\n" + footer
}

func (m Model) viewNotebook() string {
	nb := m.session.Notebook()

	var b strings.Builder
	b.WriteString(titleStyle.Render("CASE NOTEBOOK") + "\n\n")
	b.WriteString(messageStyle.Render(fmt.Sprintf("Victim: %s (%d, %s)", nb.Victim.Name, nb.Victim.Age, nb.Victim.Occupation)) + "\n")
	b.WriteString(messageStyle.Render(fmt.Sprintf("Found in %s %s. Cause of death: %s.", nb.Location, nb.Time, nb.Cause)) + "\n\n")

	b.WriteString(titleStyle.Render("FACTS UNCOVERED") + "\n")
	if len(nb.Clues) == 0 {
		b.WriteString(dimStyle.Render("  Nothing confirmed yet. Keep pressing the suspects.") + "\n")
	}
	for _, clue := range nb.Clues {
		b.WriteString(messageStyle.Render("  • "+clue.Text) + "\n")
		b.WriteString(dimStyle.Render("    heard from "+strings.Join(clue.Sources, ", ")) + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("INCONSISTENCIES") + "\n")
	caught := false
	for _, name := range m.suspects {
		report := m.session.Contradictions(name)
		if report == nil || len(report.Contradictions) == 0 {
			continue
		}
		caught = true
		b.WriteString(messageStyle.Render(fmt.Sprintf("  %s: %d contradictions across %d statements, consistency %.2f",
			name, len(report.Contradictions), report.TotalStatements, report.Score)) + "\n")
		for _, c := range report.Contradictions {
			b.WriteString(noteStyle.Render(fmt.Sprintf("    said %q, then %q (%s)", c.Previous, c.Current, c.Context)) + "\n")
		}
	}
	if !caught {
		b.WriteString(dimStyle.Render("  No statements have clashed so far.") + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("l investigation log · esc back"))
	return m.framed(b.String())
}

func (m Model) viewLog() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("INVESTIGATION LOG") + "\n\n")

	empty := true
	for _, name := range m.suspects {
		snippets := m.session.LogSnippets(name)
		if len(snippets) == 0 {
			continue
		}
		empty = false
		b.WriteString(userStyle.Render(name) + "\n")
		for _, snippet := range snippets {
			b.WriteString(messageStyle.Render("  "+snippet) + "\n")
		}
		b.WriteString("\n")
	}
	if empty {
		b.WriteString(dimStyle.Render("No interviews on record yet.") + "\n")
	}

	b.WriteString(dimStyle.Render("n notebook · esc back"))
	return m.framed(b.String())
}

func (m Model) viewAccuse() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("MAKE AN ACCUSATION") + "\n")
	b.WriteString(errorStyle.Render("An accusation ends the investigation. Choose carefully.") + "\n\n")

	for i, name := range m.suspects {
		record, _ := m.session.Case().Character(name)
		line := fmt.Sprintf("%s (%d, %s)", name, record.Age, record.Occupation)
		if i == m.accuseCursor {
			b.WriteString(selectedStyle.Render("▸ "+line) + "\n")
		} else {
			b.WriteString(messageStyle.Render("  "+line) + "\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n" + errorStyle.Render(m.status) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("↑/↓ move · enter accuse · esc back"))
	return m.framed(b.String())
}

func (m Model) viewVerdict() string {
	if m.verdict == nil {
		return ""
	}

	var b strings.Builder
	for _, line := range verdictLines(m.verdict) {
		switch {
		case strings.HasPrefix(line, "✓") || strings.HasPrefix(line, "CASE STATUS: SOLVED"):
			b.WriteString(solvedStyle.Render(line) + "\n")
		case strings.HasPrefix(line, "✗") || strings.HasPrefix(line, "CASE STATUS: UNSOLVED"):
			b.WriteString(errorStyle.Render(line) + "\n")
		default:
			b.WriteString(messageStyle.Render(line) + "\n")
		}
	}
	b.WriteString("\n" + dimStyle.Render("q quit"))
	return m.framed(b.String())
}

// verdictLines lays out the case reveal. A correct accusation closes the
// case with the murderer's profile and confession; a wrong one names the
// real murderer and explains what made the accused look guilty.
func verdictLines(v *session.Verdict) []string {
	rule := strings.Repeat("═", 70)

	if v.Correct {
		lines := []string{
			rule,
			fmt.Sprintf("✓ CORRECT - %s IS THE MURDERER", strings.ToUpper(v.Accused.Name)),
			rule,
			"",
			fmt.Sprintf("Age: %d | Occupation: %s", v.Accused.Age, v.Accused.Occupation),
			"Gender: " + v.Accused.Gender,
			"",
			"MOTIVE:",
			"  " + v.Motive,
			"",
			"METHOD:",
			"  " + v.Cause,
			"  Location: " + v.Location,
			"  Time: " + v.Time,
			"",
			"KEY EVIDENCE:",
		}
		for _, item := range v.Evidence {
			lines = append(lines, "  • "+item)
		}
		return append(lines,
			"",
			"CONFESSION:",
			fmt.Sprintf("  When confronted with the evidence, %s", v.Accused.Name),
			"  admitted to the crime. They have been arrested.",
			"",
			"CASE STATUS: SOLVED ✓",
		)
	}

	lines := []string{
		rule,
		fmt.Sprintf("✗ INCORRECT - %s IS INNOCENT", strings.ToUpper(v.Accused.Name)),
		rule,
		"",
		fmt.Sprintf("Age: %d | Occupation: %s", v.Accused.Age, v.Accused.Occupation),
		"Gender: " + v.Accused.Gender,
		"",
		"THE REAL MURDERER: " + strings.ToUpper(v.Murderer.Name),
		"",
		"WHY YOU WERE MISLED:",
		fmt.Sprintf("  %s seemed suspicious because:", v.Accused.Name),
	}
	for _, item := range v.Misleads {
		lines = append(lines, "    - "+item)
	}
	return append(lines,
		"",
		"WHAT YOU MISSED:",
		"  The true motive: "+v.Motive,
		"  This motive pointed to "+v.Murderer.Name,
		"  Look for connections between the murderer and victim",
		"",
		"CASE STATUS: UNSOLVED - Investigation continues...",
	)
}

func (m Model) framed(content string) string {
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	return panelStyle.Width(width).Render(content)
}

func wrapAndIndent(text string, width int, indent string) string {
	if len(text) <= width {
		return indent + text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return indent + text
	}

	var result strings.Builder
	currentLine := indent + words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			result.WriteString(currentLine + "\n")
			currentLine = indent + word
		}
	}
	result.WriteString(currentLine)
	return result.String()
}
