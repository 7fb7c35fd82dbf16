package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleSpeaker = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleReaderInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("105")).
			Bold(true)
)

// lineKind identifies the type of an output line for styling. Lines are
// tagged at the moment they are produced, so styling never has to guess
// from the text.
type lineKind int

const (
	kindNarration lineKind = iota
	kindDialogue
	kindSystem
	kindError
	kindInput
	kindTitle
)

// renderLine applies the style for a line's kind. Dialogue lines keep the
// speaker prefix bold, the rest of the utterance in the dialogue color.
func renderLine(line string, kind lineKind) string {
	switch kind {
	case kindDialogue:
		if idx := strings.Index(line, ": "); idx > 0 {
			return styleSpeaker.Render(line[:idx+1]) + styleDialogue.Render(line[idx+1:])
		}
		return styleDialogue.Render(line)
	case kindSystem:
		return styleSystem.Render("[" + line + "]")
	case kindError:
		return styleError.Render(line)
	case kindInput:
		return styleReaderInput.Render("> " + line)
	case kindTitle:
		return styleTitle.Render(line)
	default:
		return styleNarration.Render(line)
	}
}
