package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderStatusBar produces a full-width inverted status line showing the
// scene's location, time of day, emotional mood, present cast, and turn
// count.
func (m Model) renderStatusBar() string {
	s := m.engine.Scene

	left := fmt.Sprintf(" %s | %s | %s", s.Location, s.TimeOfDay, s.Mood)
	right := fmt.Sprintf("T:%d ", m.engine.Turn())

	// Show the present cast by name if it fits, otherwise just a count.
	if n := len(s.PresentCharacters); n > 0 {
		castStr := strings.Join(s.PresentCharacters, ", ")
		candidate := fmt.Sprintf("%s | T:%d ", castStr, m.engine.Turn())
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		} else {
			right = fmt.Sprintf("%d em cena | T:%d ", n, m.engine.Turn())
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
