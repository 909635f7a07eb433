package tui

import (
	"regexp"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

var amountTextRe = regexp.MustCompile(`^[0-9,]*\.?[0-9]*$`)

func newAmountInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "0"
	ti.Prompt = ""
	ti.CharLimit = 24
	ti.Width = 18
	ti.TextStyle = amountStyle
	ti.Focus()
	return ti
}

// amountKey reports whether the key edits the amount. The input takes
// digits, a decimal point and cursor movement only.
func amountKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete, tea.KeyLeft, tea.KeyRight, tea.KeyHome, tea.KeyEnd:
		return true
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if (r < '0' || r > '9') && r != '.' && r != ',' {
				return false
			}
		}
		return len(msg.Runes) > 0
	}
	return false
}

func validAmountText(s string) bool {
	return amountTextRe.MatchString(s)
}
