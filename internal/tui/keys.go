package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines keybindings for the download display
type KeyMap struct {
	Cancel key.Binding
}

// DefaultKeyMap returns the standard bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "cancel"),
		),
	}
}

// IsCancel returns true if the key should abort the download
func (k KeyMap) IsCancel(msg tea.KeyMsg) bool {
	return key.Matches(msg, k.Cancel)
}

// Help returns a one-line hint for the enabled bindings
func (k KeyMap) Help() string {
	h := k.Cancel.Help()
	return h.Key + ": " + h.Desc
}
