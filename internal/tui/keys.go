package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Select key.Binding
	Track  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Track, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Select, k.Track},
		{k.Help, k.Quit},
	}
}

// newKeyMap binds the digit keys 1..maxFace, capped at 9.
func newKeyMap(maxFace int) keyMap {
	n := min(max(maxFace, 1), 9)
	digits := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		digits = append(digits, strconv.Itoa(i))
	}
	return keyMap{
		Select: key.NewBinding(
			key.WithKeys(digits...),
			key.WithHelp(fmt.Sprintf("1-%d", n), "select face"),
		),
		Track: key.NewBinding(
			key.WithKeys("t", " "),
			key.WithHelp("t/space", "toggle tracking"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
	}
}
