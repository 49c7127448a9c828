package editor

import (
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines the editor key bindings.
type KeyMap struct {
	Up             Key
	Down           Key
	Add            Key
	EditIngredient Key
	EditQuantity   Key
	EditUnit       Key
	EditPrice      Key
	Delete         Key
	Discard        Key
	SaveLine       Key
	Save           Key
	Reload         Key
	Quit           Key

	// While a cell is being edited.
	Apply  Key
	Cancel Key
	Commit Key
}

// Key represents a key binding.
type Key struct {
	Keys    []string
	Help    string
	Enabled bool
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: Key{
			Keys:    []string{"up", "k"},
			Help:    "up",
			Enabled: true,
		},
		Down: Key{
			Keys:    []string{"down", "j"},
			Help:    "down",
			Enabled: true,
		},
		Add: Key{
			Keys:    []string{"a", "ctrl+n"},
			Help:    "add line",
			Enabled: true,
		},
		EditIngredient: Key{
			Keys:    []string{"i"},
			Help:    "ingredient",
			Enabled: true,
		},
		EditQuantity: Key{
			Keys:    []string{"e", "enter"},
			Help:    "quantity",
			Enabled: true,
		},
		EditUnit: Key{
			Keys:    []string{"u"},
			Help:    "unit",
			Enabled: true,
		},
		EditPrice: Key{
			Keys:    []string{"p"},
			Help:    "ingredient price",
			Enabled: true,
		},
		Delete: Key{
			Keys:    []string{"d", "delete"},
			Help:    "delete",
			Enabled: true,
		},
		Discard: Key{
			Keys:    []string{"x"},
			Help:    "discard edit",
			Enabled: true,
		},
		SaveLine: Key{
			Keys:    []string{"w"},
			Help:    "save line",
			Enabled: true,
		},
		Save: Key{
			Keys:    []string{"s", "ctrl+s"},
			Help:    "save all",
			Enabled: true,
		},
		Reload: Key{
			Keys:    []string{"r", "ctrl+r"},
			Help:    "reload",
			Enabled: true,
		},
		Quit: Key{
			Keys:    []string{"q", "ctrl+c"},
			Help:    "quit",
			Enabled: true,
		},
		Apply: Key{
			Keys:    []string{"enter"},
			Help:    "apply",
			Enabled: true,
		},
		Cancel: Key{
			Keys:    []string{"esc"},
			Help:    "cancel",
			Enabled: true,
		},
		Commit: Key{
			Keys:    []string{"ctrl+s"},
			Help:    "save line",
			Enabled: true,
		},
	}
}

// Matches checks if a key message matches this key binding.
func (k Key) Matches(msg tea.KeyMsg) bool {
	if !k.Enabled {
		return false
	}

	keyStr := msg.String()
	for _, key := range k.Keys {
		if keyStr == key {
			return true
		}
	}
	return false
}

// StatusBarHelp returns the help text for the status bar.
func (km KeyMap) StatusBarHelp() string {
	return "[a]Add [i]Ingredient [e]Qty [u]Unit [p]Price [w]Save line [d]Delete [x]Discard [s]Save all [r]Reload [q]Quit"
}

// CellHelp returns the help text shown while a cell is edited.
func (km KeyMap) CellHelp() string {
	return "[enter]Apply [ctrl+s]Save line [esc]Cancel"
}
