package editor

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var errNotPositive = errors.New("must be a number greater than 0")

// Input is a single-line text field for editing one cell.
type Input struct {
	label     string
	value     string
	cursorPos int
	maxLength int
	numeric   bool
	err       string
}

// NewInput creates a new input field.
func NewInput(label string) *Input {
	return &Input{
		label:     label,
		maxLength: 100,
	}
}

// SetValue sets the input value and moves the cursor to its end.
func (i *Input) SetValue(v string) *Input {
	i.value = v
	i.cursorPos = len(v)
	return i
}

// SetNumeric limits typed characters to digits and a decimal point.
func (i *Input) SetNumeric(n bool) *Input {
	i.numeric = n
	return i
}

// SetMaxLength sets the maximum input length.
func (i *Input) SetMaxLength(m int) *Input {
	i.maxLength = m
	return i
}

// SetError sets an error message.
func (i *Input) SetError(e string) *Input {
	i.err = e
	return i
}

// Value returns the current value.
func (i *Input) Value() string {
	return i.value
}

// Positive parses the value as a finite number greater than zero.
func (i *Input) Positive() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(i.value), 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errNotPositive
	}
	return v, nil
}

// HandleKey handles a key press.
func (i *Input) HandleKey(key string) {
	switch key {
	case "backspace":
		if len(i.value) > 0 && i.cursorPos > 0 {
			i.value = i.value[:i.cursorPos-1] + i.value[i.cursorPos:]
			i.cursorPos--
		}
	case "delete":
		if i.cursorPos < len(i.value) {
			i.value = i.value[:i.cursorPos] + i.value[i.cursorPos+1:]
		}
	case "left":
		if i.cursorPos > 0 {
			i.cursorPos--
		}
	case "right":
		if i.cursorPos < len(i.value) {
			i.cursorPos++
		}
	case "home", "ctrl+a":
		i.cursorPos = 0
	case "end", "ctrl+e":
		i.cursorPos = len(i.value)
	case " ":
		if !i.numeric {
			i.insert(key)
		}
	default:
		if len(key) != 1 {
			return
		}
		if i.numeric && !strings.ContainsAny(key, "0123456789.") {
			return
		}
		i.insert(key)
	}
	i.err = ""
}

func (i *Input) insert(s string) {
	if len(i.value) >= i.maxLength {
		return
	}
	i.value = i.value[:i.cursorPos] + s + i.value[i.cursorPos:]
	i.cursorPos += len(s)
}

// Render renders the field with a cursor.
func (i *Input) Render(t *Theme) string {
	before := i.value[:i.cursorPos]
	after := i.value[i.cursorPos:]

	result := t.Label.Render(i.label+":") + " " + t.Focus.Render(before+"_"+after)
	if i.err != "" {
		result += " " + t.Error.Render(i.err)
	}
	return result
}

// Select picks one of a fixed list of options.
type Select struct {
	label    string
	options  []string
	selected int
}

// NewSelect creates a new select input.
func NewSelect(label string, options []string) *Select {
	return &Select{
		label:   label,
		options: options,
	}
}

// SetSelected selects the option equal to v, ignoring case. Unknown values
// leave the selection unchanged.
func (s *Select) SetSelected(v string) *Select {
	for idx, opt := range s.options {
		if strings.EqualFold(opt, v) {
			s.selected = idx
			break
		}
	}
	return s
}

// Value returns the selected value.
func (s *Select) Value() string {
	if s.selected >= 0 && s.selected < len(s.options) {
		return s.options[s.selected]
	}
	return ""
}

// HandleKey handles a key press.
func (s *Select) HandleKey(key string) {
	switch key {
	case "left", "h":
		if s.selected > 0 {
			s.selected--
		}
	case "right", "l", "tab":
		if s.selected < len(s.options)-1 {
			s.selected++
		}
	}
}

// Render renders the options with the selected one bracketed.
func (s *Select) Render(t *Theme) string {
	var b strings.Builder
	b.WriteString(t.Label.Render(s.label + ":"))

	for idx, opt := range s.options {
		b.WriteString(" ")
		if idx == s.selected {
			b.WriteString(t.Focus.Render("[" + opt + "]"))
		} else {
			b.WriteString(t.Muted.Render(" " + opt + " "))
		}
	}
	return b.String()
}
