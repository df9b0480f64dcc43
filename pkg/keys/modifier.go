package keys

import "strings"

// Modifier identifies one modifier key. Values are ordered Ctrl < Shift <
// Alt < Cmd < Fn, which is also the order used when rendering a chord.
type Modifier uint8

const (
	Ctrl Modifier = 1 << iota
	Shift
	Alt
	Cmd
	Fn
)

var allModifiers = [...]Modifier{Ctrl, Shift, Alt, Cmd, Fn}

// String returns the canonical modifier name.
func (m Modifier) String() string {
	switch m {
	case Ctrl:
		return "Ctrl"
	case Shift:
		return "Shift"
	case Alt:
		return "Alt"
	case Cmd:
		return "Cmd"
	case Fn:
		return "Fn"
	default:
		return "Modifier(?)"
	}
}

// Modifiers is a set of modifier keys stored as a bitmask. The numeric value
// of the mask gives sets a total, deterministic order.
type Modifiers uint8

// NoModifiers is the empty set.
const NoModifiers Modifiers = 0

// Mods builds a set from individual modifiers.
func Mods(mods ...Modifier) Modifiers {
	var set Modifiers
	for _, m := range mods {
		set |= Modifiers(m)
	}
	return set
}

// Has reports whether m is in the set.
func (s Modifiers) Has(m Modifier) bool {
	return s&Modifiers(m) != 0
}

// With returns the set with m added.
func (s Modifiers) With(m Modifier) Modifiers {
	return s | Modifiers(m)
}

// Without returns the set with m removed.
func (s Modifiers) Without(m Modifier) Modifiers {
	return s &^ Modifiers(m)
}

// IsEmpty reports whether no modifier is set.
func (s Modifiers) IsEmpty() bool {
	return s == NoModifiers
}

// List returns the members in canonical order.
func (s Modifiers) List() []Modifier {
	out := make([]Modifier, 0, len(allModifiers))
	for _, m := range allModifiers {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

// String renders the set like "Ctrl+Alt".
func (s Modifiers) String() string {
	if s.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(allModifiers))
	for _, m := range s.List() {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, "+")
}

var modifierNames = map[string]Modifier{
	"ctrl":     Ctrl,
	"control":  Ctrl,
	"shift":    Shift,
	"alt":      Alt,
	"option":   Alt,
	"opt":      Alt,
	"cmd":      Cmd,
	"command":  Cmd,
	"meta":     Cmd,
	"super":    Cmd,
	"fn":       Fn,
	"function": Fn,
}

// ModifierFromName resolves a case-insensitive modifier name or alias.
func ModifierFromName(name string) (Modifier, bool) {
	m, ok := modifierNames[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}
