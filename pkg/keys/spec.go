package keys

import (
	"cmp"
	"log/slog"
	"strings"
)

// KeySpec is one chord: a set of held modifiers plus a physical key. It is
// comparable and can be used as a map key.
type KeySpec struct {
	Mods Modifiers
	Code KeyCode
}

// None is the "nothing happened" sentinel: no modifiers and no key.
var None = KeySpec{Code: Null}

// Chord builds a KeySpec from a key code and modifiers.
func Chord(code KeyCode, mods ...Modifier) KeySpec {
	return KeySpec{Mods: Mods(mods...), Code: code}
}

// IsNone reports whether k is the empty sentinel.
func (k KeySpec) IsNone() bool {
	return k.Mods.IsEmpty() && k.Code == Null
}

// IsModifierOnly reports whether k carries no key, only modifiers.
func (k KeySpec) IsModifierOnly() bool {
	return k.Code == Null
}

// Compare orders chords by modifier set then key code.
func (k KeySpec) Compare(other KeySpec) int {
	if c := cmp.Compare(k.Mods, other.Mods); c != 0 {
		return c
	}
	return cmp.Compare(k.Code, other.Code)
}

// String renders the chord like "Ctrl+Shift+A". The sentinel renders empty.
func (k KeySpec) String() string {
	if k.IsNone() {
		return ""
	}
	mods := k.Mods.String()
	if k.Code == Null {
		return mods
	}
	if mods == "" {
		return k.Code.String()
	}
	return mods + "+" + k.Code.String()
}

// LogValue implements slog.LogValuer.
func (k KeySpec) LogValue() slog.Value {
	return slog.StringValue(k.String())
}

// KeySequence is an ordered list of chords: the presses leading from a mode
// root to a bound action.
type KeySequence []KeySpec

// Seq builds a sequence from chords.
func Seq(chords ...KeySpec) KeySequence {
	return KeySequence(chords)
}

// Clone returns an independent copy.
func (s KeySequence) Clone() KeySequence {
	if s == nil {
		return nil
	}
	out := make(KeySequence, len(s))
	copy(out, s)
	return out
}

// Equal reports element-wise equality.
func (s KeySequence) Equal(other KeySequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a leading part of s.
func (s KeySequence) HasPrefix(prefix KeySequence) bool {
	return len(prefix) <= len(s) && s[:len(prefix)].Equal(prefix)
}

// String renders chords separated by spaces, e.g. "Space L".
func (s KeySequence) String() string {
	parts := make([]string, 0, len(s))
	for _, k := range s {
		parts = append(parts, k.String())
	}
	return strings.Join(parts, " ")
}

// LogValue implements slog.LogValuer.
func (s KeySequence) LogValue() slog.Value {
	return slog.StringValue(s.String())
}
