package keys

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors.
var (
	ErrEmptySpec       = errors.New("empty key specification")
	ErrInvalidSpec     = errors.New("invalid key specification")
	ErrUnknownKey      = errors.New("unknown key")
	ErrUnknownModifier = errors.New("unknown modifier")
)

// ParseKeySpec parses one chord.
//
// Supported formats:
//   - Key names: "a", "A", "1", "Space", "Return", "Esc", "F5", "/"
//   - With modifiers: "Ctrl+C", "Cmd+Shift+P", "Fn+F6"
//   - Modifiers only: "Ctrl+Shift" (the key is Null)
//
// Letter case never implies Shift; write it explicitly.
func ParseKeySpec(spec string) (KeySpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return KeySpec{}, ErrEmptySpec
	}

	parts := strings.Split(spec, "+")
	keyPart := strings.TrimSpace(parts[len(parts)-1])
	if keyPart == "" {
		return KeySpec{}, fmt.Errorf("%w: %q has no key", ErrInvalidSpec, spec)
	}

	var mods Modifiers
	for _, p := range parts[:len(parts)-1] {
		m, ok := ModifierFromName(p)
		if !ok {
			return KeySpec{}, fmt.Errorf("%w %q in %q", ErrUnknownModifier, strings.TrimSpace(p), spec)
		}
		mods = mods.With(m)
	}

	if m, ok := ModifierFromName(keyPart); ok {
		return KeySpec{Mods: mods.With(m), Code: Null}, nil
	}
	code, ok := KeyCodeFromName(keyPart)
	if !ok {
		return KeySpec{}, fmt.Errorf("%w %q in %q", ErrUnknownKey, keyPart, spec)
	}
	return KeySpec{Mods: mods, Code: code}, nil
}

// MustParseKeySpec is like ParseKeySpec but panics on error. Intended for
// constants and tests.
func MustParseKeySpec(spec string) KeySpec {
	k, err := ParseKeySpec(spec)
	if err != nil {
		panic(err)
	}
	return k
}

// ParseSequence parses whitespace-separated chords, e.g. "Space L" or
// "Ctrl+X Ctrl+S".
func ParseSequence(spec string) (KeySequence, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return nil, ErrEmptySpec
	}
	seq := make(KeySequence, 0, len(fields))
	for i, field := range fields {
		k, err := ParseKeySpec(field)
		if err != nil {
			return nil, fmt.Errorf("chord %d: %w", i+1, err)
		}
		seq = append(seq, k)
	}
	return seq, nil
}

// MustParseSequence is like ParseSequence but panics on error.
func MustParseSequence(spec string) KeySequence {
	seq, err := ParseSequence(spec)
	if err != nil {
		panic(err)
	}
	return seq
}
