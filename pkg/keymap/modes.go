package keymap

import (
	"errors"
	"sort"
	"strings"

	"github.com/offlinefirst/keymapd/pkg/keys"
)

// DefaultMode always exists and cannot be removed.
const DefaultMode = "default"

// ErrEmptyModeName is returned when a mode name is blank.
var ErrEmptyModeName = errors.New("mode name must not be empty")

// ModeTable maps mode names to independent binding tries. Modes are flat:
// switching modes swaps roots, never walks between them.
type ModeTable struct {
	roots map[string]*ActionNode
}

// NewModeTable returns a table holding only an empty default mode.
func NewModeTable() *ModeTable {
	return &ModeTable{
		roots: map[string]*ActionNode{
			DefaultMode: NewActionNode(keys.None, keys.Nop()),
		},
	}
}

// ResolveMode maps the empty name to DefaultMode.
func ResolveMode(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultMode
	}
	return name
}

// AddMode creates an empty mode. Adding an existing mode is a no-op.
func (t *ModeTable) AddMode(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyModeName
	}
	if _, ok := t.roots[name]; ok {
		return nil
	}
	t.roots[name] = NewActionNode(keys.None, keys.Nop())
	return nil
}

// RemoveMode deletes a mode and all of its bindings.
func (t *ModeTable) RemoveMode(name string) error {
	if name == DefaultMode {
		return ErrDefaultMode
	}
	if _, ok := t.roots[name]; !ok {
		return &NoSuchModeError{Mode: name}
	}
	delete(t.roots, name)
	return nil
}

// Has reports whether the mode exists.
func (t *ModeTable) Has(name string) bool {
	_, ok := t.roots[ResolveMode(name)]
	return ok
}

// Root returns the trie root for a mode.
func (t *ModeTable) Root(name string) (*ActionNode, error) {
	name = ResolveMode(name)
	root, ok := t.roots[name]
	if !ok {
		return nil, &NoSuchModeError{Mode: name}
	}
	return root, nil
}

// Modes lists mode names in sorted order.
func (t *ModeTable) Modes() []string {
	names := make([]string, 0, len(t.roots))
	for name := range t.roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bind installs a binding in the named mode.
func (t *ModeTable) Bind(mode string, seq keys.KeySequence, action keys.KeyAction, policy BindPolicy) error {
	mode = ResolveMode(mode)
	root, err := t.Root(mode)
	if err != nil {
		return err
	}
	if err := root.BindWith(seq, action, policy); err != nil {
		var bound *KeyAlreadyBoundError
		if errors.As(err, &bound) {
			bound.Mode = mode
		}
		return err
	}
	return nil
}

// Unbind removes a binding from the named mode.
func (t *ModeTable) Unbind(mode string, seq keys.KeySequence) error {
	root, err := t.Root(mode)
	if err != nil {
		return err
	}
	return root.Unbind(seq)
}

// Walk visits every binding, modes in sorted order.
func (t *ModeTable) Walk(fn func(mode string, seq keys.KeySequence, action keys.KeyAction)) {
	for _, name := range t.Modes() {
		t.roots[name].Walk(func(seq keys.KeySequence, action keys.KeyAction) {
			fn(name, seq, action)
		})
	}
}

// Len counts bindings across all modes.
func (t *ModeTable) Len() int {
	total := 0
	for _, root := range t.roots {
		total += root.Bindings()
	}
	return total
}
