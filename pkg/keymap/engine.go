package keymap

import (
	"github.com/offlinefirst/keymapd/pkg/keys"
)

// State is the matcher's position.
type State uint8

const (
	// StateInit means no key has been matched and no mode explicitly entered.
	StateInit State = iota
	// StateAtRoot means the engine is waiting for the next chord, possibly
	// part way through a multi-chord sequence.
	StateAtRoot
	// StateAtLeaf means the previous chord resolved a binding. The next chord
	// is matched from the current mode's root.
	StateAtLeaf
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAtRoot:
		return "at_root"
	case StateAtLeaf:
		return "at_leaf"
	default:
		return "unknown"
	}
}

// Engine resolves chords one at a time against the active mode's trie.
// It is not safe for concurrent use.
type Engine struct {
	modes  *ModeTable
	policy BindPolicy

	state   State
	mode    string
	node    *ActionNode
	partial keys.KeySequence
	last    *ActionNode
}

// NewEngine builds an engine over table, or over an empty table when nil.
// The engine starts in StateInit with the default mode selected.
func NewEngine(table *ModeTable) *Engine {
	if table == nil {
		table = NewModeTable()
	}
	return &Engine{
		modes: table,
		state: StateInit,
		mode:  DefaultMode,
	}
}

// SetPolicy selects how Register handles collisions.
func (e *Engine) SetPolicy(policy BindPolicy) {
	e.policy = policy
}

// Modes exposes the underlying table.
func (e *Engine) Modes() *ModeTable {
	return e.modes
}

// Mode returns the active mode name.
func (e *Engine) Mode() string {
	return e.mode
}

// State returns the matcher state.
func (e *Engine) State() State {
	return e.state
}

// Partial returns a copy of the chords consumed toward an unresolved sequence.
func (e *Engine) Partial() keys.KeySequence {
	return e.partial.Clone()
}

// LastResolved returns the leaf reached by the most recent successful match.
func (e *Engine) LastResolved() (*ActionNode, bool) {
	return e.last, e.last != nil
}

// AddMode creates a mode.
func (e *Engine) AddMode(name string) error {
	return e.modes.AddMode(name)
}

// RemoveMode deletes a mode. Removing the active mode falls back to default.
func (e *Engine) RemoveMode(name string) error {
	if err := e.modes.RemoveMode(name); err != nil {
		return err
	}
	if e.mode == name {
		e.enter(DefaultMode)
	}
	return nil
}

// Register binds seq to action in mode ("" means default).
func (e *Engine) Register(seq keys.KeySequence, action keys.KeyAction, mode string) error {
	mode = ResolveMode(mode)
	if err := e.modes.Bind(mode, seq, action, e.policy); err != nil {
		return err
	}
	e.settle(mode)
	return nil
}

// Unregister removes the binding for seq in mode ("" means default).
func (e *Engine) Unregister(seq keys.KeySequence, mode string) error {
	mode = ResolveMode(mode)
	if err := e.modes.Unbind(mode, seq); err != nil {
		return err
	}
	e.settle(mode)
	return nil
}

// settle drops in-progress input when the active trie was edited, so the
// engine never points into a subtree that was replaced or pruned.
func (e *Engine) settle(mode string) {
	if mode == e.mode && len(e.partial) > 0 {
		e.enter(e.mode)
	}
}

// Reset abandons any partial sequence and returns to the current mode's
// root. The mode is unchanged. The discarded chords are returned.
func (e *Engine) Reset() keys.KeySequence {
	discarded := e.partial
	e.enter(e.mode)
	return discarded
}

// SwitchMode makes name the active mode, discarding partial input. An unknown
// name leaves the engine untouched.
func (e *Engine) SwitchMode(name string) error {
	name = ResolveMode(name)
	if !e.modes.Has(name) {
		return &NoSuchModeError{Mode: name}
	}
	e.enter(name)
	return nil
}

// Replace swaps in a new table, keeping the active mode when it still exists.
func (e *Engine) Replace(table *ModeTable) {
	if table == nil {
		table = NewModeTable()
	}
	e.modes = table
	e.last = nil
	if !table.Has(e.mode) {
		e.mode = DefaultMode
	}
	e.enter(e.mode)
}

// MakeInput feeds one chord. It returns the resolved action and true when the
// chord completes a sequence, false while a sequence is still in progress.
// Chords without a key code are ignored. A chord with no binding at the
// current position yields a KeyNotFoundError and leaves the state as it was;
// callers normally Reset afterwards.
func (e *Engine) MakeInput(key keys.KeySpec) (keys.KeyAction, bool, error) {
	if key.IsModifierOnly() {
		return keys.KeyAction{}, false, nil
	}

	if e.state != StateAtRoot {
		e.enter(e.mode)
	}

	child, ok := e.node.Get(key)
	if !ok {
		return keys.KeyAction{}, false, keyNotFound(e.partial, key)
	}

	if child.IsLeaf() {
		e.state = StateAtLeaf
		e.node = child
		e.last = child
		e.partial = nil
		return child.Action, true, nil
	}

	e.partial = append(e.partial, key)
	e.node = child
	return keys.KeyAction{}, false, nil
}

func (e *Engine) enter(mode string) {
	root, err := e.modes.Root(mode)
	if err != nil {
		// Only reachable when the active mode was removed from under us.
		mode = DefaultMode
		root, _ = e.modes.Root(mode)
	}
	e.mode = mode
	e.node = root
	e.partial = nil
	e.state = StateAtRoot
}
