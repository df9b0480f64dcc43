package keymap

import (
	"github.com/offlinefirst/keymapd/pkg/keys"
)

// BindPolicy decides what happens when a bind collides with an existing
// binding.
type BindPolicy uint8

const (
	// BindReplace overwrites the existing child with the same key, dropping
	// any sequences bound beneath it.
	BindReplace BindPolicy = iota
	// BindStrict rejects the bind with a KeyAlreadyBoundError.
	BindStrict
)

// ActionNode is one node of a mode's binding trie. Edges are chords; a node
// without children is a leaf and its Action is what the path resolves to.
// Internal nodes never resolve, so their Action is irrelevant.
type ActionNode struct {
	Key    keys.KeySpec
	Action keys.KeyAction

	// bound marks nodes installed as the target of a Bind, as opposed to
	// placeholders created along the way. Unbind prunes placeholders only.
	bound    bool
	children map[keys.KeySpec]*ActionNode
	order    []keys.KeySpec
}

// NewActionNode returns a childless node.
func NewActionNode(key keys.KeySpec, action keys.KeyAction) *ActionNode {
	return &ActionNode{Key: key, Action: action}
}

// Get returns the direct child reached by key.
func (n *ActionNode) Get(key keys.KeySpec) (*ActionNode, bool) {
	child, ok := n.children[key]
	return child, ok
}

// IsLeaf reports whether the node has no children.
func (n *ActionNode) IsLeaf() bool {
	return len(n.children) == 0
}

// Len returns the number of direct children.
func (n *ActionNode) Len() int {
	return len(n.children)
}

// Children returns the direct children in insertion order.
func (n *ActionNode) Children() []*ActionNode {
	out := make([]*ActionNode, 0, len(n.order))
	for _, k := range n.order {
		out = append(out, n.children[k])
	}
	return out
}

// Bind installs action at the end of seq using BindReplace.
func (n *ActionNode) Bind(seq keys.KeySequence, action keys.KeyAction) error {
	return n.BindWith(seq, action, BindReplace)
}

// BindWith installs action at the end of seq, creating placeholder nodes for
// every missing intermediate chord. The trie is validated before it is
// touched, so a rejected bind leaves it unchanged.
func (n *ActionNode) BindWith(seq keys.KeySequence, action keys.KeyAction, policy BindPolicy) error {
	if len(seq) == 0 {
		return ErrInvalidSequence
	}
	for _, k := range seq {
		if k.IsModifierOnly() {
			return ErrInvalidSequence
		}
	}

	if policy == BindStrict {
		if err := n.checkFree(seq); err != nil {
			return err
		}
	}

	node := n
	for _, k := range seq[:len(seq)-1] {
		child, ok := node.children[k]
		if !ok {
			child = NewActionNode(k, keys.Nop())
			node.setChild(child)
		}
		node = child
	}

	last := seq[len(seq)-1]
	leaf := NewActionNode(last, action)
	leaf.bound = true
	node.setChild(leaf)
	return nil
}

func (n *ActionNode) checkFree(seq keys.KeySequence) error {
	node := n
	for i, k := range seq {
		child, ok := node.children[k]
		if !ok {
			return nil
		}
		if i == len(seq)-1 || (child.bound && child.IsLeaf()) {
			return &KeyAlreadyBoundError{Sequence: seq[:i+1].Clone()}
		}
		node = child
	}
	return nil
}

// Unbind removes the binding at seq. Placeholder nodes left without children
// are pruned, so binding then unbinding a sequence restores the previous
// trie shape. A seq that ends on an internal node removes nothing beneath
// it: a bound prefix loses its binding and keeps its children, a
// placeholder reports KeyNotFoundError.
func (n *ActionNode) Unbind(seq keys.KeySequence) error {
	if len(seq) == 0 {
		return ErrInvalidSequence
	}

	parents := make([]*ActionNode, 0, len(seq))
	node := n
	for i, k := range seq[:len(seq)-1] {
		child, ok := node.children[k]
		if !ok {
			return keyNotFound(seq[:i], k)
		}
		parents = append(parents, node)
		node = child
	}

	last := seq[len(seq)-1]
	target, ok := node.children[last]
	if !ok {
		return keyNotFound(seq[:len(seq)-1], last)
	}
	if !target.IsLeaf() {
		if !target.bound {
			return keyNotFound(seq[:len(seq)-1], last)
		}
		target.bound = false
		target.Action = keys.Nop()
		return nil
	}
	node.removeChild(last)

	for i := len(parents) - 1; i >= 0; i-- {
		if !node.IsLeaf() || node.bound {
			break
		}
		parents[i].removeChild(node.Key)
		node = parents[i]
	}
	return nil
}

// Walk calls fn for every leaf beneath n with the full sequence leading to
// it, in insertion order.
func (n *ActionNode) Walk(fn func(seq keys.KeySequence, action keys.KeyAction)) {
	n.walk(nil, fn)
}

func (n *ActionNode) walk(prefix keys.KeySequence, fn func(keys.KeySequence, keys.KeyAction)) {
	for _, k := range n.order {
		child := n.children[k]
		path := append(prefix.Clone(), k)
		if child.IsLeaf() {
			fn(path, child.Action)
			continue
		}
		child.walk(path, fn)
	}
}

// Bindings counts the leaves beneath n.
func (n *ActionNode) Bindings() int {
	count := 0
	n.Walk(func(keys.KeySequence, keys.KeyAction) { count++ })
	return count
}

func (n *ActionNode) setChild(child *ActionNode) {
	if n.children == nil {
		n.children = make(map[keys.KeySpec]*ActionNode)
	}
	if _, exists := n.children[child.Key]; !exists {
		n.order = append(n.order, child.Key)
	}
	n.children[child.Key] = child
}

func (n *ActionNode) removeChild(key keys.KeySpec) {
	if _, ok := n.children[key]; !ok {
		return
	}
	delete(n.children, key)
	for i, k := range n.order {
		if k == key {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}
