// Package keymap implements the modal key-sequence matcher.
//
// Each mode owns a trie of ActionNodes whose edges are chords. The Engine
// holds the active mode, the current trie position and the chords consumed
// so far, and resolves one chord per MakeInput call.
//
// Rebinding a sequence replaces the previous binding (BindReplace) unless the
// engine runs with BindStrict, which rejects it with ErrKeyAlreadyBound.
package keymap
