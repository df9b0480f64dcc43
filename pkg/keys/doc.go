// Package keys defines the value types the remapper works with:
//
//   - Modifier / Modifiers: the closed set {Ctrl, Shift, Alt, Cmd, Fn}
//   - KeyCode: a macOS virtual key code, with Null meaning "no key"
//   - KeySpec: one chord (modifier set plus key code)
//   - KeySequence: ordered chords leading to a binding
//   - KeyAction: what a resolved binding does
//
// Chords are written "Ctrl+Shift+A"; sequences separate chords with
// whitespace, e.g. "Ctrl+X Ctrl+S".
package keys
