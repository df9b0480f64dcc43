// Package capture turns hardware keyboard events into chords.
//
// On macOS the Quartz source installs an active CGEventTap (Accessibility
// approval required) whose callback decides per event whether the keystroke
// is swallowed or forwarded to the focused application. Other platforms have
// no native tap; the reader source replays chords typed as text, which is
// what tests and the "--source stdin" mode use.
package capture
