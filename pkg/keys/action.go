package keys

import (
	"fmt"
	"log/slog"
)

// ActionKind enumerates what a resolved binding does.
type ActionKind uint8

const (
	ActionNop ActionKind = iota
	ActionShell
	ActionModeChange
	ActionSendKey
)

// String returns the kind label used in logs and metrics.
func (k ActionKind) String() string {
	switch k {
	case ActionNop:
		return "nop"
	case ActionShell:
		return "shell"
	case ActionModeChange:
		return "mode_change"
	case ActionSendKey:
		return "send_key"
	default:
		return "unknown"
	}
}

// KeyAction is the terminal payload of a binding. Only the field matching
// Kind is meaningful. The zero value is Nop.
type KeyAction struct {
	Kind    ActionKind
	Command string
	Mode    string
	Key     KeySpec
}

// Nop returns an action that does nothing. Binding it swallows the chord.
func Nop() KeyAction {
	return KeyAction{Kind: ActionNop}
}

// ShellCommand returns an action running cmd through the shell.
func ShellCommand(cmd string) KeyAction {
	return KeyAction{Kind: ActionShell, Command: cmd}
}

// ModeChange returns an action switching the active mode.
func ModeChange(mode string) KeyAction {
	return KeyAction{Kind: ActionModeChange, Mode: mode}
}

// SendKey returns an action synthesising the given chord.
func SendKey(key KeySpec) KeyAction {
	return KeyAction{Kind: ActionSendKey, Key: key}
}

// String renders the action like `shell("open -a Mail")`.
func (a KeyAction) String() string {
	switch a.Kind {
	case ActionNop:
		return "nop"
	case ActionShell:
		return fmt.Sprintf("shell(%q)", a.Command)
	case ActionModeChange:
		return fmt.Sprintf("mode(%s)", a.Mode)
	case ActionSendKey:
		return fmt.Sprintf("send(%s)", a.Key)
	default:
		return "unknown"
	}
}

// LogValue implements slog.LogValuer.
func (a KeyAction) LogValue() slog.Value {
	return slog.StringValue(a.String())
}
