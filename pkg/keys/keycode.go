package keys

import (
	"fmt"
	"strings"
)

// KeyCode is a macOS virtual key code (the kVK_* constants from
// HIToolbox/Events.h). Codes are layout independent: they name physical keys
// on an ANSI keyboard.
type KeyCode uint16

// Null means "no key". Pure modifier events carry it.
const Null KeyCode = 0xFFFF

const (
	KeyA            KeyCode = 0x00
	KeyS            KeyCode = 0x01
	KeyD            KeyCode = 0x02
	KeyF            KeyCode = 0x03
	KeyH            KeyCode = 0x04
	KeyG            KeyCode = 0x05
	KeyZ            KeyCode = 0x06
	KeyX            KeyCode = 0x07
	KeyC            KeyCode = 0x08
	KeyV            KeyCode = 0x09
	KeyB            KeyCode = 0x0B
	KeyQ            KeyCode = 0x0C
	KeyW            KeyCode = 0x0D
	KeyE            KeyCode = 0x0E
	KeyR            KeyCode = 0x0F
	KeyY            KeyCode = 0x10
	KeyT            KeyCode = 0x11
	Key1            KeyCode = 0x12
	Key2            KeyCode = 0x13
	Key3            KeyCode = 0x14
	Key4            KeyCode = 0x15
	Key6            KeyCode = 0x16
	Key5            KeyCode = 0x17
	KeyEqual        KeyCode = 0x18
	Key9            KeyCode = 0x19
	Key7            KeyCode = 0x1A
	KeyMinus        KeyCode = 0x1B
	Key8            KeyCode = 0x1C
	Key0            KeyCode = 0x1D
	KeyRightBracket KeyCode = 0x1E
	KeyO            KeyCode = 0x1F
	KeyU            KeyCode = 0x20
	KeyLeftBracket  KeyCode = 0x21
	KeyI            KeyCode = 0x22
	KeyP            KeyCode = 0x23
	KeyReturn       KeyCode = 0x24
	KeyL            KeyCode = 0x25
	KeyJ            KeyCode = 0x26
	KeyQuote        KeyCode = 0x27
	KeyK            KeyCode = 0x28
	KeySemicolon    KeyCode = 0x29
	KeyBackslash    KeyCode = 0x2A
	KeyComma        KeyCode = 0x2B
	KeySlash        KeyCode = 0x2C
	KeyN            KeyCode = 0x2D
	KeyM            KeyCode = 0x2E
	KeyPeriod       KeyCode = 0x2F
	KeyTab          KeyCode = 0x30
	KeySpace        KeyCode = 0x31
	KeyGrave        KeyCode = 0x32
	KeyDelete       KeyCode = 0x33
	KeyEscape       KeyCode = 0x35
	KeyRightCommand KeyCode = 0x36
	KeyCommand      KeyCode = 0x37
	KeyShift        KeyCode = 0x38
	KeyCapsLock     KeyCode = 0x39
	KeyOption       KeyCode = 0x3A
	KeyControl      KeyCode = 0x3B
	KeyRightShift   KeyCode = 0x3C
	KeyRightOption  KeyCode = 0x3D
	KeyRightControl KeyCode = 0x3E
	KeyFunction     KeyCode = 0x3F
	KeyF17          KeyCode = 0x40
	KeyVolumeUp     KeyCode = 0x48
	KeyVolumeDown   KeyCode = 0x49
	KeyMute         KeyCode = 0x4A
	KeyF18          KeyCode = 0x4F
	KeyF19          KeyCode = 0x50
	KeyF20          KeyCode = 0x5A
	KeyF5           KeyCode = 0x60
	KeyF6           KeyCode = 0x61
	KeyF7           KeyCode = 0x62
	KeyF3           KeyCode = 0x63
	KeyF8           KeyCode = 0x64
	KeyF9           KeyCode = 0x65
	KeyF11          KeyCode = 0x67
	KeyF13          KeyCode = 0x69
	KeyF16          KeyCode = 0x6A
	KeyF14          KeyCode = 0x6B
	KeyF10          KeyCode = 0x6D
	KeyF12          KeyCode = 0x6F
	KeyF15          KeyCode = 0x71
	KeyHelp         KeyCode = 0x72
	KeyHome         KeyCode = 0x73
	KeyPageUp       KeyCode = 0x74
	KeyForwardDel   KeyCode = 0x75
	KeyF4           KeyCode = 0x76
	KeyEnd          KeyCode = 0x77
	KeyF2           KeyCode = 0x78
	KeyPageDown     KeyCode = 0x79
	KeyF1           KeyCode = 0x7A
	KeyLeft         KeyCode = 0x7B
	KeyRight        KeyCode = 0x7C
	KeyDown         KeyCode = 0x7D
	KeyUp           KeyCode = 0x7E
)

// keyNames holds the canonical display name for every known code.
var keyNames = map[KeyCode]string{
	KeyA: "A", KeyB: "B", KeyC: "C", KeyD: "D", KeyE: "E", KeyF: "F",
	KeyG: "G", KeyH: "H", KeyI: "I", KeyJ: "J", KeyK: "K", KeyL: "L",
	KeyM: "M", KeyN: "N", KeyO: "O", KeyP: "P", KeyQ: "Q", KeyR: "R",
	KeyS: "S", KeyT: "T", KeyU: "U", KeyV: "V", KeyW: "W", KeyX: "X",
	KeyY: "Y", KeyZ: "Z",
	Key0: "0", Key1: "1", Key2: "2", Key3: "3", Key4: "4",
	Key5: "5", Key6: "6", Key7: "7", Key8: "8", Key9: "9",
	KeyEqual: "Equal", KeyMinus: "Minus", KeyLeftBracket: "LeftBracket",
	KeyRightBracket: "RightBracket", KeyQuote: "Quote", KeySemicolon: "Semicolon",
	KeyBackslash: "Backslash", KeyComma: "Comma", KeySlash: "Slash",
	KeyPeriod: "Period", KeyGrave: "Grave",
	KeyReturn: "Return", KeyTab: "Tab", KeySpace: "Space", KeyDelete: "Delete",
	KeyEscape: "Escape", KeyForwardDel: "ForwardDelete", KeyHelp: "Help",
	KeyHome: "Home", KeyEnd: "End", KeyPageUp: "PageUp", KeyPageDown: "PageDown",
	KeyLeft: "Left", KeyRight: "Right", KeyUp: "Up", KeyDown: "Down",
	KeyCommand: "Command", KeyRightCommand: "RightCommand", KeyShift: "ShiftKey",
	KeyRightShift: "RightShift", KeyOption: "Option", KeyRightOption: "RightOption",
	KeyControl: "Control", KeyRightControl: "RightControl", KeyFunction: "Function",
	KeyCapsLock: "CapsLock",
	KeyVolumeUp: "VolumeUp", KeyVolumeDown: "VolumeDown", KeyMute: "Mute",
	KeyF1: "F1", KeyF2: "F2", KeyF3: "F3", KeyF4: "F4", KeyF5: "F5",
	KeyF6: "F6", KeyF7: "F7", KeyF8: "F8", KeyF9: "F9", KeyF10: "F10",
	KeyF11: "F11", KeyF12: "F12", KeyF13: "F13", KeyF14: "F14", KeyF15: "F15",
	KeyF16: "F16", KeyF17: "F17", KeyF18: "F18", KeyF19: "F19", KeyF20: "F20",
}

// keyAliases maps lowercase spellings accepted by the parser to codes.
var keyAliases = map[string]KeyCode{
	"enter":     KeyReturn,
	"cr":        KeyReturn,
	"esc":       KeyEscape,
	"backspace": KeyDelete,
	"bs":        KeyDelete,
	"del":       KeyForwardDel,
	"pgup":      KeyPageUp,
	"pgdn":      KeyPageDown,
	"capslock":  KeyCapsLock,
	"=":         KeyEqual,
	"-":         KeyMinus,
	"[":         KeyLeftBracket,
	"]":         KeyRightBracket,
	"'":         KeyQuote,
	";":         KeySemicolon,
	"\\":        KeyBackslash,
	",":         KeyComma,
	"/":         KeySlash,
	".":         KeyPeriod,
	"`":         KeyGrave,
}

var keysByName = func() map[string]KeyCode {
	byName := make(map[string]KeyCode, len(keyNames)+len(keyAliases))
	for code, name := range keyNames {
		byName[strings.ToLower(name)] = code
	}
	for alias, code := range keyAliases {
		byName[alias] = code
	}
	return byName
}()

// KeyCodeFromName resolves a case-insensitive key name or alias.
func KeyCodeFromName(name string) (KeyCode, bool) {
	code, ok := keysByName[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// String returns the key name, or a hex form for codes without one.
func (k KeyCode) String() string {
	if k == Null {
		return "Null"
	}
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Key(0x%02X)", uint16(k))
}

// IsModifierKey reports whether the code is itself a modifier key. Presses of
// these keys are collapsed to Null by the capture layer.
func (k KeyCode) IsModifierKey() bool {
	switch k {
	case KeyCommand, KeyRightCommand, KeyShift, KeyRightShift,
		KeyOption, KeyRightOption, KeyControl, KeyRightControl,
		KeyFunction, KeyCapsLock:
		return true
	}
	return false
}
