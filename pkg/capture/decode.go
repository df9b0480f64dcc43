package capture

import "github.com/offlinefirst/keymapd/pkg/keys"

// Quartz CGEventFlags bits.
const (
	flagMaskShift       uint64 = 0x00020000
	flagMaskControl     uint64 = 0x00040000
	flagMaskAlternate   uint64 = 0x00080000
	flagMaskCommand     uint64 = 0x00100000
	flagMaskSecondaryFn uint64 = 0x00800000
)

// SyntheticMarker is written to the source user-data field of every event the
// daemon posts, so the tap can recognise and forward its own output.
const SyntheticMarker int64 = 0x6B6D6170

// ModifiersFromFlags maps Quartz flag bits to a modifier set.
func ModifiersFromFlags(flags uint64) keys.Modifiers {
	var mods keys.Modifiers
	if flags&flagMaskControl != 0 {
		mods = mods.With(keys.Ctrl)
	}
	if flags&flagMaskShift != 0 {
		mods = mods.With(keys.Shift)
	}
	if flags&flagMaskAlternate != 0 {
		mods = mods.With(keys.Alt)
	}
	if flags&flagMaskCommand != 0 {
		mods = mods.With(keys.Cmd)
	}
	if flags&flagMaskSecondaryFn != 0 {
		mods = mods.With(keys.Fn)
	}
	return mods
}

// FlagsFromModifiers is the inverse of ModifiersFromFlags.
func FlagsFromModifiers(mods keys.Modifiers) uint64 {
	var flags uint64
	if mods.Has(keys.Ctrl) {
		flags |= flagMaskControl
	}
	if mods.Has(keys.Shift) {
		flags |= flagMaskShift
	}
	if mods.Has(keys.Alt) {
		flags |= flagMaskAlternate
	}
	if mods.Has(keys.Cmd) {
		flags |= flagMaskCommand
	}
	if mods.Has(keys.Fn) {
		flags |= flagMaskSecondaryFn
	}
	return flags
}

// Decode builds a chord from raw event fields. Modifier presses, reported as
// FlagsChanged events or modifier key codes, carry the Null code.
func Decode(eventType EventType, keycode int64, flags uint64) keys.KeySpec {
	spec := keys.KeySpec{Mods: ModifiersFromFlags(flags), Code: keys.Null}
	if eventType == EventFlagsChanged {
		return spec
	}
	if keycode < 0 || keycode >= int64(keys.Null) {
		return spec
	}
	code := keys.KeyCode(keycode)
	if code.IsModifierKey() {
		return spec
	}
	spec.Code = code
	return spec
}
