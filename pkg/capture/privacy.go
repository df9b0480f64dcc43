package capture

import (
	"fmt"
	"strings"

	"github.com/offlinefirst/keymapd/pkg/keys"
)

// MaskedChord replaces text chords in recordings.
const MaskedChord = "[TEXT]"

// PrivacyFilter decides which chords a Recorder masks. With text masking on,
// chords that would type a character (no Ctrl, Alt, Cmd or Fn held) are
// written as MaskedChord unless allow-listed. The zero value masks nothing.
type PrivacyFilter struct {
	maskText bool
	allow    map[keys.KeySpec]struct{}
}

// NewPrivacyFilter builds a filter. Allow entries are chord specs such as
// "Space"; blank entries are ignored.
func NewPrivacyFilter(maskText bool, allow []string) (PrivacyFilter, error) {
	filter := PrivacyFilter{
		maskText: maskText,
		allow:    make(map[keys.KeySpec]struct{}, len(allow)),
	}
	for _, spec := range allow {
		trimmed := strings.TrimSpace(spec)
		if trimmed == "" {
			continue
		}
		key, err := keys.ParseKeySpec(trimmed)
		if err != nil {
			return PrivacyFilter{}, fmt.Errorf("privacy allow list: %w", err)
		}
		filter.allow[key] = struct{}{}
	}
	return filter, nil
}

// Masks reports whether key must not be written verbatim.
func (p PrivacyFilter) Masks(key keys.KeySpec) bool {
	if !p.maskText || !IsTextChord(key) {
		return false
	}
	_, allowed := p.allow[key]
	return !allowed
}

var punctuation = map[keys.KeyCode]bool{
	keys.KeySpace:        true,
	keys.KeyEqual:        true,
	keys.KeyMinus:        true,
	keys.KeyLeftBracket:  true,
	keys.KeyRightBracket: true,
	keys.KeyQuote:        true,
	keys.KeySemicolon:    true,
	keys.KeyBackslash:    true,
	keys.KeyComma:        true,
	keys.KeySlash:        true,
	keys.KeyPeriod:       true,
	keys.KeyGrave:        true,
}

// IsTextChord reports whether key types a printable character: a letter,
// digit, punctuation or space key with at most Shift held.
func IsTextChord(key keys.KeySpec) bool {
	if key.IsModifierOnly() || !key.Mods.Without(keys.Shift).IsEmpty() {
		return false
	}
	if punctuation[key.Code] {
		return true
	}
	// Letters and digits are the only keys with single-character names.
	return len(key.Code.String()) == 1
}
