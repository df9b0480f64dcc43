package keymap

import (
	"errors"
	"fmt"

	"github.com/offlinefirst/keymapd/pkg/keys"
)

// Sentinel errors; the typed errors below match them through errors.Is.
var (
	ErrNoSuchMode      = errors.New("no such mode")
	ErrKeyNotFound     = errors.New("key not found")
	ErrKeyAlreadyBound = errors.New("key already bound")
	ErrInvalidSequence = errors.New("invalid key sequence")
	ErrDefaultMode     = errors.New("the default mode cannot be removed")
)

// NoSuchModeError reports a mode name that was never created.
type NoSuchModeError struct {
	Mode string
}

func (e *NoSuchModeError) Error() string {
	return fmt.Sprintf("no such mode: %q", e.Mode)
}

func (e *NoSuchModeError) Is(target error) bool {
	return target == ErrNoSuchMode
}

// KeyNotFoundError reports that Key has no binding after Prefix.
type KeyNotFoundError struct {
	Prefix keys.KeySequence
	Key    keys.KeySpec
}

func (e *KeyNotFoundError) Error() string {
	if len(e.Prefix) == 0 {
		return fmt.Sprintf("key not found: %s", e.Key)
	}
	return fmt.Sprintf("key not found: %s after [%s]", e.Key, e.Prefix)
}

func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

// KeyAlreadyBoundError is returned by strict binds that would overwrite an
// existing binding.
type KeyAlreadyBoundError struct {
	Sequence keys.KeySequence
	Mode     string
}

func (e *KeyAlreadyBoundError) Error() string {
	if e.Mode == "" {
		return fmt.Sprintf("key [%s] is already bound", e.Sequence)
	}
	return fmt.Sprintf("key [%s] for mode %q is already bound", e.Sequence, e.Mode)
}

func (e *KeyAlreadyBoundError) Is(target error) bool {
	return target == ErrKeyAlreadyBound
}

func keyNotFound(prefix keys.KeySequence, key keys.KeySpec) error {
	return &KeyNotFoundError{Prefix: prefix.Clone(), Key: key}
}
