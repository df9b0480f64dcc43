package capture

import (
	"sync"

	"github.com/offlinefirst/keymapd/pkg/keys"
)

// Poster injects synthetic keystrokes into the host input stream.
type Poster interface {
	Post(key keys.KeySpec) error
}

// PosterFunc adapts a function to the Poster interface.
type PosterFunc func(keys.KeySpec) error

// Post calls the underlying function.
func (f PosterFunc) Post(key keys.KeySpec) error {
	return f(key)
}

// NewPoster returns the platform poster.
func NewPoster() Poster {
	return defaultPoster()
}

// RecordingPoster keeps every posted chord in memory. It backs dry runs.
type RecordingPoster struct {
	mu     sync.Mutex
	posted []keys.KeySpec
}

// Post records key.
func (p *RecordingPoster) Post(key keys.KeySpec) error {
	p.mu.Lock()
	p.posted = append(p.posted, key)
	p.mu.Unlock()
	return nil
}

// Posted returns a copy of the recorded chords.
func (p *RecordingPoster) Posted() []keys.KeySpec {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]keys.KeySpec(nil), p.posted...)
}
