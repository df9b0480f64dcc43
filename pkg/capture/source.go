package capture

import (
	"context"
	"time"

	"github.com/offlinefirst/keymapd/pkg/keys"
)

// EventType mirrors the Quartz CGEventType values the tap subscribes to.
type EventType uint32

const (
	EventKeyDown      EventType = 10
	EventKeyUp        EventType = 11
	EventFlagsChanged EventType = 12
)

func (t EventType) String() string {
	switch t {
	case EventKeyDown:
		return "key_down"
	case EventKeyUp:
		return "key_up"
	case EventFlagsChanged:
		return "flags_changed"
	default:
		return "other"
	}
}

// Event is one decoded keyboard event.
type Event struct {
	Type      EventType
	Key       keys.KeySpec
	RawCode   int64
	RawFlags  uint64
	Synthetic bool
	Timestamp time.Time
}

// Verdict tells the source what to do with the physical event.
type Verdict uint8

const (
	// Forward lets the event continue to the focused application.
	Forward Verdict = iota
	// Consume swallows the event.
	Consume
)

func (v Verdict) String() string {
	if v == Consume {
		return "consume"
	}
	return "forward"
}

// Handler receives every event on the capture thread and must return quickly.
type Handler func(Event) Verdict

// Source emits keyboard events until ctx is cancelled or the stream ends.
type Source interface {
	Stream(ctx context.Context, handle Handler) error
}

// SourceFunc adapts a function literal to the Source interface.
type SourceFunc func(ctx context.Context, handle Handler) error

// Stream calls the underlying function.
func (f SourceFunc) Stream(ctx context.Context, handle Handler) error {
	return f(ctx, handle)
}

// Options configures the platform source.
type Options struct {
	Clock func() time.Time
}

// NewSource returns the native source for this platform.
func NewSource(opts Options) Source {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return defaultSource(clock)
}
