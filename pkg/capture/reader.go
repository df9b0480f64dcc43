package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/offlinefirst/keymapd/pkg/keys"
)

// ReaderSource replays chords written as text, one sequence per line, e.g.
// "Ctrl+X Ctrl+S". Blank lines and lines starting with '#' are skipped.
type ReaderSource struct {
	Reader io.Reader
	Clock  func() time.Time
	// OnError receives unparsable lines. When nil the first bad line ends
	// the stream with an error.
	OnError func(line int, err error)
}

// NewReaderSource returns a source reading from r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{Reader: r, Clock: time.Now}
}

type readLine struct {
	text string
	err  error
}

// Stream emits a KeyDown event per chord. Verdicts are ignored since there is
// no host event to swallow. Reads happen on a separate goroutine so that
// cancellation is honoured while the reader blocks.
func (s *ReaderSource) Stream(ctx context.Context, handle Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	clock := s.Clock
	if clock == nil {
		clock = time.Now
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan readLine)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.Reader)
		for scanner.Scan() {
			select {
			case lines <- readLine{text: scanner.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case lines <- readLine{err: err}:
			case <-ctx.Done():
			}
		}
	}()

	lineNo := 0
	for {
		var next readLine
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next, ok = <-lines:
		}
		if !ok {
			return nil
		}
		if next.err != nil {
			return fmt.Errorf("read chords: %w", next.err)
		}
		lineNo++
		text := strings.TrimSpace(next.text)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		seq, err := keys.ParseSequence(text)
		if err != nil {
			err = fmt.Errorf("line %d: %w", lineNo, err)
			if s.OnError == nil {
				return err
			}
			s.OnError(lineNo, err)
			continue
		}
		for _, k := range seq {
			if err := ctx.Err(); err != nil {
				return err
			}
			handle(Event{
				Type:      EventKeyDown,
				Key:       k,
				RawCode:   int64(k.Code),
				RawFlags:  FlagsFromModifiers(k.Mods),
				Timestamp: clock().UTC(),
			})
		}
	}
}
