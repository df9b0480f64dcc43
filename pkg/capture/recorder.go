package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Record is the JSONL form of an observed event.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Chord     string    `json:"chord"`
	KeyCode   int64     `json:"keycode"`
	Flags     uint64    `json:"flags"`
	Synthetic bool      `json:"synthetic,omitempty"`
}

// ChordCount tallies one chord in a Summary.
type ChordCount struct {
	Chord string `json:"chord"`
	Count int    `json:"count"`
}

// Summary describes a recording session.
type Summary struct {
	Events int          `json:"events"`
	Start  time.Time    `json:"start"`
	End    time.Time    `json:"end"`
	Chords []ChordCount `json:"chords"`
}

// Recorder writes observed events as JSON lines and keeps per-chord counts.
type Recorder struct {
	mu     sync.Mutex
	enc    *json.Encoder
	counts  map[string]int
	privacy PrivacyFilter
	events  int
	start  time.Time
	end    time.Time
}

// NewRecorder returns a recorder writing to w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	if w == nil {
		return nil, errors.New("recorder needs a writer")
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Recorder{enc: enc, counts: make(map[string]int)}, nil
}

// SetPrivacy installs the filter applied to subsequent records.
func (r *Recorder) SetPrivacy(filter PrivacyFilter) {
	r.mu.Lock()
	r.privacy = filter
	r.mu.Unlock()
}

// Record appends one event. Masked chords lose their key code as well.
func (r *Recorder) Record(ev Event) error {
	rec := Record{
		Timestamp: ev.Timestamp.UTC(),
		Type:      ev.Type.String(),
		Chord:     ev.Key.String(),
		KeyCode:   ev.RawCode,
		Flags:     ev.RawFlags,
		Synthetic: ev.Synthetic,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.privacy.Masks(ev.Key) {
		rec.Chord = MaskedChord
		rec.KeyCode = -1
	}
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if r.events == 0 {
		r.start = rec.Timestamp
	}
	r.events++
	r.end = rec.Timestamp
	r.counts[rec.Chord]++
	return nil
}

// Summary returns the session totals, most frequent chords first.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	chords := make([]ChordCount, 0, len(r.counts))
	for chord, n := range r.counts {
		chords = append(chords, ChordCount{Chord: chord, Count: n})
	}
	sort.Slice(chords, func(i, j int) bool {
		if chords[i].Count != chords[j].Count {
			return chords[i].Count > chords[j].Count
		}
		return chords[i].Chord < chords[j].Chord
	})
	return Summary{Events: r.events, Start: r.start, End: r.end, Chords: chords}
}
