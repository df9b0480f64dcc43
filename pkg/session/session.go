// Package session records the lifecycle of a daemon run as a JSON manifest so
// that other processes can see which keymap is live and how the last run ended.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/offlinefirst/keymapd/pkg/config"
)

// SchemaVersion captures the manifest version for compatibility checks.
const SchemaVersion = 1

// Session states.
const (
	StateStarting  = "starting"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Termination causes.
const (
	TerminationQuit      = "quit_chord"
	TerminationSignal    = "signal"
	TerminationSourceEnd = "source_ended"
	TerminationError     = "error"
)

// KeymapInfo describes the keymap that was loaded.
type KeymapInfo struct {
	Path     string   `json:"path"`
	Strict   bool     `json:"strict"`
	Watch    bool     `json:"watch"`
	Modes    []string `json:"modes,omitempty"`
	Bindings int      `json:"bindings"`
	Reloads  int      `json:"reloads"`
}

// CaptureInfo records how keystrokes were taken and handled.
type CaptureInfo struct {
	Source    string `json:"source"`
	Consume   string `json:"consume"`
	QuitChord string `json:"quit_chord,omitempty"`
	DryRun    bool   `json:"dry_run"`
}

// TimelineEntry records one state transition.
type TimelineEntry struct {
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Status summarises the lifecycle of a daemon run.
type Status struct {
	State       string          `json:"state"`
	Summary     string          `json:"summary,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
	Termination string          `json:"termination,omitempty"`
	Mode        string          `json:"mode,omitempty"`
	Timeline    []TimelineEntry `json:"timeline,omitempty"`
}

// Manifest is the durable metadata describing one daemon run.
type Manifest struct {
	SchemaVersion int         `json:"schema_version"`
	SessionID     string      `json:"session_id"`
	PID           int         `json:"pid"`
	CreatedAt     time.Time   `json:"created_at"`
	Hostname      string      `json:"hostname"`
	AppVersion    string      `json:"app_version"`
	ConfigSource  string      `json:"config_source"`
	Keymap        KeymapInfo  `json:"keymap"`
	Capture       CaptureInfo `json:"capture"`
	Status        Status      `json:"status"`
}

// Options captures the knobs for creating a new manifest.
type Options struct {
	SessionID  string
	PID        int
	CreatedAt  time.Time
	Hostname   string
	AppVersion string
	Config     config.Config
	Source     string
	DryRun     bool
}

// New constructs a manifest in the starting state.
func New(opts Options) Manifest {
	created := opts.CreatedAt.UTC()
	return Manifest{
		SchemaVersion: SchemaVersion,
		SessionID:     opts.SessionID,
		PID:           opts.PID,
		CreatedAt:     created,
		Hostname:      opts.Hostname,
		AppVersion:    opts.AppVersion,
		ConfigSource:  opts.Config.Source,
		Keymap: KeymapInfo{
			Path:   opts.Config.Keymap.Path,
			Strict: opts.Config.Keymap.Strict,
			Watch:  opts.Config.Keymap.Watch,
		},
		Capture: CaptureInfo{
			Source:    opts.Source,
			Consume:   opts.Config.Capture.Consume,
			QuitChord: opts.Config.Capture.QuitChord,
			DryRun:    opts.DryRun,
		},
		Status: Status{
			State:    StateStarting,
			Timeline: []TimelineEntry{{State: StateStarting, Timestamp: created}},
		},
	}
}

// Transition moves the manifest to state and appends a timeline entry.
// Entering running stamps StartedAt; entering a final state stamps EndedAt.
func (m *Manifest) Transition(state, reason string, at time.Time) {
	at = at.UTC()
	m.Status.State = state
	m.Status.Timeline = append(m.Status.Timeline, TimelineEntry{State: state, Reason: reason, Timestamp: at})
	switch state {
	case StateRunning:
		if m.Status.StartedAt == nil {
			m.Status.StartedAt = &at
		}
	case StateCompleted, StateFailed:
		m.Status.EndedAt = &at
	}
}

// Finished reports whether the run reached a final state.
func (m Manifest) Finished() bool {
	return m.Status.State == StateCompleted || m.Status.State == StateFailed
}

// Uptime is the time spent running, up to now for live sessions.
func (m Manifest) Uptime(now time.Time) time.Duration {
	if m.Status.StartedAt == nil {
		return 0
	}
	end := now
	if m.Status.EndedAt != nil {
		end = *m.Status.EndedAt
	}
	return end.Sub(*m.Status.StartedAt)
}

// Save writes the manifest JSON to path. The file is replaced by rename so
// readers never observe a partial write.
func Save(man Manifest, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("session path must not be empty")
	}
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load reads a manifest JSON file from disk.
func Load(path string) (Manifest, error) {
	var man Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return man, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(data, &man); err != nil {
		return man, fmt.Errorf("decode session: %w", err)
	}
	if man.SchemaVersion != SchemaVersion {
		return man, fmt.Errorf("unsupported session schema version %d", man.SchemaVersion)
	}
	return man, nil
}
