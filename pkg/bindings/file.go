// Package bindings loads keymap files and installs them into a matcher.
package bindings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/offlinefirst/keymapd/pkg/keymap"
	"github.com/offlinefirst/keymapd/pkg/keys"
)

// Format identifies a keymap file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for files whose extension is not recognised.
var ErrUnknownFormat = errors.New("unknown keymap format")

// FormatFromPath picks the decoder from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Entry is one binding as written in a keymap file. Exactly one of Shell,
// ModeChange, Send or Nop must be set.
type Entry struct {
	Mode       string `yaml:"mode,omitempty" toml:"mode,omitempty"`
	Keys       string `yaml:"keys" toml:"keys"`
	Shell      string `yaml:"shell,omitempty" toml:"shell,omitempty"`
	ModeChange string `yaml:"mode_change,omitempty" toml:"mode_change,omitempty"`
	Send       string `yaml:"send,omitempty" toml:"send,omitempty"`
	Nop        bool   `yaml:"nop,omitempty" toml:"nop,omitempty"`
}

// File is a decoded keymap file.
type File struct {
	Modes    []string `yaml:"modes,omitempty" toml:"modes,omitempty"`
	Strict   bool     `yaml:"strict,omitempty" toml:"strict,omitempty"`
	Bindings []Entry  `yaml:"bindings" toml:"bindings"`

	// Path is where the file was read from, empty for in-memory input.
	Path string `yaml:"-" toml:"-"`
}

// Binding is a validated entry.
type Binding struct {
	Mode     string
	Sequence keys.KeySequence
	Action   keys.KeyAction
}

// Load reads and decodes a keymap file. It does not validate bindings.
func Load(path string) (*File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keymap %q: %w", path, err)
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("keymap %q: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse decodes data in the given format, rejecting unknown fields.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				row, col := derr.Position()
				return nil, fmt.Errorf("decode toml at %d:%d: %w", row, col, err)
			}
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &f, nil
}

// ValidationError lists every problem found in a file.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	source := e.Path
	if source == "" {
		source = "keymap"
	}
	return fmt.Sprintf("%s: %d problem(s): %s", source, len(e.Problems), strings.Join(e.Problems, "; "))
}

// Validate parses every entry and reports all problems at once.
func (f *File) Validate() ([]Binding, error) {
	var problems []string
	modes := map[string]bool{keymap.DefaultMode: true}
	for _, name := range f.Modes {
		if strings.TrimSpace(name) == "" {
			problems = append(problems, "modes: empty mode name")
			continue
		}
		modes[name] = true
	}

	out := make([]Binding, 0, len(f.Bindings))
	seen := make(map[string]int)
	indexes := make([]int, 0, len(f.Bindings))
	for i, entry := range f.Bindings {
		label := fmt.Sprintf("bindings[%d]", i)
		mode := keymap.ResolveMode(entry.Mode)
		if !modes[mode] {
			problems = append(problems, fmt.Sprintf("%s: mode %q is not declared", label, mode))
		}

		seq, seqErr := keys.ParseSequence(entry.Keys)
		if seqErr == nil {
			for _, k := range seq {
				if k.IsModifierOnly() {
					seqErr = fmt.Errorf("chord %q has no key", k)
					break
				}
			}
		}
		if seqErr != nil {
			problems = append(problems, fmt.Sprintf("%s: keys: %v", label, seqErr))
		}

		action, actErr := entry.action()
		if actErr != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", label, actErr))
		} else if action.Kind == keys.ActionModeChange && !modes[keymap.ResolveMode(action.Mode)] {
			problems = append(problems, fmt.Sprintf("%s: mode_change target %q is not declared", label, action.Mode))
		}

		if seqErr != nil || actErr != nil {
			continue
		}
		key := mode + "\x00" + seq.String()
		if prev, dup := seen[key]; dup && f.Strict {
			problems = append(problems, fmt.Sprintf("%s: keys %q in mode %q already bound by bindings[%d]", label, seq, mode, prev))
		}
		seen[key] = i
		if prev, other, ok := prefixConflict(out, indexes, mode, seq); ok {
			problems = append(problems, fmt.Sprintf("%s: keys %q in mode %q overlap %q from bindings[%d]", label, seq, mode, other, prev))
		}
		out = append(out, Binding{Mode: mode, Sequence: seq, Action: action})
		indexes = append(indexes, i)
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Path: f.Path, Problems: problems}
	}
	return out, nil
}

// prefixConflict finds an earlier binding in mode whose sequence is a strict
// prefix of seq or has seq as one. Either way only one of them could ever
// resolve.
func prefixConflict(bound []Binding, indexes []int, mode string, seq keys.KeySequence) (int, keys.KeySequence, bool) {
	for j, b := range bound {
		if b.Mode != mode || len(b.Sequence) == len(seq) {
			continue
		}
		if seq.HasPrefix(b.Sequence) || b.Sequence.HasPrefix(seq) {
			return indexes[j], b.Sequence, true
		}
	}
	return 0, nil, false
}

func (e Entry) action() (keys.KeyAction, error) {
	var actions []keys.KeyAction
	if strings.TrimSpace(e.Shell) != "" {
		actions = append(actions, keys.ShellCommand(e.Shell))
	}
	if strings.TrimSpace(e.ModeChange) != "" {
		actions = append(actions, keys.ModeChange(strings.TrimSpace(e.ModeChange)))
	}
	if strings.TrimSpace(e.Send) != "" {
		spec, err := keys.ParseKeySpec(e.Send)
		if err != nil {
			return keys.KeyAction{}, fmt.Errorf("send: %w", err)
		}
		if spec.IsModifierOnly() {
			return keys.KeyAction{}, fmt.Errorf("send: %q has no key", e.Send)
		}
		actions = append(actions, keys.SendKey(spec))
	}
	if e.Nop {
		actions = append(actions, keys.Nop())
	}
	switch len(actions) {
	case 0:
		return keys.KeyAction{}, errors.New("no action (set one of shell, mode_change, send, nop)")
	case 1:
		return actions[0], nil
	default:
		return keys.KeyAction{}, fmt.Errorf("%d actions set, want exactly one", len(actions))
	}
}

// Registrar is the target of Apply. pipeline.Daemon and keymap.Engine both
// satisfy it.
type Registrar interface {
	AddMode(name string) error
	Register(seq keys.KeySequence, action keys.KeyAction, mode string) error
}

// Apply validates f and registers its modes, then its bindings, on target.
// It stops at the first registration error.
func (f *File) Apply(target Registrar) error {
	bindings, err := f.Validate()
	if err != nil {
		return err
	}
	for _, name := range f.Modes {
		if err := target.AddMode(name); err != nil {
			return fmt.Errorf("add mode %q: %w", name, err)
		}
	}
	for _, b := range bindings {
		if err := target.Register(b.Sequence, b.Action, b.Mode); err != nil {
			return fmt.Errorf("bind [%s] in %q: %w", b.Sequence, b.Mode, err)
		}
	}
	return nil
}

// Table builds a fresh mode table from f, for swapping in atomically.
func (f *File) Table() (*keymap.ModeTable, error) {
	bindings, err := f.Validate()
	if err != nil {
		return nil, err
	}
	policy := keymap.BindReplace
	if f.Strict {
		policy = keymap.BindStrict
	}
	table := keymap.NewModeTable()
	for _, name := range f.Modes {
		if err := table.AddMode(name); err != nil {
			return nil, fmt.Errorf("add mode %q: %w", name, err)
		}
	}
	for _, b := range bindings {
		if err := table.Bind(b.Mode, b.Sequence, b.Action, policy); err != nil {
			return nil, fmt.Errorf("bind [%s] in %q: %w", b.Sequence, b.Mode, err)
		}
	}
	return table, nil
}
