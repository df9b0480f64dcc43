package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/offlinefirst/keymapd/pkg/keys"
)

const DefaultFileName = "keymapd.yaml"

// Config captures the user-adjustable knobs of the daemon.
type Config struct {
	Keymap   KeymapConfig   `yaml:"keymap"`
	Capture  CaptureConfig  `yaml:"capture"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// KeymapConfig locates the bindings file.
type KeymapConfig struct {
	Path   string `yaml:"path"`
	Watch  bool   `yaml:"watch"`
	Strict bool   `yaml:"strict"`
}

// CaptureConfig controls how keystrokes are taken from the host.
type CaptureConfig struct {
	Consume   string `yaml:"consume"`
	QuitChord string `yaml:"quit_chord"`
}

// DispatchConfig controls shell actions.
type DispatchConfig struct {
	Shell          string `yaml:"shell"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// MetricsConfig enables the Prometheus listener when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Keymap: KeymapConfig{
			Path:  "keymap.yaml",
			Watch: true,
		},
		Capture: CaptureConfig{
			Consume:   "all",
			QuitChord: "Ctrl+Alt+Cmd+Fn+F5",
		},
		Dispatch: DispatchConfig{
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./keymapd.yaml but tolerates a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	data, err := os.ReadFile(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
	}

	if err := decodeYAML(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config file %q: %w", candidate, err)
	}
	cfg.Source = candidate
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Keymap.Path) == "" {
		return errors.New("keymap.path must not be empty")
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	if _, err := NormalizeConsume(c.Capture.Consume); err != nil {
		return err
	}
	if strings.TrimSpace(c.Capture.QuitChord) != "" {
		chord, err := keys.ParseKeySpec(c.Capture.QuitChord)
		if err != nil {
			return fmt.Errorf("capture.quit_chord: %w", err)
		}
		if chord.IsModifierOnly() {
			return fmt.Errorf("capture.quit_chord: %q has no key", c.Capture.QuitChord)
		}
	}

	if c.Dispatch.TimeoutSeconds < 0 {
		return errors.New("dispatch.timeout_seconds must not be negative")
	}

	return nil
}

// QuitChord parses Capture.QuitChord. An empty value disables the chord.
func (c Config) QuitChord() (keys.KeySpec, error) {
	if strings.TrimSpace(c.Capture.QuitChord) == "" {
		return keys.None, nil
	}
	return keys.ParseKeySpec(c.Capture.QuitChord)
}

func (c *Config) normalize() {
	defaults := Default()

	c.Keymap.Path = strings.TrimSpace(c.Keymap.Path)
	if c.Keymap.Path == "" {
		c.Keymap.Path = defaults.Keymap.Path
	}
	// A relative keymap path is relative to the config file that names it.
	if c.Source != defaults.Source && !filepath.IsAbs(c.Keymap.Path) {
		c.Keymap.Path = filepath.Join(filepath.Dir(c.Source), c.Keymap.Path)
	}

	if strings.TrimSpace(c.Capture.Consume) == "" {
		c.Capture.Consume = defaults.Capture.Consume
	}
	c.Capture.Consume = strings.ToLower(strings.TrimSpace(c.Capture.Consume))
	c.Capture.QuitChord = strings.TrimSpace(c.Capture.QuitChord)

	c.Dispatch.Shell = strings.TrimSpace(c.Dispatch.Shell)
	if c.Dispatch.TimeoutSeconds == 0 {
		c.Dispatch.TimeoutSeconds = defaults.Dispatch.TimeoutSeconds
	}
	c.Metrics.Listen = strings.TrimSpace(c.Metrics.Listen)

	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}

// NormalizeConsume validates capture.consume.
func NormalizeConsume(policy string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", "all":
		return "all", nil
	case "none":
		return "none", nil
	default:
		return "", fmt.Errorf("unsupported capture.consume %q (want all or none)", policy)
	}
}
