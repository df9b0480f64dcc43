package permissions

import (
	"os"
	"runtime"
	"strings"
)

// Status enumerates coarse permission results for macOS privacy prompts.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that permission was previously granted.
	StatusGranted Status = "granted"
	// StatusDenied indicates the user has explicitly denied access.
	StatusDenied Status = "denied"
	// StatusPromptRequired means the platform will prompt at runtime.
	StatusPromptRequired Status = "prompt"
	// StatusUnavailable reports that the capability is not supported.
	StatusUnavailable Status = "unavailable"
)

// Environment overrides, mainly for CI and for re-testing after tccutil resets.
const (
	EnvAccessibility   = "KEYMAPD_ACCESSIBILITY"
	EnvInputMonitoring = "KEYMAPD_INPUT_MONITORING"
)

// ProbeResult represents the coarse state for a permission surface.
type ProbeResult struct {
	Status   Status
	Message  string
	Guidance string
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// lookupEnv is declared for swapping in tests.
var lookupEnv = os.LookupEnv

// goos is declared for swapping in tests.
var goos = runtime.GOOS

// ProbeAccessibility reports whether the process may install an active
// keyboard tap, which requires Accessibility trust.
func ProbeAccessibility(lookup LookupEnvFunc) ProbeResult {
	return probe(lookup, EnvAccessibility, "accessibility",
		ProbeResult{Status: StatusPromptRequired, Message: "accessibility trust required to filter keystrokes"})
}

// ProbeInputMonitoring reports the Input Monitoring state macOS also checks
// before delivering keyboard events to a tap.
func ProbeInputMonitoring(lookup LookupEnvFunc) ProbeResult {
	return probe(lookup, EnvInputMonitoring, "input monitoring",
		ProbeResult{Status: StatusPromptRequired, Message: "input monitoring will prompt on first capture"})
}

func probe(lookup LookupEnvFunc, env, name string, darwin ProbeResult) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup(env); ok {
		return interpretPermissionFlag(name, value)
	}
	if goos == "darwin" {
		return darwin
	}
	return ProbeResult{Status: StatusUnavailable, Message: name + " prompts unavailable on " + goos}
}

func interpretPermissionFlag(name, value string) ProbeResult {
	normalised := strings.ToLower(strings.TrimSpace(value))
	switch normalised {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: name + " permission pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{
			Status:   StatusDenied,
			Message:  name + " permission denied via env override",
			Guidance: "enable keymapd under System Settings > Privacy & Security, or run 'tccutil reset' and update KEYMAPD_* env to re-test",
		}
	case "prompt", "ask":
		return ProbeResult{Status: StatusPromptRequired, Message: name + " permission will prompt at runtime"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: name + " permission unavailable on this platform"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: name + " permission state unknown"}
	}
}

// StatusString returns the string form used by the doctor report.
func (p ProbeResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}
