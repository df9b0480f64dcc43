package capture

import (
	"runtime"

	"github.com/offlinefirst/keymapd/pkg/permissions"
)

// Environment summarises keyboard tap support on this host.
type Environment struct {
	Provider   string
	Available  bool
	Permission string
	Message    string
	Guidance   string
}

const (
	ProviderQuartz = "quartz_event_tap"
	ProviderReader = "stdin"
)

// goos is swapped in tests.
var goos = runtime.GOOS

// DetectEnvironment reports whether a real Quartz event tap can be installed.
func DetectEnvironment(lookup permissions.LookupEnvFunc) Environment {
	accessibility := permissions.ProbeAccessibility(lookup)
	env := Environment{
		Provider:   ProviderReader,
		Permission: accessibility.StatusString(),
		Message:    accessibility.Message,
		Guidance:   accessibility.Guidance,
	}

	if goos == "darwin" {
		env.Provider = ProviderQuartz
		env.Available = accessibility.Status != permissions.StatusDenied
		if !env.Available {
			if env.Message == "" {
				env.Message = "accessibility permission missing"
			}
			if env.Guidance == "" {
				env.Guidance = "grant access in System Settings > Privacy & Security > Accessibility"
			}
		}
		return env
	}

	env.Permission = "not_applicable"
	env.Message = "no native keyboard tap; run with --source stdin"
	return env
}
