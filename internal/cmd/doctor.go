package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/offlinefirst/keymapd/pkg/bindings"
	"github.com/offlinefirst/keymapd/pkg/capture"
	"github.com/offlinefirst/keymapd/pkg/permissions"
)

func newDoctorCommand() command {
	return command{
		name:        "doctor",
		description: "Check permissions, platform support and the configured keymap",
		run:         runDoctor,
	}
}

// lookupEnv is swapped in tests.
var lookupEnv permissions.LookupEnvFunc = os.LookupEnv

func runDoctor(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	healthy := true
	fmt.Fprintf(stdout, "keymapd %s\n", versionString())
	fmt.Fprintf(stdout, "Config: %s\n", ctx.Config.Source)

	env := capture.DetectEnvironment(lookupEnv)
	fmt.Fprintf(stdout, "Keyboard tap: provider=%s available=%t permission=%s\n", env.Provider, env.Available, env.Permission)
	if env.Message != "" {
		fmt.Fprintf(stdout, "  %s\n", env.Message)
	}
	if env.Guidance != "" {
		fmt.Fprintf(stdout, "  %s\n", env.Guidance)
	}
	if env.Provider == capture.ProviderQuartz && !env.Available {
		healthy = false
	}

	if env.Provider == capture.ProviderQuartz {
		input := permissions.ProbeInputMonitoring(lookupEnv)
		fmt.Fprintf(stdout, "Input Monitoring: %s\n", input.StatusString())
		if input.Status == permissions.StatusDenied {
			healthy = false
			if input.Guidance != "" {
				fmt.Fprintf(stdout, "  %s\n", input.Guidance)
			}
		}
	}

	if count, err := countBindings(ctx.Config.Keymap.Path); err != nil {
		healthy = false
		fmt.Fprintf(stdout, "Keymap: %v\n", err)
	} else {
		fmt.Fprintf(stdout, "Keymap: %s OK (%d bindings)\n", ctx.Config.Keymap.Path, count)
	}

	if !healthy {
		return fmt.Errorf("doctor found problems")
	}
	fmt.Fprintln(stdout, "All checks passed")
	return nil
}

func countBindings(path string) (int, error) {
	file, err := bindings.Load(path)
	if err != nil {
		return 0, err
	}
	table, err := file.Table()
	if err != nil {
		return 0, err
	}
	return table.Len(), nil
}
