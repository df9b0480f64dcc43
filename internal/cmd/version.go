package cmd

import (
	"flag"
	"fmt"
	"io"

	"github.com/offlinefirst/keymapd/internal/buildinfo"
)

func newVersionCommand() command {
	return command{
		name:        "version",
		description: "Print version and build details",
		skipInit:    true,
		configure: func(fs *flag.FlagSet) {
			fs.Bool("short", false, "Print only the version")
		},
		run: runVersion,
	}
}

func runVersion(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if boolFlag(fs, "short") {
		_, err := fmt.Fprintln(stdout, buildinfo.Version())
		return err
	}

	commit := buildinfo.Commit()
	if commit == "" {
		commit = "unknown"
	}
	tap := "none (use --source stdin)"
	if runtimeGOOS() == "darwin" {
		tap = sourceQuartz
	}

	fmt.Fprintf(stdout, "keymapd %s\n", buildinfo.Version())
	fmt.Fprintf(stdout, "  commit:   %s\n", commit)
	fmt.Fprintf(stdout, "  go:       %s\n", runtimeVersion())
	fmt.Fprintf(stdout, "  platform: %s\n", runtimeGOOS())
	_, err := fmt.Fprintf(stdout, "  tap:      %s\n", tap)
	return err
}
