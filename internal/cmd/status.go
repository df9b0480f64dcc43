package cmd

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/offlinefirst/keymapd/pkg/session"
)

func newStatusCommand() command {
	return command{
		name:        "status",
		description: "Show the session manifest written by run --session-file",
		skipInit:    true,
		configure: func(fs *flag.FlagSet) {
			fs.String("session-file", "", "Session manifest to read")
		},
		run: runStatus,
	}
}

func runStatus(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	path := stringFlag(fs, "session-file")
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("status: --session-file is required")
	}

	man, err := session.Load(path)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	fmt.Fprintf(stdout, "Session %s (pid %d on %s, version %s)\n", man.SessionID, man.PID, man.Hostname, man.AppVersion)
	fmt.Fprintf(stdout, "  state: %s\n", man.Status.State)
	if man.Status.Mode != "" {
		fmt.Fprintf(stdout, "  mode: %s\n", man.Status.Mode)
	}
	if man.Status.StartedAt != nil {
		fmt.Fprintf(stdout, "  started: %s (up %s)\n", man.Status.StartedAt.Format(time.RFC3339), man.Uptime(timeNow()).Round(time.Second))
	}
	if man.Status.EndedAt != nil {
		fmt.Fprintf(stdout, "  ended: %s (termination: %s)\n", man.Status.EndedAt.Format(time.RFC3339), man.Status.Termination)
	}
	if man.Status.Summary != "" {
		fmt.Fprintf(stdout, "  summary: %s\n", man.Status.Summary)
	}
	fmt.Fprintf(stdout, "  keymap: %s (%d bindings, modes %v, %d reloads)\n", man.Keymap.Path, man.Keymap.Bindings, man.Keymap.Modes, man.Keymap.Reloads)
	fmt.Fprintf(stdout, "  capture: source=%s consume=%s dry_run=%t\n", man.Capture.Source, man.Capture.Consume, man.Capture.DryRun)
	return nil
}
