package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/offlinefirst/keymapd/pkg/capture"
)

func newObserveCommand() command {
	return command{
		name:        "observe",
		description: "Print decoded keystrokes without remapping them",
		configure: func(fs *flag.FlagSet) {
			configureSourceFlag(fs)
			fs.String("record", "", "Also append every event as JSON lines to this file")
			fs.Bool("record-text", false, "Record text keystrokes verbatim instead of masking them")
			fs.String("record-allow", "", "Comma separated chords never masked in recordings, e.g. \"Space,Escape\"")
			fs.Int("limit", 0, "Stop after this many key presses (0 means until interrupted)")
		},
		run: runObserve,
	}
}

func runObserve(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	src, sourceName, err := openSource(stringFlag(fs, "source"), ctx.Logger)
	if err != nil {
		return err
	}
	limit := intFlag(fs, "limit")

	var recorder *capture.Recorder
	recordPath := stringFlag(fs, "record")
	if recordPath != "" {
		file, err := os.OpenFile(recordPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open record file: %w", err)
		}
		defer file.Close()
		if recorder, err = capture.NewRecorder(file); err != nil {
			return err
		}
		filter, err := capture.NewPrivacyFilter(!boolFlag(fs, "record-text"), strings.Split(stringFlag(fs, "record-allow"), ","))
		if err != nil {
			return err
		}
		recorder.SetPrivacy(filter)
	}

	sigCtx, stopSignals := notifyContext(context.Background())
	defer stopSignals()
	obsCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	fmt.Fprintf(stderr, "Observing keystrokes from %s; press Ctrl+C to stop.\n", sourceName)

	pressed := 0
	handler := func(ev capture.Event) capture.Verdict {
		if recorder != nil {
			if err := recorder.Record(ev); err != nil {
				ctx.Logger.Warn("record event failed", "error", err)
			}
		}
		if ev.Type != capture.EventKeyDown || ev.Key.IsModifierOnly() {
			return capture.Forward
		}
		marker := ""
		if ev.Synthetic {
			marker = " synthetic"
		}
		fmt.Fprintf(stdout, "%-24s keycode=0x%02x flags=0x%06x%s\n", ev.Key, ev.RawCode, ev.RawFlags, marker)
		pressed++
		if limit > 0 && pressed >= limit {
			cancel()
		}
		return capture.Forward
	}

	if err := src.Stream(obsCtx, handler); err != nil && obsCtx.Err() == nil {
		return fmt.Errorf("observe: %w", err)
	}

	fmt.Fprintf(stdout, "Observed %d key presses\n", pressed)
	if recorder != nil {
		summary := recorder.Summary()
		fmt.Fprintf(stdout, "Recorded %d events -> %s\n", summary.Events, recordPath)
		for i, chord := range summary.Chords {
			if i == 5 {
				break
			}
			fmt.Fprintf(stdout, "  %-24s %d\n", chord.Chord, chord.Count)
		}
	}
	return nil
}
