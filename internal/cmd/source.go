package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/offlinefirst/keymapd/pkg/capture"
)

const (
	sourceQuartz = "quartz"
	sourceStdin  = "stdin"
)

var (
	timeNow  = time.Now
	hostname = os.Hostname
	getpid   = os.Getpid

	stdin io.Reader = os.Stdin

	newPlatformSource = func(clock func() time.Time) capture.Source {
		return capture.NewSource(capture.Options{Clock: clock})
	}
	newPoster = capture.NewPoster

	notifyContext = func(parent context.Context) (context.Context, context.CancelFunc) {
		return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	}
)

func configureSourceFlag(fs *flag.FlagSet) {
	fs.String("source", sourceQuartz, "Keystroke source: quartz (native event tap) or stdin (one chord sequence per line)")
}

// openSource resolves the --source flag.
func openSource(name string, logger *slog.Logger) (capture.Source, string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", sourceQuartz:
		return newPlatformSource(timeNow), sourceQuartz, nil
	case sourceStdin:
		src := capture.NewReaderSource(stdin)
		src.Clock = timeNow
		src.OnError = func(line int, err error) {
			logger.Warn("skipping unparsable input", "line", line, "error", err)
		}
		return src, sourceStdin, nil
	default:
		return nil, "", fmt.Errorf("unknown source %q (expected %s or %s)", name, sourceQuartz, sourceStdin)
	}
}
