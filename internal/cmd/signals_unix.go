//go:build unix

package cmd

import (
	"os"
	"os/signal"
	"syscall"
)

var (
	pauseSignal os.Signal = syscall.SIGUSR1
	debugSignal os.Signal = syscall.SIGUSR2
)

// notifyControl subscribes to the pause and debug toggles.
var notifyControl = func() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, pauseSignal, debugSignal)
	return ch, func() { signal.Stop(ch) }
}
