//go:build !unix

package cmd

import "os"

var (
	pauseSignal os.Signal
	debugSignal os.Signal
)

var notifyControl = func() (<-chan os.Signal, func()) {
	return nil, func() {}
}
