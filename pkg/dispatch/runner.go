package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
)

// ErrEmptyCommand is returned for blank shell actions.
var ErrEmptyCommand = errors.New("empty command")

// maxOutput bounds how much command output is kept for logging.
const maxOutput = 2048

// Result describes a finished command.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// ShellRunner executes the command string of a shell action.
type ShellRunner interface {
	Run(ctx context.Context, command string) (Result, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// Shell runs commands as `Shell -c command`. Empty means $SHELL; when
	// that is unset too the command is split with shell quoting rules and
	// executed directly.
	Shell   string
	Timeout time.Duration
	Env     []string
}

// lookupEnv is swapped in tests.
var lookupEnv = os.LookupEnv

// Run executes command and waits for it, killing it after Timeout.
func (r ExecRunner) Run(ctx context.Context, command string) (Result, error) {
	if strings.TrimSpace(command) == "" {
		return Result{ExitCode: -1}, ErrEmptyCommand
	}
	argv, err := r.argv(command)
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	// Grandchildren may hold the output pipe open after a kill.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err = cmd.Run()
	res := Result{Duration: time.Since(start), Output: truncate(out.String())}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	} else {
		res.ExitCode = -1
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, fmt.Errorf("command timed out after %s: %w", r.Timeout, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, fmt.Errorf("command exited with status %d: %w", res.ExitCode, err)
		}
		return res, fmt.Errorf("start command: %w", err)
	}
	return res, nil
}

func (r ExecRunner) argv(command string) ([]string, error) {
	shell := strings.TrimSpace(r.Shell)
	if shell == "" {
		if value, ok := lookupEnv("SHELL"); ok {
			shell = strings.TrimSpace(value)
		}
	}
	if shell != "" {
		return []string{shell, "-c", command}, nil
	}
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("split command: %w", err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	return argv, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxOutput {
		return s
	}
	return s[:maxOutput] + "…"
}

// RecordingRunner remembers commands instead of running them. It backs
// dry runs.
type RecordingRunner struct {
	mu       sync.Mutex
	commands []string
}

// Run records command.
func (r *RecordingRunner) Run(_ context.Context, command string) (Result, error) {
	r.mu.Lock()
	r.commands = append(r.commands, command)
	r.mu.Unlock()
	return Result{}, nil
}

// Commands returns the recorded commands in order.
func (r *RecordingRunner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}
