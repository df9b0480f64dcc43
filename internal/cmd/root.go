package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strconv"

	"github.com/offlinefirst/keymapd/internal/buildinfo"
	"github.com/offlinefirst/keymapd/pkg/config"
	"github.com/offlinefirst/keymapd/pkg/logging"
)

type command struct {
	name        string
	description string
	configure   func(fs *flag.FlagSet)
	run         func(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error
	skipInit    bool
}

// AppContext exposes lazily initialised configuration and logging facilities.
type AppContext struct {
	Config config.Config
	Logger *slog.Logger
	// LevelVar drives the logger's level and may be changed while running.
	LevelVar *slog.LevelVar
}

// BaseLevel is the configured level that debug toggling returns to.
func (c *AppContext) BaseLevel() slog.Level {
	lvl, err := logging.ParseLevel(c.Config.Logging.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type RootCommand struct {
	commands   map[string]command
	stdout     io.Writer
	stderr     io.Writer
	appCtx     *AppContext
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand constructs the CLI dispatcher with its subcommands and flag handling.
func NewRootCommand() *RootCommand {
	rc := &RootCommand{
		commands: make(map[string]command),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}

	rc.register(newRunCommand())
	rc.register(newObserveCommand())
	rc.register(newCheckCommand())
	rc.register(newStatusCommand())
	rc.register(newDoctorCommand())
	rc.register(newVersionCommand())

	return rc
}

func (rc *RootCommand) register(cmd command) {
	rc.commands[cmd.name] = cmd
}

// Execute evaluates the supplied arguments, parses global flags, and dispatches to a subcommand.
func (rc *RootCommand) Execute(args []string) error {
	rootFlags := flag.NewFlagSet("keymapd", flag.ContinueOnError)
	rootFlags.SetOutput(rc.stderr)
	rootFlags.Usage = func() { rc.printHelp() }

	rootFlags.StringVar(&rc.configPath, "config", "", "Path to config file (default: ./keymapd.yaml if present)")
	rootFlags.StringVar(&rc.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootFlags.StringVar(&rc.logFormat, "log-format", "", "Override log output format (json, console)")

	if err := rootFlags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			rc.printHelp()
			return nil
		}
		return err
	}

	remaining := rootFlags.Args()
	if len(remaining) == 0 {
		rc.printHelp()
		return nil
	}

	subcommand, ok := rc.commands[remaining[0]]
	if !ok {
		fmt.Fprintf(rc.stderr, "Unknown command %q\n\n", remaining[0])
		rc.printHelp()
		return fmt.Errorf("unknown command")
	}

	fs := flag.NewFlagSet(subcommand.name, flag.ContinueOnError)
	fs.SetOutput(rc.stderr)
	fs.Usage = func() {
		fmt.Fprintf(rc.stdout, "Usage: keymapd %s [flags]\n", subcommand.name)
		if subcommand.description != "" {
			fmt.Fprintln(rc.stdout, subcommand.description)
		}
		fs.PrintDefaults()
	}

	if subcommand.configure != nil {
		subcommand.configure(fs)
	}

	if err := fs.Parse(remaining[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	var ctx *AppContext
	var err error
	if !subcommand.skipInit {
		if ctx, err = rc.ensureAppContext(); err != nil {
			return err
		}
	}

	return subcommand.run(fs, fs.Args(), ctx, rc.stdout, rc.stderr)
}

func (rc *RootCommand) ensureAppContext() (*AppContext, error) {
	if rc.appCtx != nil {
		return rc.appCtx, nil
	}

	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return nil, err
	}

	if rc.logLevel != "" {
		lvl, err := config.NormalizeLogLevel(rc.logLevel)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = lvl
	}
	if rc.logFormat != "" {
		format, err := config.NormalizeFormat(rc.logFormat)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Format = format
	}

	levelVar := new(slog.LevelVar)
	logger, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   rc.stderr,
		LevelVar: levelVar,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded", "source", cfg.Source, "keymap", cfg.Keymap.Path)

	rc.appCtx = &AppContext{Config: cfg, Logger: logger, LevelVar: levelVar}
	return rc.appCtx, nil
}

func (rc *RootCommand) printHelp() {
	fmt.Fprintf(rc.stdout, "keymapd - modal key remapping daemon\nVersion: %s\n\n", versionString())
	fmt.Fprintln(rc.stdout, "Usage: keymapd [global flags] <command> [command flags]")
	fmt.Fprintln(rc.stdout, "Global flags:")
	fmt.Fprintln(rc.stdout, "  --config string      Path to config file (default: ./keymapd.yaml if present)")
	fmt.Fprintln(rc.stdout, "  --log-level string   Override log level (debug, info, warn, error)")
	fmt.Fprintln(rc.stdout, "  --log-format string  Override log output format (json, console)")
	fmt.Fprintln(rc.stdout, "")
	fmt.Fprintln(rc.stdout, "Available commands:")

	names := make([]string, 0, len(rc.commands))
	for name := range rc.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(rc.stdout, "  %-10s %s\n", name, rc.commands[name].description)
	}
}

func versionString() string {
	version := buildinfo.Version()
	if commit := buildinfo.Commit(); commit != "" {
		version += "+" + commit
	}
	return fmt.Sprintf("%s (%s/%s)", version, runtimeVersion(), runtimeGOOS())
}

// runtimeVersion is extracted for testability.
var runtimeVersion = func() string { return runtime.Version() }

// runtimeGOOS is extracted for testability.
var runtimeGOOS = func() string { return runtime.GOOS }

func boolFlag(fs *flag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	value, err := strconv.ParseBool(f.Value.String())
	if err != nil {
		return false
	}
	return value
}

func stringFlag(fs *flag.FlagSet, name string) string {
	f := fs.Lookup(name)
	if f == nil {
		return ""
	}
	return f.Value.String()
}

func intFlag(fs *flag.FlagSet, name string) int {
	value, err := strconv.Atoi(stringFlag(fs, name))
	if err != nil {
		return 0
	}
	return value
}
