package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/offlinefirst/keymapd/pkg/bindings"
	"github.com/offlinefirst/keymapd/pkg/keys"
)

func newCheckCommand() command {
	return command{
		name:        "check",
		description: "Validate a keymap file and list its bindings",
		configure: func(fs *flag.FlagSet) {
			fs.Bool("quiet", false, "Only report problems")
		},
		run: runCheck,
	}
}

func runCheck(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	path := ctx.Config.Keymap.Path
	if len(args) > 0 {
		path = args[0]
	}

	file, err := bindings.Load(path)
	if err != nil {
		return fmt.Errorf("check keymap: %w", err)
	}
	table, err := file.Table()
	if err != nil {
		var invalid *bindings.ValidationError
		if errors.As(err, &invalid) {
			fmt.Fprintf(stdout, "%s: %d problem(s)\n", path, len(invalid.Problems))
			for _, problem := range invalid.Problems {
				fmt.Fprintf(stdout, "  - %s\n", problem)
			}
		}
		return fmt.Errorf("check keymap: %w", err)
	}

	fmt.Fprintf(stdout, "%s: OK (%d bindings in %d modes)\n", path, table.Len(), len(table.Modes()))
	if boolFlag(fs, "quiet") {
		return nil
	}

	current := ""
	table.Walk(func(mode string, seq keys.KeySequence, action keys.KeyAction) {
		if mode != current {
			fmt.Fprintf(stdout, "[%s]\n", mode)
			current = mode
		}
		fmt.Fprintf(stdout, "  %-28s %s\n", seq, action)
	})
	return nil
}
