package main

import (
	"fmt"
	"os"

	"github.com/offlinefirst/keymapd/internal/cmd"
)

func main() {
	root := cmd.NewRootCommand()
	if err := root.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "keymapd:", err)
		os.Exit(1)
	}
}
