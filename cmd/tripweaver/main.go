package main

import (
	"fmt"
	"os"

	"github.com/yubzen/tripweaver/internal/cli"
)

func restoreTerminalState() {
	fmt.Fprint(os.Stderr, "\x1b[?25h\x1b[0m")
}

func main() {
	err := cli.NewRootCmd().Execute()
	restoreTerminalState()
	if err != nil {
		os.Exit(1)
	}
}
