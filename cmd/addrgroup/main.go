// Command addrgroup groups people who share an address, reading records from
// a file or stdin.
package main

import (
	"os"

	"github.com/fatih/color"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
