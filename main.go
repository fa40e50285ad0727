package main

import (
	"fmt"
	"os"

	"github.com/bnema/displaytoggle/cmd"
)

// Set by the release build with -ldflags "-X main.version=... -X main.commit=... -X main.date=..."
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
