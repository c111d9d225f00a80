// Package main is the entry point for the inkstorm editor.
package main

import (
	"os"

	"github.com/dshills/inkstorm/internal/cli"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(cli.Execute(cli.Version{Version: version, Commit: commit, Date: date}))
}
