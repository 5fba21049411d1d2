package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dyluth/savestash/cmd/savestash/commands"
	"github.com/dyluth/savestash/internal/printer"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	if err := commands.Execute(); err != nil {
		// Reported errors were already printed with formatting
		var reported *printer.ReportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
