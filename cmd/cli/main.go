// Package main is the entry point for the solar-pricing CLI.
package main

import (
	"os"

	"solar-pricing/cmd/cli/cmd"
	"solar-pricing/internal/logging"
)

func main() {
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
