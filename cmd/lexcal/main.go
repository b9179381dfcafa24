// Package main is the entry point for the lexcal CLI.
package main

import (
	"os"

	"github.com/LexCal/LexCal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
