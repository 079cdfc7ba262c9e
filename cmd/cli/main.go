// Package main is the entry point for the site-improver CLI.
// The CLI is the developer terminal tool for interacting with the site-improver API.
package main

import (
	"os"

	"github.com/dizid/site-improver/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
