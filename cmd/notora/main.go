// Package main provides the entry point for the notora CLI.
package main

import (
	"os"

	"github.com/notora/notora/cmd/notora/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
