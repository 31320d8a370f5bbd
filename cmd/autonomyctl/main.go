// Package main is the entry point for the autonomyctl CLI.
// autonomyctl is the operator terminal tool for interacting with the
// autonomyd admin API.
package main

import (
	"os"

	"autonomy-core/cmd/autonomyctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
