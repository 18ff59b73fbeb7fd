// Package main provides the entry point for the Parley CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/parley-ai/parley/cmd/parley/commands"
)

func main() {
	// Best effort; a missing .env is not an error.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
