// Package main provides the entry point for the htmlindex CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/htmlindex/cmd/htmlindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
