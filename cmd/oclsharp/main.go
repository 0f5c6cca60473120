// Package main provides the oclsharp command-line interface.
package main

import (
	"os"

	"github.com/vitruv-tools/oclsharp/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
