// Package main provides the entry point for the entity-linker service.
package main

import (
	"fmt"
	"os"

	"github.com/lblod/entity-linker/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
