// Package main provides the jbridge command-line interface.
package main

import (
	"os"

	"github.com/leapstack-labs/jbridge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
