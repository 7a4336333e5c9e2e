// Package main provides the configx command.
package main

import (
	"os"

	"github.com/leapstack-labs/configx/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
