// Package main is the entry point for the gridctl administration CLI.
package main

import (
	"os"

	"gridbase/pkg/cli"
)

func main() { os.Exit(cli.Execute()) }
