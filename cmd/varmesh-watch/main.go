// Package main provides the entry point for varmesh-watch.
//
// varmesh-watch is the command-line client for VarMesh. It opens local
// service files, streams variable change events, and reads or writes
// individual variables, optionally pushing changes to a server.
package main

import (
	"fmt"
	"os"

	"github.com/varmesh/varmesh-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
