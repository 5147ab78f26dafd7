// Package main is the entry point of the GhostLayer control plane. It
// assembles the application from configuration and runs it until a
// termination signal arrives.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"ghostlayer/internal/server"
)

func main() {
	srv, err := server.New(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "startup failed:", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "server failed:", err)
		os.Exit(1)
	}
}
