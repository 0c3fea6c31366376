// loomctl is a local administration CLI for a loom content store backed by
// an embedded SQLite database. It serves scripted schema management and
// content inspection without a running server.
package main

import (
	"fmt"
	"os"
)

const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUserError)
	}
}
