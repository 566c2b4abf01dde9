package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	exitOK               = 0
	exitError            = 1
	exitThresholdsFailed = 99
)

var errThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI and maps the outcome to a process exit code.
// Failed checks alone never change the exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errThresholdsFailed):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitThresholdsFailed
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}
