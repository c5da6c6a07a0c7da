// Package main is the entry point for the stitch CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "stitch: %v\n", err)
		os.Exit(exitCode(err))
	}
}
