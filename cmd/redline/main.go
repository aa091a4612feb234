package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			// Interrupted runs exit with the conventional signal code and
			// stay quiet; cobra already stopped printing usage for these.
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "redline:", err)
		os.Exit(1)
	}
}
