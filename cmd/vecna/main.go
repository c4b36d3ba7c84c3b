package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"vecna/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, services.DiagnosticMessage(err))
		}
		os.Exit(exitCode(err))
	}
}

// exitCode separates bad input (2) and refused transitions (3) from
// service or storage failures (1) so scripts can tell them apart.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrNotFound):
		return 2
	case errors.Is(err, services.ErrStateConflict), errors.Is(err, services.ErrPrecondition):
		return 3
	default:
		return 1
	}
}
