// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Command roughstamp time-stamps digests against a Roughtime server and
// verifies the resulting stamp files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/veraison/roughstamp/verification"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line in args and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		var ce *verification.CheckError
		if errors.As(err, &ce) {
			fmt.Fprintf(stderr, "%s check failed, response may not be authentic\n", ce.Check)
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}
