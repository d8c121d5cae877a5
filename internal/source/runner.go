// Package source fetches the raw inputs of a cluster snapshot: the CIB
// document, the designated coordinator, the booth configuration and the
// booth ticket list.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Result is the outcome of a command that ran to completion.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes a shell command line. A non-zero exit status is reported
// in Result.ExitCode; the error is reserved for commands that could not be
// run at all.
type Runner interface {
	Run(ctx context.Context, cmd string) (Result, error)
}

// LocalRunner runs commands on this host through /bin/sh.
type LocalRunner struct{}

func (LocalRunner) Run(ctx context.Context, cmd string) (Result, error) {
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, "/bin/sh", "-c", cmd)
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("running %q: %w", cmd, ctx.Err())
	}
	return res, fmt.Errorf("running %q: %w", cmd, err)
}
