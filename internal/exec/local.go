// Package exec runs local build commands with extra environment injected.
package exec

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/get-convex/deployctl/internal/errors"
)

// Options configure one local command invocation.
type Options struct {
	WorkDir string
	// ExtraEnv entries ("KEY=value") are appended to the inherited
	// environment, overriding any inherited value for the same key.
	ExtraEnv []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// RunLocal runs cmd through the shell, streaming output to the provided
// writers. Returns the exit code and any execution error. A non-zero exit
// code is not an error; the caller decides what it means.
func RunLocal(ctx context.Context, cmd string, opts Options) (exitCode int, err error) {
	// Shell interpretation keeps pipes and redirects working.
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	command := exec.CommandContext(ctx, shell, "-c", cmd)
	if opts.WorkDir != "" {
		command.Dir = opts.WorkDir
	}
	if len(opts.ExtraEnv) > 0 {
		command.Env = append(os.Environ(), opts.ExtraEnv...)
	}

	command.Stdin = opts.Stdin
	command.Stdout = opts.Stdout
	command.Stderr = opts.Stderr

	runErr := command.Run()
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, errors.WrapWithCode(runErr, errors.ErrExec,
			"Couldn't run the command locally",
			"Make sure the command exists and is executable.")
	}
	return 0, nil
}
