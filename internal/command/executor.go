// Package command runs the external tools the supervisor drives (the
// certificate authority client and the reverse proxy). Everything that spawns
// a process goes through Executor so tests can swap in a scripted fake.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Result is the captured outcome of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports a zero exit status.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Process is a long-lived child started in the background.
type Process interface {
	Pid() int
	// Wait blocks until the child exits.
	Wait() error
}

// Executor runs external commands.
//
// Run blocks until the command exits. A non-zero exit is reported through
// Result.ExitCode, not as an error; the error is reserved for commands that
// could not be launched at all.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
	Start(name string, args ...string) (Process, error)
}

// OS executes real binaries found on PATH.
type OS struct{}

// NewOS returns the process-spawning executor.
func NewOS() *OS {
	return &OS{}
}

// Run executes name and waits for it. Cancellation of ctx does not kill an
// in-flight command: it always runs to completion.
func (OS) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(context.WithoutCancel(ctx), name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("failed to run %s: %w", name, err)
}

// Start launches name detached from the caller. The child inherits the
// supervisor's stdout/stderr so its own logs stay visible.
func (OS) Start(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	return &osProcess{cmd: cmd}, nil
}

type osProcess struct {
	cmd *exec.Cmd
}

func (p *osProcess) Pid() int    { return p.cmd.Process.Pid }
func (p *osProcess) Wait() error { return p.cmd.Wait() }

// Line renders a command line for logs.
func Line(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// ErrNonZeroExit is matched by every *ExitError.
var ErrNonZeroExit = errors.New("non-zero exit status")

// ExitError describes a command that ran but exited non-zero.
type ExitError struct {
	Line   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%q exited with status %d", e.Line, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return ErrNonZeroExit }

// Check converts a non-zero result into an *ExitError.
func (r Result) Check(name string, args ...string) error {
	if r.OK() {
		return nil
	}
	return &ExitError{Line: Line(name, args...), Code: r.ExitCode, Stderr: r.Stderr}
}
