package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Outcome is the captured result of an external command. Success is exit code 0
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited with code 0
func (o Outcome) Success() bool {
	return o.ExitCode == 0
}

// ErrorText returns the most descriptive error output of the command
func (o Outcome) ErrorText() string {
	if s := strings.TrimSpace(o.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(o.Stdout)
}

//go:generate mockgen -destination=mock_runner.go -package=process github.com/netbirdio/minion-installer/client/internal/process Runner

// Runner executes external commands
type Runner interface {
	Run(ctx context.Context, name string, args ...string) Outcome
	// RunElevated runs the command with administrative privileges
	RunElevated(ctx context.Context, name string, args ...string) Outcome
}

// ExecRunner runs commands on the local host
type ExecRunner struct {
	log *log.Entry
}

func NewExecRunner(logger *log.Entry) *ExecRunner {
	return &ExecRunner{log: logger}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) Outcome {
	return r.run(ctx, name, args...)
}

func (r *ExecRunner) RunElevated(ctx context.Context, name string, args ...string) Outcome {
	elevatedName, elevatedArgs := elevatedCommand(name, args)
	return r.run(ctx, elevatedName, elevatedArgs...)
}

func (r *ExecRunner) run(ctx context.Context, name string, args ...string) Outcome {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	outcome := Outcome{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		outcome.ExitCode = exitErr.ExitCode()
	default:
		outcome.ExitCode = -1
		if outcome.Stderr == "" {
			outcome.Stderr = err.Error()
		}
	}

	r.log.Debugf("executed %s %s: exit code %d", name, strings.Join(args, " "), outcome.ExitCode)
	if !outcome.Success() {
		r.log.Tracef("stdout: %s, stderr: %s", outcome.Stdout, outcome.Stderr)
	}
	return outcome
}
