package process

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Command is a single link of a fallback chain
type Command struct {
	Name     string
	Args     []string
	Elevated bool
	// Accept decides whether the outcome counts as a success. Nil means a zero exit code
	Accept func(Outcome) bool
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Exec runs the command with the runner
func (c Command) Exec(ctx context.Context, runner Runner) Outcome {
	if c.Elevated {
		return runner.RunElevated(ctx, c.Name, c.Args...)
	}
	return runner.Run(ctx, c.Name, c.Args...)
}

// Accepted reports whether the outcome satisfies the command
func (c Command) Accepted(outcome Outcome) bool {
	if c.Accept != nil {
		return c.Accept(outcome)
	}
	return outcome.Success()
}

// ChainError is returned when every link of a fallback chain failed
type ChainError struct {
	Attempted []string
	Last      Outcome
}

func (e *ChainError) Error() string {
	text := e.Last.ErrorText()
	if text == "" {
		text = fmt.Sprintf("exit code %d", e.Last.ExitCode)
	}
	return fmt.Sprintf("all %d alternatives failed, last error: %s", len(e.Attempted), text)
}

// FirstSuccess runs the commands in order and stops at the first one that succeeds.
// It returns the successful outcome, or a ChainError carrying the last observed outcome.
func FirstSuccess(ctx context.Context, runner Runner, logger *log.Entry, cmds ...Command) (Outcome, error) {
	chainErr := &ChainError{}
	for _, cmd := range cmds {
		outcome := cmd.Exec(ctx, runner)
		chainErr.Attempted = append(chainErr.Attempted, cmd.Name)
		if cmd.Accepted(outcome) {
			return outcome, nil
		}
		chainErr.Last = outcome
		logger.Debugf("%s failed with exit code %d, trying next alternative", cmd.Name, outcome.ExitCode)
	}
	return chainErr.Last, chainErr
}
