package process

import (
	"context"
	"strings"
	"sync"
)

// NotFound is the outcome of a command whose binary is missing
var NotFound = Outcome{ExitCode: 127, Stderr: "command not found"}

// Call is a recorded invocation of FakeRunner
type Call struct {
	Command  string
	Elevated bool
}

// FakeRunner is a scripted Runner. Outcomes are looked up by the full command line first,
// then by a registered prefix, then by the binary name. Unknown commands return NotFound.
type FakeRunner struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
	prefixes map[string]Outcome
	calls    []Call
	RunFunc  func(cmdline string) (Outcome, bool)
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		outcomes: make(map[string]Outcome),
		prefixes: make(map[string]Outcome),
	}
}

// On registers the outcome of an exact command line or a bare binary name
func (f *FakeRunner) On(cmdline string, outcome Outcome) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[cmdline] = outcome
	return f
}

// OnPrefix registers the outcome of every command line starting with prefix
func (f *FakeRunner) OnPrefix(prefix string, outcome Outcome) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes[prefix] = outcome
	return f
}

// Calls returns the recorded command lines in invocation order
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CommandLines returns the recorded command lines in invocation order
func (f *FakeRunner) CommandLines() []string {
	var lines []string
	for _, c := range f.Calls() {
		lines = append(lines, c.Command)
	}
	return lines
}

func (f *FakeRunner) Run(_ context.Context, name string, args ...string) Outcome {
	return f.record(false, name, args)
}

func (f *FakeRunner) RunElevated(_ context.Context, name string, args ...string) Outcome {
	return f.record(true, name, args)
}

func (f *FakeRunner) record(elevated bool, name string, args []string) Outcome {
	cmdline := Command{Name: name, Args: args}.String()

	f.mu.Lock()
	f.calls = append(f.calls, Call{Command: cmdline, Elevated: elevated})
	runFunc := f.RunFunc
	f.mu.Unlock()

	if runFunc != nil {
		if outcome, ok := runFunc(cmdline); ok {
			return outcome
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if outcome, ok := f.outcomes[cmdline]; ok {
		return outcome
	}

	longest := -1
	var match Outcome
	for prefix, outcome := range f.prefixes {
		if strings.HasPrefix(cmdline, prefix) && len(prefix) > longest {
			longest = len(prefix)
			match = outcome
		}
	}
	if longest >= 0 {
		return match
	}

	if outcome, ok := f.outcomes[name]; ok {
		return outcome
	}
	return NotFound
}
