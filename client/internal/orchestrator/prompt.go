package orchestrator

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter collects answers from the operator
type Prompter interface {
	// Ask returns the answer to the question, or def when the answer is empty
	Ask(question, def string) string
	// Confirm returns the yes or no answer to the question, or def when the answer is empty
	Confirm(question string, def bool) bool
}

// ConsolePrompter prompts on a terminal
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: bufio.NewReader(in), out: out}
}

func (p *ConsolePrompter) Ask(question, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}

	answer := p.readLine()
	if answer == "" {
		return def
	}
	return answer
}

func (p *ConsolePrompter) Confirm(question string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(p.out, "%s (%s): ", question, hint)

	answer := strings.ToLower(p.readLine())
	if answer == "" {
		return def
	}
	return strings.HasPrefix(answer, "y")
}

// readLine returns the trimmed line. A closed input reads as an empty answer
func (p *ConsolePrompter) readLine() string {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

// UnattendedPrompter answers every question with its default and confirms everything
type UnattendedPrompter struct{}

func (UnattendedPrompter) Ask(_, def string) string { return def }

func (UnattendedPrompter) Confirm(string, bool) bool { return true }
