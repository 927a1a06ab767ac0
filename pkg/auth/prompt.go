package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the operator for values that were not supplied any other way
type Prompter interface {
	Prompt(label string) (string, error)
	// PromptSecret reads a value without echoing it.
	PromptSecret(label string) (string, error)
}

// TerminalPrompter prompts on stderr and reads from stdin
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// NewTerminalPrompter returns a prompter bound to the process terminal
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stderr,
		fd:  int(os.Stdin.Fd()),
	}
}

func (p *TerminalPrompter) Prompt(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

func (p *TerminalPrompter) PromptSecret(label string) (string, error) {
	if !term.IsTerminal(p.fd) {
		// Piped input; nothing to hide
		return p.Prompt(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	secret, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// NoPrompter refuses every prompt. Used when stdin is not interactive or
// prompting is disabled.
type NoPrompter struct{}

func (NoPrompter) Prompt(label string) (string, error) {
	return "", fmt.Errorf("%s not provided and prompting is disabled", strings.ToLower(label))
}

func (NoPrompter) PromptSecret(label string) (string, error) {
	return NoPrompter{}.Prompt(label)
}
