// Package ui prints coloured status output for the tweetsync commands.
// Logs go to stderr through pkg/logger; this package owns stdout.
package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Banner is printed by commands that talk to the user
const Banner = `
 ┌───────────────────────────────────────────┐
 │  tweetsync  ·  collect  ·  sync  ·  chart │
 └───────────────────────────────────────────┘
`

var (
	mu    sync.Mutex
	out   io.Writer = color.Output
	quiet bool
)

// Color functions for terminal output
var (
	Cyan    = sprint(color.FgCyan)
	Yellow  = sprint(color.FgYellow)
	Red     = sprint(color.FgRed)
	Green   = sprint(color.FgGreen)
	Magenta = sprint(color.FgMagenta)
	Dim     = sprint(color.Faint)
	Bold    = sprint(color.Bold)
)

func sprint(attr color.Attribute) func(string) string {
	c := color.New(attr)
	return func(text string) string {
		return c.Sprint(text)
	}
}

// SetNoColor disables or enables ANSI colours globally
func SetNoColor(disabled bool) {
	color.NoColor = disabled
}

// SetQuiet suppresses everything except errors
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetOutput redirects output and returns the previous writer
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

func printf(always bool, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if quiet && !always {
		return
	}
	fmt.Fprintf(out, format, args...)
}

// PrintBanner prints the banner
func PrintBanner() {
	printf(false, "%s", Cyan(Banner))
}

// PrintError prints an error message in red. Errors ignore quiet mode.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		printf(true, "%s\n", Red(msg+": "+fmt.Sprintf("%v", args[0])))
		return
	}
	printf(true, "%s\n", Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	printf(false, "%s\n", Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	printf(false, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		printf(false, "%s\n", Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
		return
	}
	printf(false, "%s\n", Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	printf(false, "%s\n", Magenta(msg))
}
