package ui

import (
	"fmt"
	"strings"
)

// ErrorMessage is a structured, actionable failure report: the categorized
// problem first, free-text detail after, never a raw stack trace.
type ErrorMessage struct {
	Problem string   // one-line problem statement
	Detail  string   // free-text detail
	Actions []string // actionable steps to resolve
	Hints   []string // optional hints (e.g., commands to try)
}

// Format renders the error using the color theme. No ANSI codes are
// emitted when colors are disabled.
func (e ErrorMessage) Format(c *ColorConfig) string {
	var b strings.Builder
	b.WriteString(c.Error("✗ "))
	b.WriteString(c.Header("Error"))
	b.WriteString("\n")
	if e.Problem != "" {
		b.WriteString("  ")
		b.WriteString(c.Label("Problem"))
		b.WriteString(": ")
		b.WriteString(e.Problem)
		b.WriteString("\n")
	}
	if e.Detail != "" {
		b.WriteString("  ")
		b.WriteString(c.Description(e.Detail))
		b.WriteString("\n")
	}
	if len(e.Actions) > 0 {
		b.WriteString("  ")
		b.WriteString(c.Label("Try"))
		b.WriteString(":\n")
		for _, it := range e.Actions {
			b.WriteString("   → ")
			b.WriteString(it)
			b.WriteString("\n")
		}
	}
	if len(e.Hints) > 0 {
		for _, it := range e.Hints {
			b.WriteString("   · ")
			b.WriteString(c.Description(it))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// PrintError prints the structured error using the current theme.
func PrintError(e ErrorMessage) {
	fmt.Println(e.Format(NewColorConfigFromGlobal()))
}
