// Package tools wraps the external helper executables: the archive
// extractor and the pck container repack tool. Both are invoked as opaque
// commands with a fixed argument contract and judged by exit code alone.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/thrivegame/thrive-launcher-cli/internal/rehydrate"
)

// ToolError is a non-zero exit or spawn failure from an external tool,
// carrying the captured output for diagnostics.
type ToolError struct {
	Tool   string
	Args   []string
	Output string
	Cause  error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s failed: %v", e.Tool, strings.Join(e.Args, " "), e.Cause)
	if e.Output != "" {
		msg += "\noutput: " + e.Output
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Cause }

func run(ctx context.Context, stdin string, tool string, args ...string) error {
	cmd := exec.CommandContext(ctx, tool, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	if err := cmd.Run(); err != nil {
		return &ToolError{
			Tool:   tool,
			Args:   args,
			Output: strings.TrimSpace(out.String()),
			Cause:  err,
		}
	}
	return nil
}

// Extractor invokes the configured archive tool as
// `<tool> <archive> <destination>`, zero exit meaning success.
type Extractor struct {
	Tool string
}

// Available reports whether an extractor tool is configured.
func (e Extractor) Available() bool { return e.Tool != "" }

// Extract unpacks archive into dest.
func (e Extractor) Extract(ctx context.Context, archive, dest string) error {
	if !e.Available() {
		return fmt.Errorf("no archive extract tool configured")
	}
	return run(ctx, "", e.Tool, archive, dest)
}

// PckTool rebuilds pck containers. The repack protocol feeds one
// `<object path> <inner path>` line per injected file on stdin.
type PckTool struct {
	Tool string
}

// Available reports whether a pck tool is configured.
func (p PckTool) Available() bool { return p.Tool != "" }

// Repack implements rehydrate.Repacker.
func (p PckTool) Repack(ctx context.Context, containerPath string, ops []rehydrate.RepackOp) error {
	if !p.Available() {
		return fmt.Errorf("no pck repack tool configured")
	}
	var stdin strings.Builder
	for _, op := range ops {
		stdin.WriteString(op.ObjectPath)
		stdin.WriteByte(' ')
		stdin.WriteString(op.InnerPath)
		stdin.WriteByte('\n')
	}
	return run(ctx, stdin.String(), p.Tool, "repack", containerPath)
}
