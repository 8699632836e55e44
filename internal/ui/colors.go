package ui

import (
	"os"
	"strings"
)

// ANSI codes used by the theme.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"

	Red          = "\033[31m"
	Green        = "\033[32m"
	Yellow       = "\033[33m"
	Cyan         = "\033[36m"
	BrightBlack  = "\033[90m"
	BrightRed    = "\033[91m"
	BrightGreen  = "\033[92m"
	BrightYellow = "\033[93m"
	BrightCyan   = "\033[96m"
)

// Theme is the color scheme for launcher output.
type Theme struct {
	Success string
	Warning string
	Error   string
	Info    string

	Header      string
	SubHeader   string
	Label       string
	Value       string
	Description string
	Separator   string

	Progress string
	Complete string
	Pending  string
}

// DefaultTheme returns the launcher's color theme.
func DefaultTheme() *Theme {
	return &Theme{
		Success: BrightGreen,
		Warning: BrightYellow,
		Error:   BrightRed,
		Info:    BrightCyan,

		Header:      Bold + BrightCyan,
		SubHeader:   Bold + Cyan,
		Label:       Bold,
		Value:       "",
		Description: BrightBlack,
		Separator:   BrightBlack,

		Progress: BrightYellow,
		Complete: BrightGreen,
		Pending:  BrightBlack,
	}
}

// ColorConfig manages color and emoji output settings.
type ColorConfig struct {
	Enabled      bool
	EmojiEnabled bool
	Theme        *Theme
}

// NewColorConfig builds a configuration honoring NO_COLOR and dumb
// terminals.
func NewColorConfig() *ColorConfig {
	noColor := os.Getenv("NO_COLOR") != ""
	term := os.Getenv("TERM")
	return &ColorConfig{
		Enabled:      !noColor && term != "dumb" && term != "",
		EmojiEnabled: true,
		Theme:        DefaultTheme(),
	}
}

// Apply wraps text in a color when colors are enabled.
func (c *ColorConfig) Apply(color, text string) string {
	if !c.Enabled {
		return text
	}
	return color + text + Reset
}

func (c *ColorConfig) Success(text string) string { return c.Apply(c.Theme.Success, text) }
func (c *ColorConfig) Warning(text string) string { return c.Apply(c.Theme.Warning, text) }
func (c *ColorConfig) Error(text string) string   { return c.Apply(c.Theme.Error, text) }
func (c *ColorConfig) Info(text string) string    { return c.Apply(c.Theme.Info, text) }

func (c *ColorConfig) Header(text string) string    { return c.Apply(c.Theme.Header, text) }
func (c *ColorConfig) SubHeader(text string) string { return c.Apply(c.Theme.SubHeader, text) }
func (c *ColorConfig) Label(text string) string     { return c.Apply(c.Theme.Label, text) }
func (c *ColorConfig) Value(text string) string     { return c.Apply(c.Theme.Value, text) }
func (c *ColorConfig) Description(text string) string {
	return c.Apply(c.Theme.Description, text)
}

// Separator returns a themed separator line.
func (c *ColorConfig) Separator(width int) string {
	return c.Apply(c.Theme.Separator, strings.Repeat("─", width))
}

// FormatCommandAligned renders one help line with the command padded to a
// fixed column so descriptions line up.
func (c *ColorConfig) FormatCommandAligned(command, desc string, width int) string {
	pad := width - len(command)
	if pad < 2 {
		pad = 2
	}
	return "  " + c.Info(command) + strings.Repeat(" ", pad) + c.Description(desc)
}

// StatusIcon returns a status icon, plain-ASCII when emoji are disabled.
func (c *ColorConfig) StatusIcon(status string) string {
	if !c.EmojiEnabled {
		switch strings.ToLower(status) {
		case "success", "installed", "running":
			return c.Success("[OK]")
		case "warning", "pending":
			return c.Warning("[WARN]")
		case "error", "failed", "crashed":
			return c.Error("[ERR]")
		default:
			return c.Apply(c.Theme.Pending, "[ ]")
		}
	}
	switch strings.ToLower(status) {
	case "success", "installed", "running":
		return c.Success("✓")
	case "warning", "pending":
		return c.Warning("⚠")
	case "error", "failed", "crashed":
		return c.Error("✗")
	default:
		return c.Apply(c.Theme.Pending, "○")
	}
}
