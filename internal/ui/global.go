package ui

// Rendering overrides recorded once from the root command's persistent
// flags. Only color and emoji selection live here; verbosity and prompt
// policy are command-layer concerns.
var (
	globalNoColor bool
	globalNoEmoji bool
)

// InitGlobal records the flags that affect rendering. Call once at
// startup, after flag parsing.
func InitGlobal(noColor, noEmoji bool) {
	globalNoColor = noColor
	globalNoEmoji = noEmoji
}

// NewColorConfigFromGlobal layers the recorded flags over the
// environment detection in NewColorConfig.
func NewColorConfigFromGlobal() *ColorConfig {
	c := NewColorConfig()
	c.Enabled = c.Enabled && !globalNoColor
	c.EmojiEnabled = c.EmojiEnabled && !globalNoEmoji
	return c
}

// NewPrinterFromGlobal creates a Printer for the selected output format
// using the recorded rendering flags.
func NewPrinterFromGlobal(format string) Printer {
	return Printer{format: format, Colors: NewColorConfigFromGlobal()}
}
