package colours

import "github.com/fatih/color"

// Color scheme for the CLI
var (
	Title   = color.New(color.FgCyan, color.Bold)
	Image   = color.New(color.FgMagenta)
	Caption = color.New(color.Faint, color.Italic)
	Prompt  = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Success = color.New(color.FgGreen)
	Info    = color.New(color.FgBlue)
	Warning = color.New(color.FgYellow)

	// Playback status lines
	Playback = color.New(color.FgHiMagenta, color.Bold)
)

// Plain disables colour output, e.g. when stdout is not a terminal.
func Plain(disable bool) {
	color.NoColor = color.NoColor || disable
}
