package output

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// FormatBytes converts bytes to human-readable format
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// ProgressBar renders a progress bar for the given completion ratio. A
// non-positive total yields an indeterminate (empty) bar.
func ProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	percentLabel := "--%"
	filled := 0
	if total > 0 {
		if current < 0 {
			current = 0
		}
		if current > total {
			current = total
		}
		percent := float64(current) / float64(total)
		filled = max(0, min(int(percent*float64(width)), width))
		percentLabel = fmt.Sprintf("%.1f%%", percent*100)
	}
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	if filled < width {
		bar += strings.Repeat(" ", width-filled)
	}
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %s", bar, percentLabel))
}

// TerminalWidth returns the current terminal width, or a fallback when stdout
// is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
