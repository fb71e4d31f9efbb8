package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("37"))            // dark green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))             // red
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))            // cyan
	debugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))           // light grey
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))            // purple
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")) // purple
)

var StyleSymbols = map[string]string{
	"pass":   "✓",
	"fail":   "✗",
	"arrow":  "→",
	"bullet": "•",
	"hline":  "━",
}

func PrintSuccess(text string) {
	fmt.Println(successStyle.Render(text))
}

func PrintError(text string) {
	fmt.Println(errorStyle.Render(text))
}

func PrintInfo(text string) {
	fmt.Println(infoStyle.Render(text))
}

func PrintDetail(text string) {
	fmt.Println(detailStyle.Render(text))
}

func PrintHeader(text string) {
	fmt.Println(headerStyle.Render(text))
}
