package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Icon constants for consistent output.
const (
	IconCheck = "✓"
	IconCross = "✗"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	keywordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func Header(text string) string {
	return headerStyle.Render(text)
}

func Success(text string) string {
	return successStyle.Render(text)
}

func ErrorMsg(text string) string {
	return errorStyle.Render(text)
}

func Warning(text string) string {
	return warningStyle.Render(text)
}

func Muted(text string) string {
	return mutedStyle.Render(text)
}

func Bold(text string) string {
	return boldStyle.Render(text)
}

func Keyword(text string) string {
	return keywordStyle.Render(text)
}

func Value(text string) string {
	return valueStyle.Render(text)
}

// errOut is where PrintError and Fatal write. Tests swap it.
var errOut io.Writer = os.Stderr

// exit is os.Exit, swapped in tests.
var exit = os.Exit

// PrintError writes a styled error line to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(errOut, "%s %s\n", ErrorMsg(IconCross+" Error:"), fmt.Sprintf(format, args...))
}

// Fatal prints an error and exits with status 1.
func Fatal(format string, args ...any) {
	PrintError(format, args...)
	exit(1)
}
