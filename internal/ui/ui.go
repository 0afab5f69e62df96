// Package ui provides styled terminal output for the CLI.
//
// Styling degrades automatically: when stdout is not a terminal, or the
// terminal reports no color support, every helper falls back to plain
// text so piped output stays clean.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Colorized reports whether styled output should be produced.
func Colorized() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

func render(style lipgloss.Style, text string) string {
	if !Colorized() {
		return text
	}
	return style.Render(text)
}

// Header renders a bold section heading.
func Header(text string) string { return render(headerStyle, text) }

// Success renders an affirmative status line.
func Success(text string) string { return render(successStyle, text) }

// Warning renders a cautionary status line.
func Warning(text string) string { return render(warningStyle, text) }

// Error renders a failure status line.
func Error(text string) string { return render(errorStyle, text) }

// Dim renders secondary detail text.
func Dim(text string) string { return render(dimStyle, text) }

// Successf prints a formatted success line to stdout.
func Successf(format string, args ...interface{}) {
	fmt.Println(Success(fmt.Sprintf(format, args...)))
}

// Warningf prints a formatted warning line to stdout.
func Warningf(format string, args ...interface{}) {
	fmt.Println(Warning(fmt.Sprintf(format, args...)))
}

// Errorf prints a formatted error line to stderr.
func Errorf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, Error(fmt.Sprintf(format, args...)))
}
