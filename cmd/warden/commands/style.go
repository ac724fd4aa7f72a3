package commands

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#B22222")). // Firebrick
			Padding(0, 1).
			MarginBottom(1)

	colHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B22222")).
			Bold(true).
			MarginRight(1)

	sepStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginRight(1)

	dimColor      = lipgloss.Color("245")
	approvedColor = lipgloss.Color("#2E8B57") // SeaGreen
	deniedColor   = lipgloss.Color("#B22222")
	openColor     = lipgloss.Color("#E67E22") // Orange
)

// column is one fixed-width table column.
type column struct {
	title string
	width int
}

func cell(width int) lipgloss.Style {
	return lipgloss.NewStyle().Width(width).MarginRight(1)
}

// printTableHead writes the title, the column headers and the separator row.
func printTableHead(w io.Writer, title string, cols []column) {
	fmt.Fprintln(w, headerStyle.Render(title))

	headers := make([]string, 0, len(cols))
	seps := make([]string, 0, len(cols))
	for _, c := range cols {
		headers = append(headers, colHeaderStyle.Width(c.width).Render(c.title))
		seps = append(seps, sepStyle.Render(strings.Repeat("─", c.width)))
	}
	fmt.Fprintf(w, "  %s\n", lipgloss.JoinHorizontal(lipgloss.Top, headers...))
	fmt.Fprintf(w, "  %s\n", lipgloss.JoinHorizontal(lipgloss.Top, seps...))
}

func printTableRow(w io.Writer, cells ...string) {
	fmt.Fprintf(w, "  %s\n", lipgloss.JoinHorizontal(lipgloss.Top, cells...))
}

// truncate shortens s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
