package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// title turns "every_ten_minutes" into "Every Ten Minutes".
func title(s string) string {
	return titleCaser.String(strings.ReplaceAll(s, "_", " "))
}

// writeTable prints rows under headers with columns aligned by display
// width. Cells wider than maxWidth are truncated.
func writeTable(w io.Writer, headers []string, rows [][]string, maxWidth int) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			row[i] = truncateName(cell, maxWidth)
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			if i == len(cells)-1 {
				parts[i] = c
			} else {
				parts[i] = padRight(c, widths[i])
			}
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " ")) //nolint:errcheck
	}

	printRow(headers)
	sep := make([]string, len(headers))
	for i := range headers {
		sep[i] = strings.Repeat("─", widths[i])
	}
	printRow(sep)
	for _, row := range rows {
		printRow(row)
	}
}

// truncateName shortens a name to maxWidth display cells, ending in "…".
func truncateName(name string, maxWidth int) string {
	if maxWidth <= 0 || runewidth.StringWidth(name) <= maxWidth {
		return name
	}
	return runewidth.Truncate(name, maxWidth, "…")
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
