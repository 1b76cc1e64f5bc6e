package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"memcarve/internal/manifest"
)

type SummaryRow struct {
	Label string
	Value string
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
		valueWidth = max(valueWidth, lipgloss.Width(row.Value))
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value)))
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// RenderTypeTable renders one row per format identifier with its file count
// and the bytes it consumed in the capture and wrote to disk.
func RenderTypeTable(s manifest.Summary) string {
	header := []string{"type", "files", "in dump", "written"}
	rows := [][]string{}
	for _, id := range s.Types() {
		ts := s.ByType[id]
		rows = append(rows, []string{
			id,
			humanize.Comma(int64(ts.Count)),
			humanize.IBytes(uint64(ts.BytesInDump)),
			humanize.IBytes(uint64(ts.BytesOutput)),
		})
	}
	rows = append(rows, []string{
		"total",
		humanize.Comma(int64(s.TotalFiles)),
		humanize.IBytes(uint64(s.TotalBytesInDump)),
		humanize.IBytes(uint64(s.TotalBytesOutput)),
	})

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	render := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if i == 0 {
				parts[i] = style.Render(padRight(cell, widths[i]))
			} else {
				parts[i] = style.Render(padLeft(cell, widths[i]))
			}
		}
		return strings.Join(parts, "  ")
	}

	lines := []string{render(header, headerStyle)}
	for i, row := range rows {
		style := labelStyle
		if i == len(rows)-1 {
			style = valueStyle
		}
		lines = append(lines, render(row, style))
	}
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func padLeft(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}
