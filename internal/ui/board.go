package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/kfallows/holdfast/internal/banner"
)

// Column widths for the board list.
const (
	idColWidth     = 6
	statusColWidth = 10
	ageColWidth    = 10
)

// renderBoard renders the item list with the current selection highlighted.
func (m Model) renderBoard() string {
	styles := m.theme.Styles()

	// Header, banner, column header, footer
	chrome := 4
	if m.banner.Kind == banner.None {
		chrome = 3
	}
	visible := m.height - chrome
	if visible < 1 {
		visible = 1
	}

	var b strings.Builder

	header := fmt.Sprintf("%-*s %-*s %-*s %s",
		idColWidth, "ID",
		statusColWidth, "STATUS",
		ageColWidth, "UPDATED",
		"TITLE")
	b.WriteString(styles.FaintText.Render(header))
	b.WriteString("\n")
	visible--

	items := m.snapshot.Items
	if len(items) == 0 {
		if m.snapshot.LastError != nil && m.snapshot.LastUpdated.IsZero() {
			b.WriteString(styles.MutedText.Render("No data yet; retrying in the background."))
		} else {
			b.WriteString(styles.MutedText.Render("Board is empty."))
		}
		return padLines(b.String(), visible)
	}

	// Keep the selection in view.
	start := 0
	if m.selectedRow >= visible {
		start = m.selectedRow - visible + 1
	}
	end := start + visible
	if end > len(items) {
		end = len(items)
	}

	for i := start; i < end; i++ {
		item := items[i]

		titleWidth := m.width - idColWidth - statusColWidth - ageColWidth - 4
		if titleWidth < 8 {
			titleWidth = 8
		}
		line := fmt.Sprintf("%-*d %-*s %-*s %s",
			idColWidth, item.ID,
			statusColWidth, item.Status,
			ageColWidth, formatAge(time.Since(item.UpdatedAt)),
			truncate(item.Title, titleWidth))

		switch {
		case i == m.selectedRow:
			b.WriteString(styles.Selected.Width(m.width).Render(line))
		case item.Done():
			b.WriteString(styles.FaintText.Render(line))
		default:
			b.WriteString(styles.Text.Render(line))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return padLines(b.String(), visible)
}

// padLines pads the rendered content to a fixed height so the footer stays
// pinned to the bottom row.
func padLines(s string, height int) string {
	lines := strings.Count(s, "\n") + 1
	if lines >= height {
		return s
	}
	return s + strings.Repeat("\n", height-lines)
}
