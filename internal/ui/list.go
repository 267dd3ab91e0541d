package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/sidebar/internal/model"
)

// sourceColWidth is the fixed width of the source column.
const sourceColWidth = 16

// TimeBand returns a display string for grouping notifications by age.
func TimeBand(observed time.Time) string {
	age := time.Since(observed)
	switch {
	case age < 15*time.Minute:
		return "Just Now"
	case age < 1*time.Hour:
		return "Past Hour"
	case age < 24*time.Hour:
		return "Today"
	case age < 48*time.Hour:
		return "Yesterday"
	default:
		return "Older"
	}
}

// newestFirst returns a reversed copy of a history snapshot.
func newestFirst(items []model.Notification) []model.Notification {
	out := make([]model.Notification, len(items))
	for i, n := range items {
		out[len(items)-1-i] = n
	}
	return out
}

// RenderList renders newest-first notifications grouped into time bands.
// Only lines that fit in height are produced.
func RenderList(items []model.Notification, cursor, width, height int) string {
	if len(items) == 0 {
		return HelpStyle.Render("No notifications.")
	}
	if height < 1 {
		height = 1
	}

	var b strings.Builder
	currentBand := ""
	renderedLines := 0
	scrollOffset := calcScrollOffset(items, cursor, height)

	for i, n := range items {
		if renderedLines >= height {
			break
		}

		// Track band state for skipped items so headers stay correct
		// once the visible region starts.
		band := TimeBand(n.ObservedAt)
		if band != currentBand {
			currentBand = band
			if i >= scrollOffset {
				b.WriteString(TimeBandHeader.Render(band))
				b.WriteString("\n")
				renderedLines++
			}
		}

		if i < scrollOffset || renderedLines >= height {
			continue
		}

		b.WriteString(renderItemLine(n, i == cursor, width))
		b.WriteString("\n")
		renderedLines++
	}

	return b.String()
}

// calcScrollOffset finds the smallest index such that every line from that
// index through the cursor, band headers included, fits in height.
func calcScrollOffset(items []model.Notification, cursor, height int) int {
	if len(items) == 0 || cursor < 0 {
		return 0
	}
	if cursor >= len(items) {
		cursor = len(items) - 1
	}

	offset := 0
	if cursor >= height {
		offset = cursor - height + 1
	}
	for offset <= cursor {
		if visibleLineCount(items, offset, cursor) <= height {
			return offset
		}
		offset++
	}
	return cursor
}

// visibleLineCount counts rendered lines for items[from..to], headers included.
func visibleLineCount(items []model.Notification, from, to int) int {
	lines := 0
	currentBand := ""
	if from > 0 {
		currentBand = TimeBand(items[from-1].ObservedAt)
	}
	for i := from; i <= to && i < len(items); i++ {
		if band := TimeBand(items[i].ObservedAt); band != currentBand {
			currentBand = band
			lines++
		}
		lines++
	}
	return lines
}

// renderItemLine renders: source column, title, age.
func renderItemLine(n model.Notification, selected bool, width int) string {
	source := truncateRunes(n.SourceName, sourceColWidth)
	sourcePad := sourceColWidth - utf8.RuneCountInString(source)
	if sourcePad < 0 {
		sourcePad = 0
	}
	sourceField := source + strings.Repeat(" ", sourcePad) + " "

	age := formatAgeShort(n.ObservedAt)
	// 2 for item padding, 1 separator before age
	titleWidth := width - sourceColWidth - 1 - utf8.RuneCountInString(age) - 3
	if titleWidth < 10 {
		titleWidth = 10
	}
	title := truncateRunes(n.Summary, titleWidth)
	pad := titleWidth - utf8.RuneCountInString(title)
	if pad < 0 {
		pad = 0
	}

	if selected {
		return SelectedItem.Render(sourceField + title + strings.Repeat(" ", pad) + " " + age)
	}
	sourceText := lipgloss.NewStyle().Foreground(sourcePaletteColor(n.SourceName)).Render(sourceField)
	return NormalItem.Render(sourceText + title + strings.Repeat(" ", pad) + " " + MetaItem.Render(age))
}

// RenderHeader renders the title line with the count badge.
func RenderHeader(count, width int) string {
	title := HeaderStyle.Render("Notifications")
	badge := CountBadge.Render(fmt.Sprintf("%d", count))
	line := title + badge
	if pad := width - lipgloss.Width(line); pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	return line
}

// RenderPreview renders the selected notification's body on one line.
func RenderPreview(n model.Notification, width int) string {
	body := strings.ReplaceAll(n.Body, "\n", " ")
	if body == "" {
		body = "(no body)"
	}
	return BodyPreview.Render(truncateRunes(body, max(width-2, 10)))
}

// RenderStatusBar renders position on the left and key help on the right.
func RenderStatusBar(cursor, total, width int, helpView string) string {
	position := " 0/0 "
	if total > 0 {
		position = fmt.Sprintf(" %d/%d ", cursor+1, total)
	}

	padding := width - lipgloss.Width(position) - lipgloss.Width(helpView) - 2
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(width).Render(position + strings.Repeat(" ", padding) + helpView)
}

func formatAgeShort(observed time.Time) string {
	age := time.Since(observed)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

// truncateRunes shortens s to at most n runes, marking the cut with "…".
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

func sourcePaletteColor(name string) lipgloss.Color {
	palette := []lipgloss.Color{
		lipgloss.Color("62"),
		lipgloss.Color("69"),
		lipgloss.Color("39"),
		lipgloss.Color("141"),
		lipgloss.Color("208"),
		lipgloss.Color("75"),
		lipgloss.Color("99"),
		lipgloss.Color("212"),
	}
	sum := 0
	for i := 0; i < len(name); i++ {
		sum += int(name[i])
	}
	return palette[sum%len(palette)]
}
