package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/evanschultz/blockpush/internal/domain"
)

// markdownRenderer renders markdown for terminal views and recreates the renderer when wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown input into ANSI-styled terminal text with the requested wrap width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := width
	if wrapWidth < 24 {
		wrapWidth = 24
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// RenderMarkdown renders markdown for a terminal of the given width.
func RenderMarkdown(markdown string, width int) string {
	var r markdownRenderer
	return r.render(markdown, width)
}

// RowMarkdown formats a row layout as a markdown table.
func RowMarkdown(row *domain.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", row.Name)
	b.WriteString("| Slot | Block | Label | Width | Offset |\n")
	b.WriteString("|---:|---|---|---:|---:|\n")
	for _, block := range row.Blocks() {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			block.Slot+1, block.ID, block.Label, formatPoints(block.Width), formatPoints(block.Offset))
	}
	fmt.Fprintf(&b, "\nTotal extent: %s\n", formatPoints(row.TotalExtent()))
	return b.String()
}

// HistoryMarkdown formats swap records, newest first, as a markdown table.
func HistoryMarkdown(records []domain.SwapRecord) string {
	var b strings.Builder
	b.WriteString("| Time | Moved | Displaced | Slots | Direction |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "| %s | %s | %s | %d → %d | %s |\n",
			rec.OccurredAt.Local().Format("2006-01-02 15:04:05"),
			rec.MovedID, rec.DisplacedID, rec.FromSlot+1, rec.ToSlot+1, rec.Direction)
	}
	return b.String()
}

// LayoutText formats a row layout as plain tab-separated lines.
func LayoutText(row *domain.Row) string {
	lines := make([]string, 0, row.Len()+1)
	lines = append(lines, "slot\tid\twidth\toffset")
	for _, block := range row.Blocks() {
		lines = append(lines, fmt.Sprintf("%d\t%s\t%s\t%s", block.Slot+1, block.ID, formatPoints(block.Width), formatPoints(block.Offset)))
	}
	return strings.Join(lines, "\n")
}

// formatPoints renders a point value without trailing zeros.
func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
