package tui

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/blockpush/internal/app"
	"github.com/evanschultz/blockpush/internal/domain"
)

// Board represents the drag surface driven by the model.
type Board interface {
	Row() *domain.Row
	State() app.State
	Session() (app.DragSession, bool)
	Handle(context.Context, app.Event) (bool, error)
	Reset(context.Context) error
	History(context.Context, int) ([]domain.SwapRecord, error)
	SetRenderer(app.Renderer)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeHistory
)

// rowOriginX is the left margin of the block band, in cells.
const rowOriginX = 2

// headerHeight is the number of lines above the block band.
const headerHeight = 3

// offsetCanvas receives offset commands and keeps the latest offset per block.
type offsetCanvas struct {
	offsets map[string]float64
	updates int
}

// newOffsetCanvas seeds the canvas from the row layout.
func newOffsetCanvas(row *domain.Row) *offsetCanvas {
	c := &offsetCanvas{offsets: map[string]float64{}}
	if row == nil {
		return c
	}
	for _, b := range row.Blocks() {
		c.offsets[b.ID] = b.Offset
	}
	return c
}

// SetOffset records the visual offset for blockID.
func (c *offsetCanvas) SetOffset(blockID string, offset float64) {
	c.offsets[blockID] = offset
	c.updates++
}

// offset returns the recorded offset for blockID or fallback.
func (c *offsetCanvas) offset(blockID string, fallback float64) float64 {
	if v, ok := c.offsets[blockID]; ok {
		return v
	}
	return fallback
}

// Model represents model data used by this package.
type Model struct {
	board Board

	ready  bool
	width  int
	height int

	status string

	help help.Model
	keys keyMap

	layout LayoutConfig
	canvas *offsetCanvas

	mode         inputMode
	dragOriginX  int
	history      []domain.SwapRecord
	historyErr   error
	historyLimit int
	markdown     *markdownRenderer
	copyText     ClipboardFunc
}

// historyLoadedMsg carries persisted swaps for the history panel.
type historyLoadedMsg struct {
	records []domain.SwapRecord
	err     error
}

// clipboardMsg reports the outcome of a clipboard write.
type clipboardMsg struct {
	err error
}

// NewModel constructs a new value for this package.
func NewModel(board Board, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		board:        board,
		status:       "drag a block with the mouse",
		help:         h,
		keys:         newKeyMap(),
		layout:       DefaultLayoutConfig(),
		canvas:       newOffsetCanvas(board.Row()),
		historyLimit: 20,
		markdown:     &markdownRenderer{},
		copyText:     systemClipboard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	board.SetRenderer(m.canvas)
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case historyLoadedMsg:
		m.history = append([]domain.SwapRecord(nil), msg.records...)
		m.historyErr = msg.err
		if msg.err != nil {
			m.status = "load history failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("%d swaps in history", len(msg.records))
		}
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "layout copied"
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	default:
		return m, nil
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeHistory {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.closeDialog), key.Matches(msg, m.keys.history):
			m.mode = modeNone
			m.status = "ready"
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.cancelDrag):
		if m.board.State() != app.StateDragging {
			return m, nil
		}
		return m.dispatch(app.CancelEvent())
	case key.Matches(msg, m.keys.resetOrder):
		if err := m.board.Reset(context.Background()); err != nil {
			m.status = "reset failed: " + err.Error()
			return m, nil
		}
		m.status = "order reset"
		return m, nil
	case key.Matches(msg, m.keys.copyLayout):
		return m, m.copyLayoutCmd()
	case key.Matches(msg, m.keys.history):
		if m.board.State() == app.StateDragging {
			return m, nil
		}
		m.mode = modeHistory
		m.status = "loading history..."
		return m, m.loadHistory
	default:
		return m, nil
	}
}

// handleMouseClick starts a drag on the block under the pointer.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseLeft || m.mode != modeNone {
		return m, nil
	}
	if m.board.State() == app.StateDragging {
		return m, nil
	}
	blockID, ok := m.blockAt(msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	m.dragOriginX = msg.X
	return m.dispatch(app.BeginEvent(blockID, 0))
}

// handleMouseMotion feeds pointer movement to the active drag.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.board.State() != app.StateDragging {
		return m, nil
	}
	translation := float64(msg.X-m.dragOriginX) * m.layout.PointsPerCell
	return m.dispatch(app.ChangeEvent(translation))
}

// handleMouseRelease ends the active drag.
func (m Model) handleMouseRelease(tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if m.board.State() != app.StateDragging {
		return m, nil
	}
	return m.dispatch(app.EndEvent())
}

// dispatch forwards one gesture event to the board and updates the status line.
func (m Model) dispatch(ev app.Event) (tea.Model, tea.Cmd) {
	session, _ := m.board.Session()
	handled, err := m.board.Handle(context.Background(), ev)
	if err != nil {
		m.status = "save failed: " + err.Error()
		return m, nil
	}
	if !handled {
		return m, nil
	}
	switch ev.Kind {
	case app.EventBegin:
		m.status = "dragging " + ev.BlockID
	case app.EventEnd, app.EventCancel:
		block, ok := m.board.Row().Block(session.TargetBlockID)
		if !ok {
			m.status = "ready"
			break
		}
		verb := "dropped"
		if ev.Kind == app.EventCancel {
			verb = "cancelled"
		}
		m.status = fmt.Sprintf("%s %s at slot %d (%d swaps)", verb, block.ID, block.Slot+1, session.Swaps)
	}
	return m, nil
}

// loadHistory loads recent swaps for the history panel.
func (m Model) loadHistory() tea.Msg {
	records, err := m.board.History(context.Background(), m.historyLimit)
	return historyLoadedMsg{records: records, err: err}
}

// copyLayoutCmd writes the current layout to the clipboard.
func (m Model) copyLayoutCmd() tea.Cmd {
	text := LayoutText(m.board.Row())
	copyText := m.copyText
	return func() tea.Msg {
		return clipboardMsg{err: copyText(text)}
	}
}

// rowTop returns the first screen row of the block band.
func (m Model) rowTop() int {
	return headerHeight
}

// blockSpan returns the screen column and width of b.
func (m Model) blockSpan(b domain.Block) (int, int) {
	ppc := m.layout.PointsPerCell
	offset := m.canvas.offset(b.ID, b.Offset)
	start := int(math.Round(offset / ppc))
	end := int(math.Round((offset + b.Width) / ppc))
	return rowOriginX + start, max(3, end-start)
}

// blockAt returns the block under the given cell, preferring the dragged block.
func (m Model) blockAt(x, y int) (string, bool) {
	top := m.rowTop()
	if y < top || y >= top+m.layout.BlockHeight {
		return "", false
	}
	if session, ok := m.board.Session(); ok {
		if b, found := m.board.Row().Block(session.TargetBlockID); found {
			if start, width := m.blockSpan(b); x >= start && x < start+width {
				return b.ID, true
			}
		}
	}
	for _, b := range m.board.Row().Blocks() {
		start, width := m.blockSpan(b)
		if x >= start && x < start+width {
			return b.ID, true
		}
	}
	return "", false
}

// View handles view.
func (m Model) View() tea.View {
	content := "loading..."
	if m.ready {
		content = m.renderScreen()
	}
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// renderScreen renders the header, block band, footer, and any open dialog.
func (m Model) renderScreen() string {
	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	row := m.board.Row()
	header := []string{
		titleStyle.Render("blockpush") + statusStyle.Render(" · "+row.Name),
		statusStyle.Render("state: " + m.board.State().String()),
		"",
	}
	band := make([]string, m.layout.BlockHeight)
	footer := []string{"", "order: " + strings.Join(row.Order(), " ")}
	if m.layout.ShowOffsets {
		footer = append(footer, statusStyle.Render(m.offsetSummary()))
	}
	if strings.TrimSpace(m.status) != "" {
		footer = append(footer, statusStyle.Render(m.status))
	}

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	content := strings.Join(append(append(header, band...), footer...), "\n")
	height := lipgloss.Height(content) + lipgloss.Height(helpLine)
	if m.height > 0 {
		height = m.height
	}
	content = fitLines(content, max(0, height-lipgloss.Height(helpLine)))
	base := content + "\n" + helpLine

	rendered := m.composeBlocks(base, max(1, m.width), max(1, height), accent, muted)
	if m.mode == modeHistory {
		rendered = overlayOnContent(rendered, m.renderHistoryPanel(accent), max(1, m.width), max(1, height))
	}
	return rendered
}

// composeBlocks layers block boxes over the base frame. The dragged block is drawn on top.
func (m Model) composeBlocks(base string, width, height int, accent, muted color.Color) string {
	canvas := lipgloss.NewCanvas(width, height)
	canvas.Compose(lipgloss.NewLayer(fitLines(base, height)).X(0).Y(0).Z(0))

	dragged := ""
	if session, ok := m.board.Session(); ok {
		dragged = session.TargetBlockID
	}
	for _, b := range m.board.Row().Blocks() {
		start, cells := m.blockSpan(b)
		border := muted
		z := 1
		if b.ID == dragged {
			border = accent
			z = 10
		}
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Width(cells).
			Height(m.layout.BlockHeight).
			Render(truncate(b.Label, max(1, cells-2)))
		canvas.Compose(lipgloss.NewLayer(box).X(max(0, start)).Y(m.rowTop()).Z(z))
	}
	return canvas.Render()
}

// offsetSummary lists the visual offset of every block in slot order.
func (m Model) offsetSummary() string {
	blocks := m.board.Row().Blocks()
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, fmt.Sprintf("%s@%s", b.ID, formatPoints(m.canvas.offset(b.ID, b.Offset))))
	}
	return "offsets: " + strings.Join(parts, " ")
}

// renderHistoryPanel renders the swap history dialog.
func (m Model) renderHistoryPanel(accent color.Color) string {
	panelWidth := max(30, min(m.width-8, 90))
	body := ""
	switch {
	case m.historyErr != nil:
		body = "error: " + m.historyErr.Error()
	case len(m.history) == 0:
		body = "No swaps recorded yet."
	default:
		body = m.markdown.render(HistoryMarkdown(m.history), panelWidth-4)
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Swap history")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(panelWidth).
		Render(title + "\n\n" + body + "\n\nesc close")
}

// fitLines pads or truncates content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(20)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate shortens s to at most width runes.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
