package tui

import "github.com/atotto/clipboard"

type KeyConfig struct {
	Cancel     string
	Reset      string
	CopyLayout string
	History    string
}

type LayoutConfig struct {
	PointsPerCell float64
	BlockHeight   int
	ShowOffsets   bool
}

// ClipboardFunc writes text to the system clipboard.
type ClipboardFunc func(string) error

type Option func(*Model)

func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		PointsPerCell: 1,
		BlockHeight:   3,
		ShowOffsets:   true,
	}
}

func WithLayoutConfig(cfg LayoutConfig) Option {
	return func(m *Model) {
		if cfg.PointsPerCell > 0 {
			m.layout.PointsPerCell = cfg.PointsPerCell
		}
		if cfg.BlockHeight >= 3 {
			m.layout.BlockHeight = cfg.BlockHeight
		}
		m.layout.ShowOffsets = cfg.ShowOffsets
	}
}

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithClipboard overrides the clipboard writer.
func WithClipboard(fn ClipboardFunc) Option {
	return func(m *Model) {
		if fn != nil {
			m.copyText = fn
		}
	}
}

// WithHistoryLimit sets how many swaps the history panel loads.
func WithHistoryLimit(limit int) Option {
	return func(m *Model) {
		if limit > 0 {
			m.historyLimit = limit
		}
	}
}

func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}
