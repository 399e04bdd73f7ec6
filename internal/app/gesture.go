package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/blockpush/internal/domain"
)

// OffsetCommand is one renderer update produced while applying a gesture.
type OffsetCommand struct {
	Step    int     `json:"step"`
	BlockID string  `json:"block_id"`
	Offset  float64 `json:"offset"`
}

// GestureResult is the outcome of a gesture applied to a persisted row.
type GestureResult struct {
	Row       *domain.Row
	Handled   []bool
	Commands  []OffsetCommand
	Swaps     []domain.SwapRecord
	Cancelled bool
}

// ApplyGesture loads a persisted row, drives it through events, and persists
// the outcome the same way an interactive board does. A gesture still open
// after the last event is cancelled. Gestures are applied one at a time.
func (s *Service) ApplyGesture(ctx context.Context, rowID string, events []Event) (GestureResult, error) {
	if len(events) == 0 {
		return GestureResult{}, ErrEmptyGesture
	}
	s.gestureMu.Lock()
	defer s.gestureMu.Unlock()

	row, err := s.GetRow(ctx, rowID)
	if err != nil {
		return GestureResult{}, err
	}

	res := GestureResult{Handled: make([]bool, 0, len(events))}
	step := 0
	renderer := RendererFunc(func(blockID string, offset float64) {
		res.Commands = append(res.Commands, OffsetCommand{Step: step, BlockID: blockID, Offset: offset})
	})
	board := s.OpenBoard(row, row.Order(), renderer)
	board.onSwap = func(rec domain.SwapRecord) {
		res.Swaps = append(res.Swaps, rec)
	}

	for i, ev := range events {
		step = i
		handled, err := board.Handle(ctx, ev)
		res.Handled = append(res.Handled, handled)
		if err != nil {
			return res, fmt.Errorf("event %d: %w", i, err)
		}
	}
	if board.State() == StateDragging {
		step = len(events)
		log.Debug("closing open gesture", "row_id", row.ID)
		if _, err := board.Handle(ctx, CancelEvent()); err != nil {
			return res, fmt.Errorf("cancel open gesture: %w", err)
		}
		res.Cancelled = true
	}
	res.Row = board.Row()
	return res, nil
}
