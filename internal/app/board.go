package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/blockpush/internal/domain"
)

// Board couples one row, its drag controller, and persistence.
type Board struct {
	svc      *Service
	ctrl     *DragController
	declared []string
	pending  []domain.SwapRecord
	onSwap   SwapObserver
}

// Row returns the row driven by the board.
func (b *Board) Row() *domain.Row {
	return b.ctrl.Row()
}

// State returns the controller phase.
func (b *Board) State() State {
	return b.ctrl.State()
}

// Session returns the active drag session, if any.
func (b *Board) Session() (DragSession, bool) {
	return b.ctrl.Session()
}

// SetRenderer replaces the renderer receiving offset updates.
func (b *Board) SetRenderer(renderer Renderer) {
	b.ctrl.SetRenderer(renderer)
}

// Handle feeds one event to the controller. When the event ends a gesture the
// swaps it committed and the new order are persisted.
func (b *Board) Handle(ctx context.Context, ev Event) (bool, error) {
	var session DragSession
	if ev.Terminal() {
		session, _ = b.ctrl.Session()
	}
	handled := b.ctrl.Handle(ev)
	if !handled {
		return false, nil
	}
	switch ev.Kind {
	case EventBegin:
		if s, ok := b.ctrl.Session(); ok {
			log.Debug("drag began", "row_id", b.Row().ID, "session_id", s.ID, "block_id", s.TargetBlockID)
		}
	case EventEnd, EventCancel:
		log.Debug("drag finished", "row_id", b.Row().ID, "session_id", session.ID, "kind", ev.Kind, "swaps", session.Swaps)
		if err := b.flush(ctx); err != nil {
			return true, err
		}
	}
	return true, nil
}

// flush persists pending swaps and the current order.
func (b *Board) flush(ctx context.Context) error {
	pending := b.pending
	b.pending = nil
	var errs []error
	for _, rec := range pending {
		if err := b.svc.RecordSwap(ctx, rec); err != nil {
			log.Error("record swap failed", "row_id", rec.RowID, "moved_id", rec.MovedID, "err", err)
			errs = append(errs, fmt.Errorf("record swap: %w", err))
		}
	}
	if len(pending) > 0 {
		if err := b.svc.SaveOrder(ctx, b.Row()); err != nil {
			log.Error("save row order failed", "row_id", b.Row().ID, "err", err)
			errs = append(errs, fmt.Errorf("save order: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Reset restores the declared order. It fails while a drag is active.
func (b *Board) Reset(ctx context.Context) error {
	if err := b.ctrl.Reorder(b.declared); err != nil {
		return err
	}
	if err := b.svc.SaveOrder(ctx, b.Row()); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

// History returns recent swaps for the board's row.
func (b *Board) History(ctx context.Context, limit int) ([]domain.SwapRecord, error) {
	return b.svc.ListSwapEvents(ctx, b.Row().ID, limit)
}
