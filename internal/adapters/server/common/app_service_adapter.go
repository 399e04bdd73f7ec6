package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/blockpush/internal/app"
	"github.com/evanschultz/blockpush/internal/domain"
)

// AppServiceAdapter maps transport contracts onto app.Service row APIs.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// ListRows lists persisted rows.
func (a *AppServiceAdapter) ListRows(ctx context.Context) ([]RowSummary, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	rows, err := a.service.ListRows(ctx)
	if err != nil {
		return nil, mapAppError("list rows", err)
	}
	out := make([]RowSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, RowSummary{ID: row.ID, Name: row.Name, BlockCount: row.BlockCount})
	}
	return out, nil
}

// GetRowLayout returns one row in slot order.
func (a *AppServiceAdapter) GetRowLayout(ctx context.Context, rowID string) (RowLayout, error) {
	if err := a.ready(); err != nil {
		return RowLayout{}, err
	}
	rowID = strings.TrimSpace(rowID)
	if rowID == "" {
		return RowLayout{}, fmt.Errorf("row_id is required: %w", ErrInvalidRequest)
	}
	row, err := a.service.GetRow(ctx, rowID)
	if err != nil {
		return RowLayout{}, mapAppError("get row", err)
	}
	return rowLayoutFromDomain(row), nil
}

// ListSwapEvents lists recorded swaps for a row, newest first.
func (a *AppServiceAdapter) ListSwapEvents(ctx context.Context, rowID string, limit int) ([]SwapEvent, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	rowID = strings.TrimSpace(rowID)
	if rowID == "" {
		return nil, fmt.Errorf("row_id is required: %w", ErrInvalidRequest)
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit must be >= 0: %w", ErrInvalidRequest)
	}
	if limit == 0 {
		limit = DefaultSwapLimit
	}
	records, err := a.service.ListSwapEvents(ctx, rowID, limit)
	if err != nil {
		return nil, mapAppError("list swaps", err)
	}
	out := make([]SwapEvent, 0, len(records))
	for _, rec := range records {
		out = append(out, swapEventFromDomain(rec))
	}
	return out, nil
}

// ApplyGesture validates and applies one remote gesture.
func (a *AppServiceAdapter) ApplyGesture(ctx context.Context, in ApplyGestureRequest) (GestureResult, error) {
	if err := a.ready(); err != nil {
		return GestureResult{}, err
	}
	rowID := strings.TrimSpace(in.RowID)
	if rowID == "" {
		return GestureResult{}, fmt.Errorf("row_id is required: %w", ErrInvalidRequest)
	}
	events, err := toAppEvents(in.Events)
	if err != nil {
		return GestureResult{}, err
	}

	res, err := a.service.ApplyGesture(ctx, rowID, events)
	if err != nil {
		return GestureResult{}, mapAppError("apply gesture", err)
	}
	out := GestureResult{
		Handled:   res.Handled,
		Cancelled: res.Cancelled,
		Commands:  make([]OffsetCommand, 0, len(res.Commands)),
		Swaps:     make([]SwapEvent, 0, len(res.Swaps)),
		Layout:    rowLayoutFromDomain(res.Row),
	}
	for _, c := range res.Commands {
		out.Commands = append(out.Commands, OffsetCommand{Step: c.Step, BlockID: c.BlockID, Offset: c.Offset})
	}
	for _, rec := range res.Swaps {
		out.Swaps = append(out.Swaps, swapEventFromDomain(rec))
	}
	return out, nil
}

// ready reports whether the adapter has a backing service.
func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrServiceUnavailable)
	}
	return nil
}

// toAppEvents validates transport gesture events.
func toAppEvents(in []GestureEvent) ([]app.Event, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("events are required: %w", ErrInvalidRequest)
	}
	out := make([]app.Event, 0, len(in))
	for i, ev := range in {
		kind, err := app.ParseEventKind(ev.Kind)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, errors.Join(ErrInvalidRequest, err))
		}
		switch kind {
		case app.EventBegin:
			block := strings.TrimSpace(ev.Block)
			if block == "" {
				return nil, fmt.Errorf("events[%d]: begin requires a block: %w", i, ErrInvalidRequest)
			}
			out = append(out, app.BeginEvent(block, ev.Translation))
		case app.EventChange:
			out = append(out, app.ChangeEvent(ev.Translation))
		case app.EventEnd:
			out = append(out, app.EndEvent())
		case app.EventCancel:
			out = append(out, app.CancelEvent())
		}
	}
	return out, nil
}

// rowLayoutFromDomain converts a row into its transport layout.
func rowLayoutFromDomain(row *domain.Row) RowLayout {
	if row == nil {
		return RowLayout{}
	}
	out := RowLayout{
		ID:          row.ID,
		Name:        row.Name,
		TotalExtent: row.TotalExtent(),
		Order:       row.Order(),
		Blocks:      make([]BlockLayout, 0, row.Len()),
	}
	for _, b := range row.Blocks() {
		out.Blocks = append(out.Blocks, BlockLayout{
			Slot:   b.Slot,
			ID:     b.ID,
			Label:  b.Label,
			Width:  b.Width,
			Offset: b.Offset,
		})
	}
	return out
}

// swapEventFromDomain converts one swap record into its transport form.
func swapEventFromDomain(rec domain.SwapRecord) SwapEvent {
	return SwapEvent{
		ID:           rec.ID,
		SessionID:    rec.SessionID,
		MovedID:      rec.MovedID,
		DisplacedID:  rec.DisplacedID,
		FromSlot:     rec.FromSlot,
		ToSlot:       rec.ToSlot,
		Direction:    rec.Direction.String(),
		Displacement: rec.Displacement,
		OccurredAt:   rec.OccurredAt.UTC(),
	}
}

// mapAppError maps app and domain errors onto transport error classes.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrUnknownEvent),
		errors.Is(err, app.ErrEmptyGesture),
		errors.Is(err, domain.ErrInvalidID):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
