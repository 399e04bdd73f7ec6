package common

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/evanschultz/blockpush/internal/adapters/storage/sqlite"
	"github.com/evanschultz/blockpush/internal/app"
	"github.com/evanschultz/blockpush/internal/domain"
)

// newAdapterForTest builds an adapter over an in-memory store seeded with one row.
func newAdapterForTest(t *testing.T) *AppServiceAdapter {
	t.Helper()
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	svc := app.NewService(repo, func() string { return "session-1" }, func() time.Time { return now }, app.ServiceConfig{
		PersistOrder:  true,
		RecordHistory: true,
	})
	_, err = svc.EnsureRow(context.Background(), app.RowDefinition{
		ID:   "main",
		Name: "Main",
		Blocks: []domain.BlockInput{
			{ID: "a", Label: "Alpha", Width: 50},
			{ID: "b", Width: 50},
			{ID: "c", Width: 50},
		},
	})
	if err != nil {
		t.Fatalf("EnsureRow() error = %v", err)
	}
	return NewAppServiceAdapter(svc)
}

func TestAppServiceAdapterReadsRows(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapterForTest(t)

	rows, err := adapter.ListRows(ctx)
	if err != nil {
		t.Fatalf("ListRows() error = %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "main" || rows[0].BlockCount != 3 {
		t.Fatalf("unexpected rows %#v", rows)
	}

	layout, err := adapter.GetRowLayout(ctx, " main ")
	if err != nil {
		t.Fatalf("GetRowLayout() error = %v", err)
	}
	if layout.TotalExtent != 150 || !slices.Equal(layout.Order, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected layout %#v", layout)
	}
	if got := layout.Blocks[2]; got.Slot != 2 || got.Offset != 100 || got.Label != "c" {
		t.Fatalf("unexpected third block %#v", got)
	}
	if layout.Blocks[0].Label != "Alpha" {
		t.Fatalf("expected label Alpha, got %q", layout.Blocks[0].Label)
	}
}

func TestAppServiceAdapterApplyGesture(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapterForTest(t)

	res, err := adapter.ApplyGesture(ctx, ApplyGestureRequest{
		RowID: "main",
		Events: []GestureEvent{
			{Kind: "begin", Block: "a"},
			{Kind: "change", Translation: 60},
			{Kind: "END"},
		},
	})
	if err != nil {
		t.Fatalf("ApplyGesture() error = %v", err)
	}
	if res.Cancelled || !slices.Equal(res.Handled, []bool{true, true, true}) {
		t.Fatalf("unexpected handling %#v", res)
	}
	if !slices.Equal(res.Layout.Order, []string{"b", "a", "c"}) {
		t.Fatalf("unexpected order %v", res.Layout.Order)
	}
	if len(res.Swaps) != 1 || res.Swaps[0].Direction != "right" || res.Swaps[0].MovedID != "a" {
		t.Fatalf("unexpected swaps %#v", res.Swaps)
	}
	last := res.Commands[len(res.Commands)-1]
	if last != (OffsetCommand{Step: 2, BlockID: "a", Offset: 50}) {
		t.Fatalf("unexpected final command %#v", last)
	}

	swaps, err := adapter.ListSwapEvents(ctx, "main", 0)
	if err != nil {
		t.Fatalf("ListSwapEvents() error = %v", err)
	}
	if len(swaps) != 1 || swaps[0].SessionID != "session-1" || swaps[0].FromSlot != 0 || swaps[0].ToSlot != 1 {
		t.Fatalf("unexpected stored swaps %#v", swaps)
	}
}

func TestAppServiceAdapterMapsErrors(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapterForTest(t)

	cases := []struct {
		name string
		call func() error
		want error
	}{
		{
			name: "missing row",
			call: func() error { _, err := adapter.GetRowLayout(ctx, "nope"); return err },
			want: ErrNotFound,
		},
		{
			name: "blank row",
			call: func() error { _, err := adapter.GetRowLayout(ctx, " "); return err },
			want: ErrInvalidRequest,
		},
		{
			name: "negative limit",
			call: func() error { _, err := adapter.ListSwapEvents(ctx, "main", -1); return err },
			want: ErrInvalidRequest,
		},
		{
			name: "no events",
			call: func() error {
				_, err := adapter.ApplyGesture(ctx, ApplyGestureRequest{RowID: "main"})
				return err
			},
			want: ErrInvalidRequest,
		},
		{
			name: "unknown kind",
			call: func() error {
				_, err := adapter.ApplyGesture(ctx, ApplyGestureRequest{RowID: "main", Events: []GestureEvent{{Kind: "tap"}}})
				return err
			},
			want: app.ErrUnknownEvent,
		},
		{
			name: "begin without block",
			call: func() error {
				_, err := adapter.ApplyGesture(ctx, ApplyGestureRequest{RowID: "main", Events: []GestureEvent{{Kind: "begin"}}})
				return err
			},
			want: ErrInvalidRequest,
		},
		{
			name: "gesture on missing row",
			call: func() error {
				_, err := adapter.ApplyGesture(ctx, ApplyGestureRequest{RowID: "nope", Events: []GestureEvent{{Kind: "end"}}})
				return err
			},
			want: ErrNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAppServiceAdapterRequiresService(t *testing.T) {
	var adapter *AppServiceAdapter
	if _, err := adapter.ListRows(context.Background()); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if err := mapAppError("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
