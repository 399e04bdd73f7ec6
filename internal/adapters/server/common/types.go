// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrServiceUnavailable reports a missing backing service.
var ErrServiceUnavailable = errors.New("service unavailable")

// DefaultSwapLimit bounds swap listings when callers omit a limit.
const DefaultSwapLimit = 50

// RowSummary describes one persisted row without its blocks.
type RowSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BlockCount int    `json:"block_count"`
}

// BlockLayout describes one block at its current slot.
type BlockLayout struct {
	Slot   int     `json:"slot"`
	ID     string  `json:"id"`
	Label  string  `json:"label,omitempty"`
	Width  float64 `json:"width"`
	Offset float64 `json:"offset"`
}

// RowLayout describes one row in slot order.
type RowLayout struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	TotalExtent float64       `json:"total_extent"`
	Order       []string      `json:"order"`
	Blocks      []BlockLayout `json:"blocks"`
}

// SwapEvent describes one recorded swap.
type SwapEvent struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	MovedID      string    `json:"moved_id"`
	DisplacedID  string    `json:"displaced_id"`
	FromSlot     int       `json:"from_slot"`
	ToSlot       int       `json:"to_slot"`
	Direction    string    `json:"direction"`
	Displacement float64   `json:"displacement"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// GestureEvent is one begin/change/end/cancel event in a remote gesture.
type GestureEvent struct {
	Kind        string  `json:"kind"`
	Block       string  `json:"block,omitempty"`
	Translation float64 `json:"translation,omitempty"`
}

// ApplyGestureRequest carries one gesture for a row.
type ApplyGestureRequest struct {
	RowID  string         `json:"row_id,omitempty"`
	Events []GestureEvent `json:"events"`
}

// OffsetCommand is one offset update emitted while applying a gesture.
type OffsetCommand struct {
	Step    int     `json:"step"`
	BlockID string  `json:"block_id"`
	Offset  float64 `json:"offset"`
}

// GestureResult is the outcome of one applied gesture.
type GestureResult struct {
	Handled   []bool          `json:"handled"`
	Cancelled bool            `json:"cancelled"`
	Commands  []OffsetCommand `json:"commands"`
	Swaps     []SwapEvent     `json:"swaps"`
	Layout    RowLayout       `json:"layout"`
}

// RowService is the row surface shared by the HTTP and MCP adapters.
type RowService interface {
	ListRows(context.Context) ([]RowSummary, error)
	GetRowLayout(context.Context, string) (RowLayout, error)
	ListSwapEvents(context.Context, string, int) ([]SwapEvent, error)
	ApplyGesture(context.Context, ApplyGestureRequest) (GestureResult, error)
}
