package app

import (
	"context"

	"github.com/evanschultz/blockpush/internal/domain"
)

// Repository represents repository data used by this package.
type Repository interface {
	SaveRow(context.Context, *domain.Row) error
	GetRow(context.Context, string) (*domain.Row, error)
	ListRows(context.Context) ([]RowSummary, error)

	CreateSwapEvent(context.Context, domain.SwapRecord) error
	ListSwapEvents(context.Context, string, int) ([]domain.SwapRecord, error)
}

// RowSummary describes one persisted row without its blocks.
type RowSummary struct {
	ID         string
	Name       string
	BlockCount int
}
