package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/blockpush/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	PersistOrder  bool
	RecordHistory bool
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service loads and persists rows and their swap history.
type Service struct {
	repo          Repository
	idGen         IDGenerator
	clock         Clock
	persistOrder  bool
	recordHistory bool

	gestureMu sync.Mutex
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:          repo,
		idGen:         idGen,
		clock:         clock,
		persistOrder:  cfg.PersistOrder,
		recordHistory: cfg.RecordHistory,
	}
}

// RowDefinition declares a row and its blocks in declaration order.
type RowDefinition struct {
	ID     string
	Name   string
	Blocks []domain.BlockInput
}

// DeclaredOrder returns the block ids in declaration order.
func (d RowDefinition) DeclaredOrder() []string {
	out := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		out = append(out, strings.TrimSpace(b.ID))
	}
	return out
}

// EnsureRow builds the declared row and reconciles it with the persisted order.
// Blocks the store knows keep their stored order; new blocks are appended.
func (s *Service) EnsureRow(ctx context.Context, def RowDefinition) (*domain.Row, error) {
	if strings.TrimSpace(def.ID) == "" {
		def.ID = s.idGen()
	}
	row, err := domain.NewRow(def.ID, def.Name, def.Blocks)
	if err != nil {
		return nil, fmt.Errorf("build row %q: %w", def.ID, err)
	}

	stored, err := s.repo.GetRow(ctx, row.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Info("seeding row", "row_id", row.ID, "blocks", row.Len())
	case err != nil:
		return nil, fmt.Errorf("load row %q: %w", row.ID, err)
	default:
		if err := row.ApplyOrder(domain.MergeOrder(stored.Order(), row.Order())); err != nil {
			return nil, fmt.Errorf("apply stored order: %w", err)
		}
	}
	if err := s.repo.SaveRow(ctx, row); err != nil {
		return nil, fmt.Errorf("save row %q: %w", row.ID, err)
	}
	return row, nil
}

// GetRow loads a persisted row laid out in its stored order.
func (s *Service) GetRow(ctx context.Context, rowID string) (*domain.Row, error) {
	return s.repo.GetRow(ctx, strings.TrimSpace(rowID))
}

// ListRows lists persisted rows.
func (s *Service) ListRows(ctx context.Context) ([]RowSummary, error) {
	return s.repo.ListRows(ctx)
}

// SaveOrder persists the current slot order of row when order persistence is enabled.
func (s *Service) SaveOrder(ctx context.Context, row *domain.Row) error {
	if !s.persistOrder || row == nil {
		return nil
	}
	return s.repo.SaveRow(ctx, row)
}

// RecordSwap appends one swap to the history when history recording is enabled.
func (s *Service) RecordSwap(ctx context.Context, rec domain.SwapRecord) error {
	if !s.recordHistory {
		return nil
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = s.clock().UTC()
	}
	return s.repo.CreateSwapEvent(ctx, rec)
}

// ListSwapEvents returns the most recent swaps for a row, newest first.
func (s *Service) ListSwapEvents(ctx context.Context, rowID string, limit int) ([]domain.SwapRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListSwapEvents(ctx, strings.TrimSpace(rowID), limit)
}

// OpenBoard binds row to a new drag controller whose swaps are persisted
// through the service when each gesture ends.
func (s *Service) OpenBoard(row *domain.Row, declared []string, renderer Renderer) *Board {
	b := &Board{
		svc:      s,
		declared: append([]string(nil), declared...),
	}
	b.ctrl = NewDragController(row, renderer,
		WithSessionIDs(s.idGen),
		WithControllerClock(s.clock),
		WithSwapObserver(func(rec domain.SwapRecord) {
			b.pending = append(b.pending, rec)
			if b.onSwap != nil {
				b.onSwap(rec)
			}
		}),
	)
	return b
}
