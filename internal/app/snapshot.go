package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evanschultz/blockpush/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "blockpush.snapshot.v1"

// Snapshot represents snapshot data used by this package.
type Snapshot struct {
	Version    string              `json:"version"`
	ExportedAt time.Time           `json:"exported_at"`
	Rows       []SnapshotRow       `json:"rows"`
	SwapEvents []SnapshotSwapEvent `json:"swap_events,omitempty"`
}

// SnapshotRow stores one row with its blocks in slot order.
type SnapshotRow struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Blocks []SnapshotBlock `json:"blocks"`
}

// SnapshotBlock represents snapshot block data used by this package.
type SnapshotBlock struct {
	ID    string  `json:"id"`
	Label string  `json:"label,omitempty"`
	Width float64 `json:"width"`
}

// SnapshotSwapEvent represents one persisted swap.
type SnapshotSwapEvent struct {
	RowID        string    `json:"row_id"`
	SessionID    string    `json:"session_id,omitempty"`
	MovedID      string    `json:"moved_id"`
	DisplacedID  string    `json:"displaced_id"`
	FromSlot     int       `json:"from_slot"`
	ToSlot       int       `json:"to_slot"`
	Direction    string    `json:"direction"`
	Displacement float64   `json:"displacement"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ExportSnapshot collects every persisted row and, when includeHistory is set,
// up to historyLimit swaps per row.
func (s *Service) ExportSnapshot(ctx context.Context, includeHistory bool, historyLimit int) (Snapshot, error) {
	summaries, err := s.repo.ListRows(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Rows:       make([]SnapshotRow, 0, len(summaries)),
		SwapEvents: make([]SnapshotSwapEvent, 0),
	}
	for _, summary := range summaries {
		row, err := s.repo.GetRow(ctx, summary.ID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("load row %q: %w", summary.ID, err)
		}
		snap.Rows = append(snap.Rows, snapshotRowFromDomain(row))
		if !includeHistory {
			continue
		}
		events, err := s.ListSwapEvents(ctx, row.ID, historyLimit)
		if err != nil {
			return Snapshot{}, fmt.Errorf("list swaps for %q: %w", row.ID, err)
		}
		for _, rec := range events {
			snap.SwapEvents = append(snap.SwapEvents, snapshotSwapEventFromDomain(rec))
		}
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot upserts every row in snap and appends its swap events.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()

	for _, sr := range snap.Rows {
		row, err := sr.toDomain()
		if err != nil {
			return err
		}
		if err := s.repo.SaveRow(ctx, row); err != nil {
			return fmt.Errorf("save row %q: %w", row.ID, err)
		}
	}
	for _, ev := range snap.SwapEvents {
		rec, err := ev.toDomain()
		if err != nil {
			return err
		}
		if err := s.repo.CreateSwapEvent(ctx, rec); err != nil {
			return fmt.Errorf("import swap for %q: %w", rec.RowID, err)
		}
	}
	return nil
}

// Validate validates the requested operation.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}
	rowIDs := map[string]struct{}{}
	for i, r := range s.Rows {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return fmt.Errorf("rows[%d].id is required", i)
		}
		if _, exists := rowIDs[id]; exists {
			return fmt.Errorf("duplicate row id: %q", id)
		}
		rowIDs[id] = struct{}{}
		if _, err := r.toDomain(); err != nil {
			return fmt.Errorf("rows[%d]: %w", i, err)
		}
	}
	for i, ev := range s.SwapEvents {
		if _, ok := rowIDs[strings.TrimSpace(ev.RowID)]; !ok {
			return fmt.Errorf("swap_events[%d] references unknown row %q", i, ev.RowID)
		}
		if _, ok := domain.ParseDirection(ev.Direction); !ok {
			return fmt.Errorf("swap_events[%d].direction %q is invalid", i, ev.Direction)
		}
		if ev.OccurredAt.IsZero() {
			return errors.New("swap event timestamps are required")
		}
	}
	return nil
}

// sort orders rows by id and swaps oldest first so imports replay in order.
func (s *Snapshot) sort() {
	sort.SliceStable(s.Rows, func(i, j int) bool {
		return s.Rows[i].ID < s.Rows[j].ID
	})
	sort.SliceStable(s.SwapEvents, func(i, j int) bool {
		a, b := s.SwapEvents[i], s.SwapEvents[j]
		if a.RowID != b.RowID {
			return a.RowID < b.RowID
		}
		return a.OccurredAt.Before(b.OccurredAt)
	})
}

// snapshotRowFromDomain handles snapshot row from domain.
func snapshotRowFromDomain(row *domain.Row) SnapshotRow {
	out := SnapshotRow{ID: row.ID, Name: row.Name}
	for _, b := range row.Blocks() {
		out.Blocks = append(out.Blocks, SnapshotBlock{ID: b.ID, Label: b.Label, Width: b.Width})
	}
	return out
}

// snapshotSwapEventFromDomain handles snapshot swap event from domain.
func snapshotSwapEventFromDomain(rec domain.SwapRecord) SnapshotSwapEvent {
	return SnapshotSwapEvent{
		RowID:        rec.RowID,
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

// toDomain rebuilds the row with blocks laid out in snapshot order.
func (r SnapshotRow) toDomain() (*domain.Row, error) {
	inputs := make([]domain.BlockInput, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		inputs = append(inputs, domain.BlockInput{ID: b.ID, Label: b.Label, Width: b.Width})
	}
	return domain.NewRow(r.ID, r.Name, inputs)
}

// toDomain converts the snapshot swap back into a record.
func (e SnapshotSwapEvent) toDomain() (domain.SwapRecord, error) {
	dir, ok := domain.ParseDirection(e.Direction)
	if !ok {
		return domain.SwapRecord{}, fmt.Errorf("invalid swap direction %q", e.Direction)
	}
	return domain.SwapRecord{
		RowID:        strings.TrimSpace(e.RowID),
		SessionID:    e.SessionID,
		MovedID:      e.MovedID,
		DisplacedID:  e.DisplacedID,
		FromSlot:     e.FromSlot,
		ToSlot:       e.ToSlot,
		Direction:    dir,
		Displacement: e.Displacement,
		OccurredAt:   e.OccurredAt.UTC(),
	}, nil
}
