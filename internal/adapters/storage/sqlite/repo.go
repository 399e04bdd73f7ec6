package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/blockpush/internal/app"
	"github.com/evanschultz/blockpush/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS block_rows (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS blocks (
			row_id TEXT NOT NULL,
			id TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			width REAL NOT NULL,
			slot INTEGER NOT NULL,
			PRIMARY KEY(row_id, id),
			FOREIGN KEY(row_id) REFERENCES block_rows(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS swap_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			row_id TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			moved_id TEXT NOT NULL,
			displaced_id TEXT NOT NULL,
			from_slot INTEGER NOT NULL,
			to_slot INTEGER NOT NULL,
			direction TEXT NOT NULL,
			displacement REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			FOREIGN KEY(row_id) REFERENCES block_rows(id) ON DELETE CASCADE
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_blocks_row_slot ON blocks(row_id, slot);`,
		`CREATE INDEX IF NOT EXISTS idx_swap_events_row_created_at ON swap_events(row_id, created_at DESC, id DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// SaveRow upserts a row and replaces its blocks with the current slot order.
func (r *Repository) SaveRow(ctx context.Context, row *domain.Row) (err error) {
	if row == nil {
		return errors.New("row is required")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := ts(time.Now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO block_rows(id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
	`, row.ID, row.Name, now, now)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM blocks WHERE row_id = ?`, row.ID); err != nil {
		return err
	}
	for _, b := range row.Blocks() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO blocks(row_id, id, label, width, slot)
			VALUES (?, ?, ?, ?, ?)
		`, row.ID, b.ID, b.Label, b.Width, b.Slot)
		if err != nil {
			return fmt.Errorf("insert block %q: %w", b.ID, err)
		}
	}
	err = tx.Commit()
	return err
}

// GetRow loads a row with its blocks in stored slot order.
func (r *Repository) GetRow(ctx context.Context, id string) (*domain.Row, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `SELECT name FROM block_rows WHERE id = ?`, id).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, app.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, label, width
		FROM blocks
		WHERE row_id = ?
		ORDER BY slot ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inputs := make([]domain.BlockInput, 0)
	for rows.Next() {
		var in domain.BlockInput
		if err := rows.Scan(&in.ID, &in.Label, &in.Width); err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	row, err := domain.NewRow(id, name, inputs)
	if err != nil {
		return nil, fmt.Errorf("decode row %q: %w", id, err)
	}
	return row, nil
}

// ListRows lists persisted rows ordered by id.
func (r *Repository) ListRows(ctx context.Context) ([]app.RowSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.name, COUNT(b.id)
		FROM block_rows r
		LEFT JOIN blocks b ON b.row_id = r.id
		GROUP BY r.id, r.name
		ORDER BY r.id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]app.RowSummary, 0)
	for rows.Next() {
		var s app.RowSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.BlockCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateSwapEvent appends one swap to the history ledger.
func (r *Repository) CreateSwapEvent(ctx context.Context, rec domain.SwapRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO swap_events(row_id, session_id, moved_id, displaced_id, from_slot, to_slot, direction, displacement, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RowID,
		rec.SessionID,
		rec.MovedID,
		rec.DisplacedID,
		rec.FromSlot,
		rec.ToSlot,
		rec.Direction.String(),
		rec.Displacement,
		ts(normalizeEventTS(rec.OccurredAt)),
	)
	return err
}

// ListSwapEvents returns swaps for one row, newest first.
func (r *Repository) ListSwapEvents(ctx context.Context, rowID string, limit int) ([]domain.SwapRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, row_id, session_id, moved_id, displaced_id, from_slot, to_slot, direction, displacement, created_at
		FROM swap_events
		WHERE row_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, rowID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.SwapRecord, 0)
	for rows.Next() {
		var (
			rec          domain.SwapRecord
			directionRaw string
			createdRaw   string
		)
		if err := rows.Scan(&rec.ID, &rec.RowID, &rec.SessionID, &rec.MovedID, &rec.DisplacedID, &rec.FromSlot, &rec.ToSlot, &directionRaw, &rec.Displacement, &createdRaw); err != nil {
			return nil, err
		}
		dir, ok := domain.ParseDirection(directionRaw)
		if !ok {
			return nil, fmt.Errorf("decode swap_events.direction %q", directionRaw)
		}
		rec.Direction = dir
		rec.OccurredAt = parseTS(createdRaw)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// normalizeEventTS defaults zero event times to now.
func normalizeEventTS(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

// tsLayout keeps nine fractional digits so stored text sorts in time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ts formats t for storage.
func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
