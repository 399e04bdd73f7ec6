package app

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/evanschultz/blockpush/internal/domain"
)

type offsetCall struct {
	id     string
	offset float64
}

type recordingRenderer struct {
	calls []offsetCall
}

func (r *recordingRenderer) SetOffset(id string, offset float64) {
	r.calls = append(r.calls, offsetCall{id: id, offset: offset})
}

func (r *recordingRenderer) reset() {
	r.calls = nil
}

func newABCRow(t *testing.T) *domain.Row {
	t.Helper()
	row, err := domain.NewRow("r1", "Row", []domain.BlockInput{
		{ID: "a", Width: 50},
		{ID: "b", Width: 50},
		{ID: "c", Width: 50},
	})
	if err != nil {
		t.Fatalf("NewRow() error = %v", err)
	}
	return row
}

func offsetOf(t *testing.T, row *domain.Row, id string) float64 {
	t.Helper()
	b, ok := row.Block(id)
	if !ok {
		t.Fatalf("block %q missing", id)
	}
	return b.Offset
}

func slotOf(t *testing.T, row *domain.Row, id string) int {
	t.Helper()
	b, ok := row.Block(id)
	if !ok {
		t.Fatalf("block %q missing", id)
	}
	return b.Slot
}

// TestDragSwapsWithNeighborAtBaseThreshold verifies the first push past a neighbor.
func TestDragSwapsWithNeighborAtBaseThreshold(t *testing.T) {
	row := newABCRow(t)
	rec := &recordingRenderer{}
	c := NewDragController(row, rec)

	if !c.Begin("a", 0) {
		t.Fatal("expected begin to start a drag")
	}
	s, _ := c.Session()
	if s.NextCollisionThreshold != 50 || !s.PanningRight {
		t.Fatalf("unexpected initial session %#v", s)
	}

	if !c.Change(50) {
		t.Fatal("expected change to be handled")
	}
	if slotOf(t, row, "a") != 1 || slotOf(t, row, "b") != 0 {
		t.Fatalf("expected a/b swapped, got order %v", row.Order())
	}
	want := []offsetCall{{id: "a", offset: 50}, {id: "b", offset: 0}}
	if !slices.Equal(rec.calls, want) {
		t.Fatalf("unexpected renderer calls %#v", rec.calls)
	}
	s, _ = c.Session()
	if s.NextCollisionThreshold != 100 || s.Swaps != 1 {
		t.Fatalf("unexpected session after swap %#v", s)
	}
}

// TestDragPastTwoNeighbors verifies sequential swaps across separate events.
func TestDragPastTwoNeighbors(t *testing.T) {
	row := newABCRow(t)
	rec := &recordingRenderer{}
	c := NewDragController(row, rec)

	c.Begin("a", 0)
	c.Change(30)
	c.Change(50)
	c.Change(80)
	if got := row.Order(); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Fatalf("unexpected order before second threshold %v", got)
	}
	rec.reset()
	c.Change(100)
	if got := row.Order(); !slices.Equal(got, []string{"b", "c", "a"}) {
		t.Fatalf("unexpected final order %v", got)
	}
	want := []offsetCall{{id: "a", offset: 100}, {id: "c", offset: 50}}
	if !slices.Equal(rec.calls, want) {
		t.Fatalf("unexpected renderer calls %#v", rec.calls)
	}

	rec.reset()
	if !c.End() {
		t.Fatal("expected end to be handled")
	}
	if c.State() != StateIdle {
		t.Fatalf("expected idle, got %s", c.State())
	}
	if offsetOf(t, row, "a") != 100 || offsetOf(t, row, "b") != 0 || offsetOf(t, row, "c") != 50 {
		t.Fatalf("unexpected final offsets %#v", row.Blocks())
	}
	if !slices.Equal(rec.calls, []offsetCall{{id: "a", offset: 100}}) {
		t.Fatalf("unexpected snap calls %#v", rec.calls)
	}
}

// TestOneSwapPerChange verifies an overshoot defers the second swap to the next event.
func TestOneSwapPerChange(t *testing.T) {
	row := newABCRow(t)
	c := NewDragController(row, nil)

	c.Begin("a", 0)
	c.Change(500)
	if got := row.Order(); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Fatalf("expected exactly one swap, got %v", got)
	}
	c.Change(500)
	if got := row.Order(); !slices.Equal(got, []string{"b", "c", "a"}) {
		t.Fatalf("expected deferred swap on next event, got %v", got)
	}
	c.Change(500)
	if got := row.Order(); !slices.Equal(got, []string{"b", "c", "a"}) {
		t.Fatalf("expected no swap past the last slot, got %v", got)
	}
	if offsetOf(t, row, "a") != 500 {
		t.Fatalf("expected raw offset past the row edge, got %v", offsetOf(t, row, "a"))
	}
}

// TestReversalResetsThreshold verifies a direction change starts a fresh cycle.
func TestReversalResetsThreshold(t *testing.T) {
	row := newABCRow(t)
	c := NewDragController(row, nil)

	c.Begin("a", 0)
	c.Change(50)
	s, _ := c.Session()
	if s.NextCollisionThreshold != 100 {
		t.Fatalf("expected rightward threshold 100, got %v", s.NextCollisionThreshold)
	}

	c.Change(40)
	s, _ = c.Session()
	if s.PanningRight {
		t.Fatal("expected leftward travel after reversal")
	}
	if s.StartTranslation != 40 {
		t.Fatalf("expected start reset to 40, got %v", s.StartTranslation)
	}
	if s.NextCollisionThreshold != 50 {
		t.Fatalf("expected leftward base threshold 50, got %v", s.NextCollisionThreshold)
	}

	c.Change(-9)
	if got := row.Order(); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Fatalf("expected no swap below threshold, got %v", got)
	}
	c.Change(-10)
	if got := row.Order(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("expected swap back, got %v", got)
	}
	if offsetOf(t, row, "b") != 50 {
		t.Fatalf("expected b snapped to vacated slot 50, got %v", offsetOf(t, row, "b"))
	}
}

// TestZeroDeltaKeepsDirection verifies a stationary event never flips direction.
func TestZeroDeltaKeepsDirection(t *testing.T) {
	row := newABCRow(t)
	c := NewDragController(row, nil)

	c.Begin("b", 0)
	c.Change(-10)
	s, _ := c.Session()
	if s.PanningRight {
		t.Fatal("expected leftward travel")
	}
	c.Change(-10)
	s, _ = c.Session()
	if s.PanningRight || s.StartTranslation != 0 {
		t.Fatalf("unexpected session after zero delta %#v", s)
	}
}

// TestFirstMoveLeftMirrorsFirstMoveRight verifies the opening direction keeps the displacement from Begin.
func TestFirstMoveLeftMirrorsFirstMoveRight(t *testing.T) {
	cases := []struct {
		name        string
		translation float64
		want        []string
	}{
		{name: "right", translation: 50, want: []string{"a", "c", "b"}},
		{name: "left", translation: -50, want: []string{"b", "a", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := newABCRow(t)
			c := NewDragController(row, nil)
			c.Begin("b", 0)
			c.Change(tc.translation)
			if got := row.Order(); !slices.Equal(got, tc.want) {
				t.Fatalf("expected %v after first move to %v, got %v", tc.want, tc.translation, got)
			}
			s, _ := c.Session()
			if s.StartTranslation != 0 || s.Swaps != 1 {
				t.Fatalf("unexpected session %#v", s)
			}
			if offsetOf(t, row, "b") != tc.translation+50 {
				t.Fatalf("expected raw offset %v, got %v", tc.translation+50, offsetOf(t, row, "b"))
			}
		})
	}
}

// TestLeftmostBlockNeverSwapsLeft verifies the row boundary.
func TestLeftmostBlockNeverSwapsLeft(t *testing.T) {
	row := newABCRow(t)
	c := NewDragController(row, nil)

	c.Begin("a", 0)
	for _, tr := range []float64{-10, -50, -100, -400} {
		c.Change(tr)
		if slotOf(t, row, "a") != 0 {
			t.Fatalf("leftmost block moved to slot %d at %v", slotOf(t, row, "a"), tr)
		}
	}
	if offsetOf(t, row, "a") != -400 {
		t.Fatalf("expected raw offset -400, got %v", offsetOf(t, row, "a"))
	}
	c.Cancel()
	if offsetOf(t, row, "a") != 0 {
		t.Fatalf("expected snap to 0, got %v", offsetOf(t, row, "a"))
	}
}

// TestBeginEndWithoutMovementIsIdempotent verifies a tap leaves the row untouched.
func TestBeginEndWithoutMovementIsIdempotent(t *testing.T) {
	row := newABCRow(t)
	before := row.Blocks()
	c := NewDragController(row, nil)

	c.Begin("b", 12)
	c.End()
	if got := row.Blocks(); !slices.Equal(got, before) {
		t.Fatalf("row changed: before %#v after %#v", before, got)
	}
}

// TestCancelKeepsCommittedSwaps verifies cancel does not roll back.
func TestCancelKeepsCommittedSwaps(t *testing.T) {
	row := newABCRow(t)
	c := NewDragController(row, nil)

	c.Begin("a", 0)
	c.Change(60)
	if !c.Cancel() {
		t.Fatal("expected cancel to be handled")
	}
	if got := row.Order(); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Fatalf("expected swap kept after cancel, got %v", got)
	}
	if offsetOf(t, row, "a") != 50 {
		t.Fatalf("expected a snapped to 50, got %v", offsetOf(t, row, "a"))
	}
}

// TestIgnoredEvents verifies events outside a valid state are no-ops.
func TestIgnoredEvents(t *testing.T) {
	row := newABCRow(t)
	rec := &recordingRenderer{}
	c := NewDragController(row, rec)

	if c.Change(10) || c.End() || c.Cancel() {
		t.Fatal("expected events while idle to be ignored")
	}
	if c.Begin("", 0) || c.Begin("missing", 0) {
		t.Fatal("expected begin over no block to be ignored")
	}
	if c.Handle(Event{Kind: "wiggle"}) {
		t.Fatal("expected unknown event kind to be ignored")
	}
	if !c.Handle(BeginEvent("a", 0)) {
		t.Fatal("expected begin to be handled")
	}
	if c.Handle(BeginEvent("b", 0)) {
		t.Fatal("expected second begin to be ignored")
	}
	s, _ := c.Session()
	if s.TargetBlockID != "a" {
		t.Fatalf("unexpected target %q", s.TargetBlockID)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("expected no renderer calls, got %#v", rec.calls)
	}
}

// TestThresholdGrowsByNewNeighborWidth verifies uneven widths.
func TestThresholdGrowsByNewNeighborWidth(t *testing.T) {
	row, err := domain.NewRow("r", "", []domain.BlockInput{
		{ID: "a", Width: 20},
		{ID: "b", Width: 40},
		{ID: "c", Width: 60},
	})
	if err != nil {
		t.Fatalf("NewRow() error = %v", err)
	}
	c := NewDragController(row, nil)
	c.Begin("a", 0)
	s, _ := c.Session()
	if s.NextCollisionThreshold != 30 {
		t.Fatalf("expected base threshold 30, got %v", s.NextCollisionThreshold)
	}
	c.Change(30)
	s, _ = c.Session()
	if s.NextCollisionThreshold != 90 {
		t.Fatalf("expected threshold 30+60, got %v", s.NextCollisionThreshold)
	}
	if offsetOf(t, row, "b") != 0 {
		t.Fatalf("expected b at 0, got %v", offsetOf(t, row, "b"))
	}
}

// TestSwapObserverAndSessionIDs verifies swap records carry session metadata.
func TestSwapObserverAndSessionIDs(t *testing.T) {
	row := newABCRow(t)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	var got []domain.SwapRecord
	c := NewDragController(row, nil,
		WithSessionIDs(func() string { return "s-1" }),
		WithControllerClock(func() time.Time { return now }),
		WithSwapObserver(func(rec domain.SwapRecord) { got = append(got, rec) }),
	)
	c.Begin("c", 0)
	c.Change(-49)
	if len(got) != 0 {
		t.Fatalf("expected no swap below threshold, got %#v", got)
	}
	c.Change(-50)
	if len(got) != 1 {
		t.Fatalf("expected one swap record, got %#v", got)
	}
	rec := got[0]
	if rec.SessionID != "s-1" || rec.RowID != "r1" || rec.MovedID != "c" || rec.DisplacedID != "b" {
		t.Fatalf("unexpected record %#v", rec)
	}
	if rec.FromSlot != 2 || rec.ToSlot != 1 || rec.Direction != domain.DirectionLeft || rec.Displacement != 50 || !rec.OccurredAt.Equal(now) {
		t.Fatalf("unexpected record geometry %#v", rec)
	}
}

// TestReorderRequiresIdle verifies reorder is refused mid-drag.
func TestReorderRequiresIdle(t *testing.T) {
	row := newABCRow(t)
	rec := &recordingRenderer{}
	c := NewDragController(row, rec)
	c.Begin("a", 0)
	if err := c.Reorder([]string{"c", "b", "a"}); !errors.Is(err, ErrDragActive) {
		t.Fatalf("expected ErrDragActive, got %v", err)
	}
	c.End()
	rec.reset()
	if err := c.Reorder([]string{"c", "b", "a"}); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if len(rec.calls) != 3 || rec.calls[0] != (offsetCall{id: "c", offset: 0}) {
		t.Fatalf("unexpected reorder calls %#v", rec.calls)
	}
}

// TestRandomGesturesKeepPermutation drives random gestures and checks invariants after every event.
func TestRandomGesturesKeepPermutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 50; round++ {
		n := 2 + rng.IntN(6)
		inputs := make([]domain.BlockInput, 0, n)
		for i := 0; i < n; i++ {
			inputs = append(inputs, domain.BlockInput{ID: "b" + strconv.Itoa(i), Width: float64(5 + rng.IntN(60))})
		}
		row, err := domain.NewRow("r", "", inputs)
		if err != nil {
			t.Fatalf("NewRow() error = %v", err)
		}
		c := NewDragController(row, nil)
		c.Begin(inputs[rng.IntN(n)].ID, 0)
		var tr float64
		for step := 0; step < 40; step++ {
			before := row.Order()
			tr += float64(rng.IntN(121) - 60)
			c.Change(tr)
			if err := row.Validate(); err != nil {
				t.Fatalf("round %d step %d: %v", round, step, err)
			}
			moved := 0
			for idx, id := range row.Order() {
				if before[idx] != id {
					moved++
				}
			}
			if moved != 0 && moved != 2 {
				t.Fatalf("round %d step %d: %d slots changed in one event", round, step, moved)
			}
		}
		c.End()
		for _, b := range row.Blocks() {
			if b.Offset != row.LayoutOffset(b.Slot) {
				t.Fatalf("round %d: block %q not at layout offset after end", round, b.ID)
			}
		}
	}
}
