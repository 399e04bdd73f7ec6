package app

import (
	"time"

	"github.com/evanschultz/blockpush/internal/domain"
)

// State is the drag controller phase.
type State int

// StateIdle and StateDragging are the two controller phases.
const (
	StateIdle State = iota
	StateDragging
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// DragSession is the transient state of one active gesture.
type DragSession struct {
	ID                     string
	TargetBlockID          string
	StartTranslation       float64
	LastTranslation        float64
	PanningRight           bool
	NextCollisionThreshold float64
	Swaps                  int
	BeganAt                time.Time

	moved bool
}

// Direction returns the current direction of travel.
func (s DragSession) Direction() domain.Direction {
	if s.PanningRight {
		return domain.DirectionRight
	}
	return domain.DirectionLeft
}

// ControllerOption configures a DragController.
type ControllerOption func(*DragController)

// WithSwapObserver registers a callback for committed swaps.
func WithSwapObserver(fn SwapObserver) ControllerOption {
	return func(c *DragController) {
		c.observer = fn
	}
}

// WithSessionIDs sets the generator used for drag session ids.
func WithSessionIDs(gen IDGenerator) ControllerOption {
	return func(c *DragController) {
		if gen != nil {
			c.idGen = gen
		}
	}
}

// WithControllerClock sets the clock used to stamp sessions and swaps.
func WithControllerClock(clock Clock) ControllerOption {
	return func(c *DragController) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// DragController turns gesture events into adjacent swaps on a row.
// It is not safe for concurrent use; events must be delivered sequentially.
type DragController struct {
	row      *domain.Row
	renderer Renderer
	session  *DragSession
	observer SwapObserver
	idGen    IDGenerator
	clock    Clock
}

// NewDragController constructs an idle controller for row.
func NewDragController(row *domain.Row, renderer Renderer, opts ...ControllerOption) *DragController {
	c := &DragController{
		row:   row,
		idGen: func() string { return "" },
		clock: time.Now,
	}
	c.SetRenderer(renderer)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SetRenderer replaces the outbound renderer; nil drops commands.
func (c *DragController) SetRenderer(renderer Renderer) {
	if renderer == nil {
		renderer = nopRenderer{}
	}
	c.renderer = renderer
}

// Row returns the row driven by the controller.
func (c *DragController) Row() *domain.Row {
	return c.row
}

// State returns the current phase.
func (c *DragController) State() State {
	if c.session == nil {
		return StateIdle
	}
	return StateDragging
}

// Session returns a copy of the active drag session.
func (c *DragController) Session() (DragSession, bool) {
	if c.session == nil {
		return DragSession{}, false
	}
	return *c.session, true
}

// Handle dispatches one event and reports whether it was consumed.
func (c *DragController) Handle(ev Event) bool {
	switch ev.Kind {
	case EventBegin:
		return c.Begin(ev.BlockID, ev.Translation)
	case EventChange:
		return c.Change(ev.Translation)
	case EventEnd:
		return c.End()
	case EventCancel:
		return c.Cancel()
	default:
		return false
	}
}

// Begin starts a drag on blockID. It is ignored when a drag is already
// active or when blockID names no block in the row.
func (c *DragController) Begin(blockID string, translation float64) bool {
	if c.session != nil {
		return false
	}
	target, ok := c.row.Block(blockID)
	if !ok {
		return false
	}
	c.session = &DragSession{
		ID:                     c.idGen(),
		TargetBlockID:          target.ID,
		StartTranslation:       translation,
		LastTranslation:        translation,
		PanningRight:           true,
		NextCollisionThreshold: c.baseThreshold(target, domain.DirectionRight),
		BeganAt:                c.clock().UTC(),
	}
	return true
}

// Change advances the active drag to translation. At most one swap happens per call.
func (c *DragController) Change(translation float64) bool {
	s := c.session
	if s == nil {
		return false
	}
	target, ok := c.row.Block(s.TargetBlockID)
	if !ok {
		return false
	}

	delta := translation - s.LastTranslation
	if delta != 0 {
		right := delta > 0
		switch {
		case !s.moved:
			// The first movement only picks the direction; the start stays put.
			s.moved = true
			if right != s.PanningRight {
				s.PanningRight = right
				s.NextCollisionThreshold = c.baseThreshold(target, s.Direction())
			}
		case right != s.PanningRight:
			// A reversal starts a fresh collision cycle from here.
			s.PanningRight = right
			s.StartTranslation = translation
			s.NextCollisionThreshold = c.baseThreshold(target, s.Direction())
		}
	}

	target.Offset += delta
	c.row.SetOffset(target.ID, target.Offset)
	c.renderer.SetOffset(target.ID, target.Offset)

	dir := s.Direction()
	displacement := translation - s.StartTranslation
	if dir == domain.DirectionLeft {
		displacement = -displacement
	}
	if displacement >= s.NextCollisionThreshold {
		c.pushPast(s, target, dir, displacement)
	}
	s.LastTranslation = translation
	return true
}

// pushPast swaps target with its neighbor in dir, if any, and advances the threshold.
func (c *DragController) pushPast(s *DragSession, target domain.Block, dir domain.Direction, displacement float64) {
	neighbor, ok := c.row.Neighbor(target.Slot, dir)
	if !ok {
		return
	}
	from, to := target.Slot, neighbor.Slot
	if err := c.row.Swap(from, to); err != nil {
		return
	}
	vacated := c.row.LayoutOffset(from)
	c.row.SetOffset(neighbor.ID, vacated)
	c.renderer.SetOffset(neighbor.ID, vacated)

	s.Swaps++
	if next, ok := c.row.Neighbor(to, dir); ok {
		s.NextCollisionThreshold += next.Width
	}
	if c.observer != nil {
		c.observer(domain.SwapRecord{
			RowID:        c.row.ID,
			SessionID:    s.ID,
			MovedID:      target.ID,
			DisplacedID:  neighbor.ID,
			FromSlot:     from,
			ToSlot:       to,
			Direction:    dir,
			Displacement: displacement,
			OccurredAt:   c.clock().UTC(),
		})
	}
}

// End finishes the active drag and snaps the target into its slot.
func (c *DragController) End() bool {
	return c.finish()
}

// Cancel finishes the active drag like End. Committed swaps are kept.
func (c *DragController) Cancel() bool {
	return c.finish()
}

// finish snaps the dragged block and discards the session.
func (c *DragController) finish() bool {
	s := c.session
	if s == nil {
		return false
	}
	c.session = nil
	target, ok := c.row.Block(s.TargetBlockID)
	if !ok {
		return true
	}
	snapped := c.row.LayoutOffset(target.Slot)
	c.row.SetOffset(target.ID, snapped)
	c.renderer.SetOffset(target.ID, snapped)
	return true
}

// Reorder applies ids as the new row order while idle and re-emits every offset.
func (c *DragController) Reorder(ids []string) error {
	if c.session != nil {
		return ErrDragActive
	}
	if err := c.row.ApplyOrder(ids); err != nil {
		return err
	}
	for _, b := range c.row.Blocks() {
		c.renderer.SetOffset(b.ID, b.Offset)
	}
	return nil
}

// baseThreshold is half the target width plus half the neighbor width in dir.
func (c *DragController) baseThreshold(target domain.Block, dir domain.Direction) float64 {
	threshold := target.Width / 2
	if neighbor, ok := c.row.Neighbor(target.Slot, dir); ok {
		threshold += neighbor.Width / 2
	}
	return threshold
}
