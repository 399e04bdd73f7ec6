package script

import (
	"github.com/evanschultz/blockpush/internal/app"
	"github.com/evanschultz/blockpush/internal/domain"
)

// Command is one offset update emitted while replaying.
type Command struct {
	Step    int
	BlockID string
	Offset  float64
}

// Step reports how one event was handled.
type Step struct {
	Index   int
	Event   app.Event
	Handled bool
	State   app.State
}

// Result is the outcome of a replay.
type Result struct {
	Steps    []Step
	Commands []Command
	Swaps    []domain.SwapRecord
	Order    []string
}

// Replay runs events through a fresh controller bound to row. The row is
// mutated in place.
func Replay(row *domain.Row, events []app.Event, opts ...app.ControllerOption) Result {
	var res Result
	step := 0
	renderer := app.RendererFunc(func(blockID string, offset float64) {
		res.Commands = append(res.Commands, Command{Step: step, BlockID: blockID, Offset: offset})
	})
	opts = append(opts, app.WithSwapObserver(func(rec domain.SwapRecord) {
		res.Swaps = append(res.Swaps, rec)
	}))
	ctrl := app.NewDragController(row, renderer, opts...)
	for i, ev := range events {
		step = i
		handled := ctrl.Handle(ev)
		res.Steps = append(res.Steps, Step{Index: i, Event: ev, Handled: handled, State: ctrl.State()})
	}
	res.Order = row.Order()
	return res
}
