package app

import (
	"fmt"
	"strings"

	"github.com/evanschultz/blockpush/internal/domain"
)

// EventKind identifies one inbound gesture event.
type EventKind string

// EventBegin and related constants are the gesture events a pointer source delivers.
const (
	EventBegin  EventKind = "begin"
	EventChange EventKind = "change"
	EventEnd    EventKind = "end"
	EventCancel EventKind = "cancel"
)

// Event is one gesture event. BlockID is only read for EventBegin; Translation
// is the horizontal translation in points relative to where the gesture began.
type Event struct {
	Kind        EventKind
	BlockID     string
	Translation float64
}

// BeginEvent builds a gesture-begin event over blockID.
func BeginEvent(blockID string, translation float64) Event {
	return Event{Kind: EventBegin, BlockID: blockID, Translation: translation}
}

// ChangeEvent builds a gesture-change event.
func ChangeEvent(translation float64) Event {
	return Event{Kind: EventChange, Translation: translation}
}

// EndEvent builds a gesture-end event.
func EndEvent() Event {
	return Event{Kind: EventEnd}
}

// CancelEvent builds a gesture-cancel event.
func CancelEvent() Event {
	return Event{Kind: EventCancel}
}

// Terminal reports whether the event ends a gesture.
func (e Event) Terminal() bool {
	return e.Kind == EventEnd || e.Kind == EventCancel
}

// ParseEventKind parses input into a normalized event kind.
func ParseEventKind(raw string) (EventKind, error) {
	kind := EventKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case EventBegin, EventChange, EventEnd, EventCancel:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, raw)
	}
}

// Renderer receives layout-update commands for visual blocks.
type Renderer interface {
	SetOffset(blockID string, offset float64)
}

// RendererFunc adapts a function into a Renderer.
type RendererFunc func(blockID string, offset float64)

// SetOffset calls f.
func (f RendererFunc) SetOffset(blockID string, offset float64) {
	f(blockID, offset)
}

// SwapObserver is notified after every committed swap.
type SwapObserver func(domain.SwapRecord)

// nopRenderer drops every command.
type nopRenderer struct{}

// SetOffset implements Renderer.
func (nopRenderer) SetOffset(string, float64) {}
