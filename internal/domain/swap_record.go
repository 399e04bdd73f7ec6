package domain

import "time"

// SwapRecord represents one committed adjacent swap during a drag.
type SwapRecord struct {
	ID           int64
	RowID        string
	SessionID    string
	MovedID      string
	DisplacedID  string
	FromSlot     int
	ToSlot       int
	Direction    Direction
	Displacement float64
	OccurredAt   time.Time
}
