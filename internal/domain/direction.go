package domain

// Direction is a travel direction along the row axis.
type Direction int

// DirectionRight and DirectionLeft are the two directions a block can travel.
const (
	DirectionRight Direction = iota
	DirectionLeft
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionRight:
		return "right"
	case DirectionLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == DirectionLeft {
		return DirectionRight
	}
	return DirectionLeft
}

// Step returns the slot increment for one move in this direction.
func (d Direction) Step() int {
	if d == DirectionLeft {
		return -1
	}
	return 1
}

// ParseDirection parses a persisted direction value.
func ParseDirection(raw string) (Direction, bool) {
	switch raw {
	case "right":
		return DirectionRight, true
	case "left":
		return DirectionLeft, true
	default:
		return DirectionRight, false
	}
}
