package domain

import "strings"

// Block represents one draggable unit in a row.
type Block struct {
	ID     string
	Label  string
	Width  float64
	Slot   int
	Offset float64
}

// BlockInput holds the setup values for one block.
type BlockInput struct {
	ID    string
	Label string
	Width float64
}

// NewBlock constructs a block that is not yet placed in a row.
func NewBlock(in BlockInput) (Block, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Label = strings.TrimSpace(in.Label)
	if in.ID == "" {
		return Block{}, ErrInvalidID
	}
	if in.Width <= 0 {
		return Block{}, ErrInvalidWidth
	}
	if in.Label == "" {
		in.Label = in.ID
	}
	return Block{
		ID:    in.ID,
		Label: in.Label,
		Width: in.Width,
	}, nil
}

// Right returns the right edge of the block at its current offset.
func (b Block) Right() float64 {
	return b.Offset + b.Width
}
