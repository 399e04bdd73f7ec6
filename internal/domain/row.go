package domain

import (
	"fmt"
	"strings"
)

// Row is an ordered sequence of blocks laid out edge-to-edge from left to right.
// Slots always form a contiguous permutation of 0..Len()-1.
type Row struct {
	ID     string
	Name   string
	blocks []Block
	slots  map[string]int
}

// NewRow constructs a row whose slot order follows the input order.
func NewRow(id, name string, inputs []BlockInput) (*Row, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return nil, ErrInvalidID
	}
	if len(inputs) == 0 {
		return nil, ErrEmptyRow
	}
	if name == "" {
		name = id
	}

	r := &Row{
		ID:     id,
		Name:   name,
		blocks: make([]Block, 0, len(inputs)),
		slots:  make(map[string]int, len(inputs)),
	}
	for idx, in := range inputs {
		block, err := NewBlock(in)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", idx, err)
		}
		if _, ok := r.slots[block.ID]; ok {
			return nil, fmt.Errorf("block %q: %w", block.ID, ErrDuplicateID)
		}
		block.Slot = idx
		r.slots[block.ID] = idx
		r.blocks = append(r.blocks, block)
	}
	r.Relayout()
	return r, nil
}

// Len returns the number of blocks in the row.
func (r *Row) Len() int {
	return len(r.blocks)
}

// TotalExtent returns the sum of all block widths.
func (r *Row) TotalExtent() float64 {
	return r.LayoutOffset(len(r.blocks))
}

// LayoutOffset returns the sum of widths of every block whose slot is below index.
func (r *Row) LayoutOffset(index int) float64 {
	index = min(max(index, 0), len(r.blocks))
	var offset float64
	for _, b := range r.blocks[:index] {
		offset += b.Width
	}
	return offset
}

// Block returns the block with the given id.
func (r *Row) Block(id string) (Block, bool) {
	slot, ok := r.slots[id]
	if !ok {
		return Block{}, false
	}
	return r.blocks[slot], true
}

// BlockAt returns the block currently occupying slot.
func (r *Row) BlockAt(slot int) (Block, bool) {
	if slot < 0 || slot >= len(r.blocks) {
		return Block{}, false
	}
	return r.blocks[slot], true
}

// Neighbor returns the block adjacent to index in the given direction.
// It reports false at the row ends.
func (r *Row) Neighbor(index int, dir Direction) (Block, bool) {
	if index < 0 || index >= len(r.blocks) {
		return Block{}, false
	}
	return r.BlockAt(index + dir.Step())
}

// Swap exchanges the slots of two adjacent blocks. Offsets are left untouched.
func (r *Row) Swap(indexA, indexB int) error {
	if indexA < 0 || indexA >= len(r.blocks) || indexB < 0 || indexB >= len(r.blocks) {
		return ErrSlotOutOfRange
	}
	if indexA-indexB != 1 && indexB-indexA != 1 {
		return ErrInvalidSwap
	}
	r.blocks[indexA], r.blocks[indexB] = r.blocks[indexB], r.blocks[indexA]
	r.blocks[indexA].Slot = indexA
	r.blocks[indexB].Slot = indexB
	r.slots[r.blocks[indexA].ID] = indexA
	r.slots[r.blocks[indexB].ID] = indexB
	return nil
}

// SetOffset sets the live offset of one block.
func (r *Row) SetOffset(id string, offset float64) bool {
	slot, ok := r.slots[id]
	if !ok {
		return false
	}
	r.blocks[slot].Offset = offset
	return true
}

// Relayout places every block at the layout offset of its slot.
func (r *Row) Relayout() {
	var offset float64
	for idx := range r.blocks {
		r.blocks[idx].Offset = offset
		offset += r.blocks[idx].Width
	}
}

// Blocks returns a copy of the blocks in slot order.
func (r *Row) Blocks() []Block {
	return append([]Block(nil), r.blocks...)
}

// Order returns block ids in slot order.
func (r *Row) Order() []string {
	out := make([]string, 0, len(r.blocks))
	for _, b := range r.blocks {
		out = append(out, b.ID)
	}
	return out
}

// ApplyOrder reorders the row to match ids and relays out every block.
// ids must be a permutation of the row's block ids.
func (r *Row) ApplyOrder(ids []string) error {
	if len(ids) != len(r.blocks) {
		return ErrInvalidOrder
	}
	next := make([]Block, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		slot, ok := r.slots[id]
		if !ok {
			return fmt.Errorf("unknown block %q: %w", id, ErrInvalidOrder)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("block %q repeated: %w", id, ErrInvalidOrder)
		}
		seen[id] = struct{}{}
		next = append(next, r.blocks[slot])
	}
	for idx := range next {
		next[idx].Slot = idx
		r.slots[next[idx].ID] = idx
	}
	r.blocks = next
	r.Relayout()
	return nil
}

// Validate checks the slot permutation invariant.
func (r *Row) Validate() error {
	if len(r.slots) != len(r.blocks) {
		return fmt.Errorf("slot index size %d != block count %d: %w", len(r.slots), len(r.blocks), ErrInvalidOrder)
	}
	for idx, b := range r.blocks {
		if b.Slot != idx {
			return fmt.Errorf("block %q at %d reports slot %d: %w", b.ID, idx, b.Slot, ErrInvalidOrder)
		}
		if r.slots[b.ID] != idx {
			return fmt.Errorf("block %q indexed at %d, stored at %d: %w", b.ID, r.slots[b.ID], idx, ErrInvalidOrder)
		}
	}
	return nil
}

// Clone returns an independent copy of the row.
func (r *Row) Clone() *Row {
	out := &Row{
		ID:     r.ID,
		Name:   r.Name,
		blocks: append([]Block(nil), r.blocks...),
		slots:  make(map[string]int, len(r.slots)),
	}
	for id, slot := range r.slots {
		out.slots[id] = slot
	}
	return out
}

// MergeOrder keeps the stored order for ids that are still declared and
// appends newly declared ids in declaration order.
func MergeOrder(stored, declared []string) []string {
	known := make(map[string]struct{}, len(declared))
	for _, id := range declared {
		known[id] = struct{}{}
	}
	out := make([]string, 0, len(declared))
	placed := make(map[string]struct{}, len(declared))
	for _, id := range stored {
		if _, ok := known[id]; !ok {
			continue
		}
		if _, ok := placed[id]; ok {
			continue
		}
		placed[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range declared {
		if _, ok := placed[id]; ok {
			continue
		}
		placed[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
