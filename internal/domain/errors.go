package domain

import "errors"

var (
	ErrInvalidID      = errors.New("invalid id")
	ErrInvalidWidth   = errors.New("invalid width")
	ErrDuplicateID    = errors.New("duplicate block id")
	ErrEmptyRow       = errors.New("row has no blocks")
	ErrInvalidSwap    = errors.New("only adjacent slots can be swapped")
	ErrSlotOutOfRange = errors.New("slot out of range")
	ErrInvalidOrder   = errors.New("invalid block order")
)
