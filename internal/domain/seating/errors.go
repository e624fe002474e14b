package seating

import (
	"errors"
	"fmt"
)

// Sentinel kinds for seating chart errors.
var (
	ErrInvalidChart   = errors.New("invalid seating chart")
	ErrInvalidMove    = errors.New("invalid seat move")
	ErrUnknownStudent = fmt.Errorf("student not on the roster: %w", ErrInvalidMove)
	ErrOutOfBounds    = fmt.Errorf("seat outside the grid: %w", ErrInvalidMove)
)
