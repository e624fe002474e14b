package picker

import "errors"

// Sentinel kinds for picker errors.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrCorruptHistory = errors.New("corrupt pick history")
)
