package service

import (
	"errors"
	"fmt"

	"github.com/okian/classroom/internal/adapters/repository"
	"github.com/okian/classroom/internal/domain/picker"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrNoStudents     = fmt.Errorf("no students available: %w", picker.ErrInvalidInput)
	ErrNoSeatingChart = fmt.Errorf("no seating chart: %w", repository.ErrNotFound)
)
