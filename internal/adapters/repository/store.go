// Package repository holds the storage backends for pick histories, hall
// passes and the pick audit log.
package repository

import (
	"context"
	"time"

	"github.com/okian/classroom/internal/domain/hallpass"
	"github.com/okian/classroom/internal/domain/model"
	"github.com/okian/classroom/internal/domain/picker"
	"github.com/okian/classroom/pkg/metrics"
)

// Backend names accepted by configuration.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// HistoryStore persists one PickHistory per key.
type HistoryStore interface {
	picker.HistoryStore
	Close() error
}

// HallPassStore persists hall passes.
type HallPassStore interface {
	hallpass.Store
	Close() error
}

// AuditLog keeps every pick, unbounded by the recent-picks limit.
type AuditLog interface {
	// Append stores e; appending an id that already exists is a no-op.
	Append(ctx context.Context, e model.PickEvent) error
	// ListByDay returns the picks of classID on day, oldest first.
	ListByDay(ctx context.Context, classID, day string) ([]model.PickEvent, error)
	Close() error
}

func observe(backend, op string, start time.Time) {
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
}
