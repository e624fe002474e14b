package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/classroom/internal/domain/hallpass"
	"github.com/okian/classroom/internal/domain/model"
	"github.com/okian/classroom/internal/domain/picker"
)

// MemoryHistoryStore keeps histories in a map guarded by a mutex.
type MemoryHistoryStore struct {
	mu   sync.Mutex
	data map[string]picker.PickHistory
}

// NewMemoryHistoryStore creates an empty in-memory history store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{data: make(map[string]picker.PickHistory)}
}

// Get returns a copy of the history under key, empty if absent.
func (s *MemoryHistoryStore) Get(_ context.Context, key string) (picker.PickHistory, error) {
	defer observe(BackendMemory, "get", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key].Clone(), nil
}

// Put replaces the history under key.
func (s *MemoryHistoryStore) Put(_ context.Context, key string, history picker.PickHistory) error {
	defer observe(BackendMemory, "put", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = history.Clone()
	return nil
}

// Update applies fn under the store lock.
func (s *MemoryHistoryStore) Update(_ context.Context, key string, fn func(picker.PickHistory) (picker.PickHistory, error)) (picker.PickHistory, error) {
	defer observe(BackendMemory, "update", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.data[key].Clone())
	if err != nil {
		return nil, err
	}
	s.data[key] = next.Clone()
	return next, nil
}

// Delete removes key.
func (s *MemoryHistoryStore) Delete(_ context.Context, key string) error {
	defer observe(BackendMemory, "delete", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Close is a no-op.
func (s *MemoryHistoryStore) Close() error { return nil }

// MemoryHallPassStore keeps passes in insertion order.
type MemoryHallPassStore struct {
	mu     sync.RWMutex
	passes []hallpass.Pass
	byID   map[string]int
}

// NewMemoryHallPassStore creates an empty in-memory pass store.
func NewMemoryHallPassStore() *MemoryHallPassStore {
	return &MemoryHallPassStore{byID: make(map[string]int)}
}

// Add stores p. Codes must be unique.
func (s *MemoryHallPassStore) Add(_ context.Context, p hallpass.Pass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; ok {
		return fmt.Errorf("pass %s: %w: %w", p.ID, ErrConflict, hallpass.ErrDuplicateCode)
	}
	s.byID[p.ID] = len(s.passes)
	s.passes = append(s.passes, p)
	return nil
}

// Get returns the pass with id.
func (s *MemoryHallPassStore) Get(_ context.Context, id string) (hallpass.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return hallpass.Pass{}, ErrNotFound
	}
	return s.passes[i], nil
}

// MarkReturned sets the return time once.
func (s *MemoryHallPassStore) MarkReturned(_ context.Context, id string, at time.Time) (hallpass.Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return hallpass.Pass{}, ErrNotFound
	}
	if s.passes[i].ReturnTime == nil {
		t := at
		s.passes[i].ReturnTime = &t
	}
	return s.passes[i], nil
}

// List returns passes of classID issued at or after since, oldest first.
func (s *MemoryHallPassStore) List(_ context.Context, classID string, since time.Time) ([]hallpass.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []hallpass.Pass
	for _, p := range s.passes {
		if classID != "" && p.ClassID != classID {
			continue
		}
		if p.IssueTime.Before(since) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryHallPassStore) Close() error { return nil }

// MemoryAuditLog keeps audited picks per class and day.
type MemoryAuditLog struct {
	mu     sync.RWMutex
	seen   map[string]struct{}
	events map[string][]model.PickEvent
}

// NewMemoryAuditLog creates an empty in-memory audit log.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{
		seen:   make(map[string]struct{}),
		events: make(map[string][]model.PickEvent),
	}
}

func auditKey(classID, day string) string { return classID + "|" + day }

// Append stores e unless its id was already appended.
func (l *MemoryAuditLog) Append(_ context.Context, e model.PickEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[e.EventID]; ok {
		return nil
	}
	l.seen[e.EventID] = struct{}{}
	k := auditKey(e.ClassID, e.Day)
	l.events[k] = append(l.events[k], e)
	return nil
}

// ListByDay returns a copy of the day's events ordered by timestamp.
func (l *MemoryAuditLog) ListByDay(_ context.Context, classID, day string) ([]model.PickEvent, error) {
	l.mu.RLock()
	src := l.events[auditKey(classID, day)]
	out := make([]model.PickEvent, len(src))
	copy(out, src)
	l.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out, nil
}

// Close is a no-op.
func (l *MemoryAuditLog) Close() error { return nil }
