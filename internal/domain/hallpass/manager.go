package hallpass

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/classroom/pkg/logger"
)

// issueAttempts bounds how often Issue draws a new code after a collision.
const issueAttempts = 3

// Store persists hall passes. Add fails with an error matching
// ErrDuplicateCode when the id is taken. MarkReturned keeps the first return
// time when called again for an already returned pass.
type Store interface {
	Add(ctx context.Context, p Pass) error
	Get(ctx context.Context, id string) (Pass, error)
	MarkReturned(ctx context.Context, id string, at time.Time) (Pass, error)
	// List returns passes of classID issued at or after since; an empty
	// classID matches every class.
	List(ctx context.Context, classID string, since time.Time) ([]Pass, error)
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithOverdueGrace sets how long past expected a pass turns red.
func WithOverdueGrace(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.grace = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLocation sets the zone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithCodeGenerator overrides NewCode for codes drawn after a collision.
func WithCodeGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newCode = gen
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager issues, returns and lists passes.
type Manager struct {
	store   Store
	now     func() time.Time
	newCode func() string
	grace   time.Duration
	loc     *time.Location
	logger  logger.Logger
}

// NewManager creates a manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		now:     time.Now,
		newCode: NewCode,
		grace:   DefaultOverdueGrace,
		loc:     time.Local,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates and stores a new pass. A code collision draws a new code.
func (m *Manager) Issue(ctx context.Context, req IssueRequest) (Status, error) {
	now := m.now()
	p, err := NewPass(req, now)
	if err != nil {
		return Status{}, err
	}
	for attempt := 1; ; attempt++ {
		err = m.store.Add(ctx, p)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateCode) || attempt == issueAttempts {
			return Status{}, fmt.Errorf("issue pass: %w", err)
		}
		m.logger.Warn(ctx, "pass code collision; drawing a new code",
			logger.String("pass", p.ID),
			logger.Int("attempt", attempt),
		)
		p.ID = m.newCode()
	}
	m.logger.Info(ctx, "hall pass issued",
		logger.String("pass", p.ID),
		logger.String("destination", p.Destination),
		logger.Int("expected_minutes", p.ExpectedDuration),
	)
	return m.status(p, now), nil
}

// Return marks the pass as returned now. Returning a pass again keeps the
// first return time and reports AlreadyReturned.
func (m *Manager) Return(ctx context.Context, id string) (Status, error) {
	now := m.now()
	prev, err := m.store.Get(ctx, id)
	if err != nil {
		return Status{}, fmt.Errorf("return pass %s: %w", id, err)
	}
	if !prev.IsActive() {
		st := m.status(prev, now)
		st.AlreadyReturned = true
		return st, nil
	}
	p, err := m.store.MarkReturned(ctx, id, now)
	if err != nil {
		return Status{}, fmt.Errorf("return pass %s: %w", id, err)
	}
	st := m.status(p, now)
	// A concurrent return that won the race kept its own time.
	st.AlreadyReturned = !p.ReturnTime.Equal(now)
	if !st.AlreadyReturned {
		m.logger.Info(ctx, "hall pass returned", logger.String("pass", p.ID), logger.Int("minutes", p.DurationMinutes(now)))
	}
	return st, nil
}

// Today summarises the passes issued today for classID.
func (m *Manager) Today(ctx context.Context, classID string) (Summary, error) {
	now := m.now()
	local := now.In(m.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.loc)
	passes, err := m.store.List(ctx, classID, start)
	if err != nil {
		return Summary{}, fmt.Errorf("list passes: %w", err)
	}
	return Summarize(passes, now, m.grace), nil
}

// Grace reports the configured overdue grace.
func (m *Manager) Grace() time.Duration { return m.grace }

func (m *Manager) status(p Pass, now time.Time) Status {
	return Status{
		Pass:            p,
		DurationMinutes: p.DurationMinutes(now),
		Alert:           p.Alert(now, m.grace),
		Overdue:         p.IsOverdue(now),
	}
}
