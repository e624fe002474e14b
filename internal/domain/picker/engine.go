package picker

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/classroom/pkg/logger"
)

// Engine defaults.
const (
	historyKeyPrefix   = "picker_history_"
	dayLayout          = "2006-01-02"
	defaultSessionSpan = time.Hour
)

// HistoryStore persists one PickHistory per key. Update must apply fn as an
// atomic read-modify-write; fn may be invoked more than once on contention.
type HistoryStore interface {
	Get(ctx context.Context, key string) (PickHistory, error)
	Put(ctx context.Context, key string, history PickHistory) error
	Update(ctx context.Context, key string, fn func(PickHistory) (PickHistory, error)) (PickHistory, error)
	Delete(ctx context.Context, key string) error
}

// SelectionResult is the outcome of one Pick. FairnessScore is measured on
// the history before this pick was recorded.
type SelectionResult struct {
	ID            string
	ClassID       string
	Day           string
	Selected      string
	Weights       map[string]float64
	FairnessScore float64
	TotalStudents int
	Timestamp     time.Time
}

// Snapshot is a read-only view of one class's history for today.
type Snapshot struct {
	ClassID       string
	Day           string
	Roster        []string
	History       PickHistory
	FairnessScore float64
	SessionPicks  []SessionPick
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSeed seeds the random source; zero keeps the time-based seed.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		if seed != 0 {
			e.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // selection fairness, not security
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the time zone that defines the day boundary.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithSessionWindow sets how far back Snapshot.SessionPicks reaches.
func WithSessionWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.sessionWindow = d
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine runs picks against a HistoryStore.
type Engine struct {
	store         HistoryStore
	mu            sync.Mutex // guards rng
	rng           *rand.Rand
	now           func() time.Time
	loc           *time.Location
	sessionWindow time.Duration
	logger        logger.Logger
}

// NewEngine creates an engine over store.
func NewEngine(store HistoryStore, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // selection fairness, not security
		now:           time.Now,
		loc:           time.Local,
		sessionWindow: defaultSessionSpan,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HistoryKey names the stored history of classID on day (YYYY-MM-DD).
func HistoryKey(classID, day string) string {
	return classID + ":" + historyKeyPrefix + day
}

// Day returns the day key for t in the engine's time zone.
func (e *Engine) Day(t time.Time) string {
	return t.In(e.loc).Format(dayLayout)
}

// Today returns the current day key.
func (e *Engine) Today() string {
	return e.Day(e.now())
}

// Pick selects a student from roster and records the pick in today's history.
func (e *Engine) Pick(ctx context.Context, classID string, roster []string) (SelectionResult, error) {
	if len(roster) == 0 {
		return SelectionResult{}, fmt.Errorf("pick %s: empty roster: %w", classID, ErrInvalidInput)
	}
	now := e.now()
	day := e.Day(now)
	res := SelectionResult{
		ID:            uuid.NewString(),
		ClassID:       classID,
		Day:           day,
		TotalStudents: len(roster),
		Timestamp:     now,
	}

	_, err := e.store.Update(ctx, HistoryKey(classID, day), func(h PickHistory) (PickHistory, error) {
		weights := ComputeWeights(roster, h, now)
		selected, err := e.draw(roster, weights)
		if err != nil {
			return nil, err
		}
		res.Selected = selected
		res.Weights = weights
		next := RecordPick(h, selected, now)
		res.FairnessScore = FairnessScore(next)
		return next, nil
	})
	if err != nil {
		return SelectionResult{}, fmt.Errorf("pick %s: %w", classID, err)
	}

	e.logger.Info(ctx, "student picked",
		logger.String("class", classID),
		logger.String("student", res.Selected),
		logger.Float64("fairness", res.FairnessScore),
	)
	return res, nil
}

// Snapshot reads today's history for classID.
func (e *Engine) Snapshot(ctx context.Context, classID string, roster []string) (Snapshot, error) {
	now := e.now()
	day := e.Day(now)
	h, err := e.store.Get(ctx, HistoryKey(classID, day))
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", classID, err)
	}
	return Snapshot{
		ClassID:       classID,
		Day:           day,
		Roster:        roster,
		History:       h,
		FairnessScore: FairnessScore(h),
		SessionPicks:  SessionPicks(h, now, e.sessionWindow),
	}, nil
}

// Reset discards today's history for classID.
func (e *Engine) Reset(ctx context.Context, classID string) error {
	day := e.Today()
	if err := e.store.Delete(ctx, HistoryKey(classID, day)); err != nil {
		return fmt.Errorf("reset %s: %w", classID, err)
	}
	e.logger.Info(ctx, "pick history reset", logger.String("class", classID), logger.String("day", day))
	return nil
}

// Import replaces the history of classID on day, e.g. to restore a backup
// or seed a simulation.
func (e *Engine) Import(ctx context.Context, classID, day string, history PickHistory) error {
	if _, err := time.Parse(dayLayout, day); err != nil {
		return fmt.Errorf("import %s: day %q: %w", classID, day, ErrInvalidInput)
	}
	if err := e.store.Put(ctx, HistoryKey(classID, day), history.Clone()); err != nil {
		return fmt.Errorf("import %s: %w", classID, err)
	}
	return nil
}

func (e *Engine) draw(roster []string, weights map[string]float64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Select(roster, weights, e.rng)
}
