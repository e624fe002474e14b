// Package service provides the classroom service behind the HTTP API:
// fair student picks, hall passes, the pick audit trail and the dashboard.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	eventqueue "github.com/okian/classroom/internal/adapters/mq/queue"
	workerpool "github.com/okian/classroom/internal/adapters/mq/worker"
	"github.com/okian/classroom/internal/adapters/repository"
	"github.com/okian/classroom/internal/config"
	"github.com/okian/classroom/internal/domain/dedupe"
	"github.com/okian/classroom/internal/domain/hallpass"
	"github.com/okian/classroom/internal/domain/model"
	"github.com/okian/classroom/internal/domain/picker"
	"github.com/okian/classroom/internal/domain/seating"
	"github.com/okian/classroom/internal/domain/types"
	"github.com/okian/classroom/pkg/cache"
	"github.com/okian/classroom/pkg/logger"
	"github.com/okian/classroom/pkg/metrics"
)

const dayLayout = "2006-01-02"

// Service implements the API dependencies for the classroom tools.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	loc    *time.Location
	now    func() time.Time
	logger logger.Logger

	// Storage backends; the service closes them on Stop. Backends opened
	// from the configuration are reopened by the next Start.
	history repository.HistoryStore
	passes  repository.HallPassStore
	audit   repository.AuditLog
	sqlite  *repository.SQLite

	injectedHistory bool
	injectedPasses  bool
	injectedAudit   bool

	// Seating charts by class; built on the first Start.
	charts map[string]*seating.Chart

	// Core components
	engine     *picker.Engine
	hallPasses *hallpass.Manager
	dashboards *cache.Cache
	deduper    dedupe.Deduper
	auditQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool

	started bool
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration; the defaults of config.New are used
// otherwise.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now for every component.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHistoryStore injects a history store instead of the configured backend.
func WithHistoryStore(store repository.HistoryStore) Option {
	return func(s *Service) {
		s.history = store
		s.injectedHistory = store != nil
	}
}

// WithHallPassStore injects a hall pass store instead of the configured backend.
func WithHallPassStore(store repository.HallPassStore) Option {
	return func(s *Service) {
		s.passes = store
		s.injectedPasses = store != nil
	}
}

// WithAuditLog injects an audit log instead of the configured backend.
func WithAuditLog(log repository.AuditLog) Option {
	return func(s *Service) {
		s.audit = log
		s.injectedAudit = log != nil
	}
}

// New constructs a new Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the storage backends and starts the audit workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	loc, err := s.cfg.Location()
	if err != nil {
		return err
	}
	s.loc = loc
	if s.charts == nil {
		charts, err := buildCharts(s.cfg.SeatingCharts)
		if err != nil {
			return err
		}
		s.charts = charts
	}

	s.logger.Info(ctx, "starting classroom service...")
	if err := s.openBackends(ctx); err != nil {
		s.closeBackends(ctx)
		return err
	}

	s.engine = picker.NewEngine(s.history,
		picker.WithSeed(s.cfg.RandomSeed),
		picker.WithClock(s.now),
		picker.WithLocation(loc),
		picker.WithLogger(s.logger.Named("picker")),
	)
	s.hallPasses = hallpass.NewManager(s.passes,
		hallpass.WithClock(s.now),
		hallpass.WithLocation(loc),
		hallpass.WithOverdueGrace(s.cfg.OverdueGrace()),
		hallpass.WithLogger(s.logger.Named("hallpass")),
	)
	s.dashboards = cache.New("dashboard", cache.WithClock(s.now))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.auditQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.AuditQueueSize))
	s.workerPool = workerpool.NewPool(s.cfg.AuditWorkerCount, s.auditQueue, s.audit, s.deduper,
		workerpool.WithLogger(s.logger.Named("audit")),
	)
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "classroom service started",
		logger.String("history_backend", s.cfg.HistoryBackend),
		logger.String("hall_pass_backend", s.cfg.HallPassBackend),
		logger.String("audit_backend", s.cfg.AuditBackend),
		logger.String("timezone", loc.String()),
		logger.Int("audit_workers", s.cfg.AuditWorkerCount),
		logger.Int("seating_charts", len(s.charts)),
	)
	return nil
}

func (s *Service) openBackends(ctx context.Context) error {
	cfg := s.cfg
	storeLogger := s.logger.Named("repository")

	needsSQLite := func(backend string, injected bool) bool {
		return !injected && backend == repository.BackendSQLite
	}
	if needsSQLite(cfg.HistoryBackend, s.history != nil) ||
		needsSQLite(cfg.HallPassBackend, s.passes != nil) ||
		needsSQLite(cfg.AuditBackend, s.audit != nil) {
		db, err := repository.OpenSQLite(cfg.SQLitePath, repository.WithLogger(storeLogger))
		if err != nil {
			return fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		s.sqlite = db
	}

	if s.history == nil {
		switch cfg.HistoryBackend {
		case repository.BackendMemory:
			s.history = repository.NewMemoryHistoryStore()
		case repository.BackendRedis:
			store, err := repository.NewRedisHistoryStore(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, repository.WithNamespace(cfg.RedisNamespace), repository.WithLogger(storeLogger))
			if err != nil {
				return err
			}
			s.history = store
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
			}
		case repository.BackendSQLite:
			s.history = s.sqlite.HistoryStore()
		default:
			return fmt.Errorf("history backend %q: %w", cfg.HistoryBackend, repository.ErrUnknownBackend)
		}
	}

	if s.passes == nil {
		switch cfg.HallPassBackend {
		case repository.BackendMemory:
			s.passes = repository.NewMemoryHallPassStore()
		case repository.BackendSQLite:
			s.passes = s.sqlite.HallPassStore()
		default:
			return fmt.Errorf("hall pass backend %q: %w", cfg.HallPassBackend, repository.ErrUnknownBackend)
		}
	}

	if s.audit == nil {
		switch cfg.AuditBackend {
		case repository.BackendMemory:
			s.audit = repository.NewMemoryAuditLog()
		case repository.BackendSQLite:
			s.audit = s.sqlite.AuditLog()
		default:
			return fmt.Errorf("audit backend %q: %w", cfg.AuditBackend, repository.ErrUnknownBackend)
		}
	}
	return nil
}

func (s *Service) closeBackends(ctx context.Context) {
	closers := []struct {
		name     string
		c        interface{ Close() error }
		injected bool
	}{
		{"history", s.history, s.injectedHistory},
		{"hall_pass", s.passes, s.injectedPasses},
		{"audit", s.audit, s.injectedAudit},
	}
	for _, c := range closers {
		if c.c == nil || c.injected {
			continue
		}
		if err := c.c.Close(); err != nil {
			s.logger.Error(ctx, "error closing store", logger.String("store", c.name), logger.Error(err))
		}
	}
	if !s.injectedHistory {
		s.history = nil
	}
	if !s.injectedPasses {
		s.passes = nil
	}
	if !s.injectedAudit {
		s.audit = nil
	}
	if s.sqlite != nil {
		if err := s.sqlite.Close(); err != nil {
			s.logger.Error(ctx, "error closing sqlite", logger.Error(err))
		}
		s.sqlite = nil
	}
}

// Stop drains the audit queue and closes the storage backends.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping classroom service...")

	var err error
	if s.workerPool != nil {
		err = s.workerPool.Shutdown(ctx)
	}
	s.closeBackends(ctx)

	s.started = false
	s.logger.Info(ctx, "classroom service stopped")
	return err
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Roster resolves the students of classID: the configured roster, else the
// students of its seating chart, else the fallback roster. Names are trimmed
// and de-duplicated in order.
func (s *Service) Roster(classID string) []string {
	if names := seating.UniqueNames(s.cfg.Rosters[classID]); len(names) > 0 {
		return names
	}
	if chart := s.chart(classID); chart != nil {
		if names := chart.Students(); len(names) > 0 {
			return names
		}
	}
	return seating.UniqueNames(s.cfg.FallbackRoster)
}

// resolveClass maps a class without a roster or seating chart to the
// default class, so only configured classes reach metric labels, cache
// entries and storage keys.
func (s *Service) resolveClass(ctx context.Context, classID string) string {
	if classID == types.DefaultClassID {
		return classID
	}
	if _, ok := s.cfg.Rosters[classID]; ok {
		return classID
	}
	if _, ok := s.cfg.SeatingCharts[classID]; ok {
		return classID
	}
	s.logger.Debug(ctx, "unknown class; using the default class", logger.String("class", classID))
	return types.DefaultClassID
}

// Pick selects a student of classID and records the pick.
func (s *Service) Pick(ctx context.Context, classID string) (types.PickResponse, error) {
	if err := s.ready(); err != nil {
		return types.PickResponse{}, err
	}
	classID = s.resolveClass(ctx, classID)
	start := time.Now()
	roster := s.Roster(classID)
	metrics.UpdateRosterSize(classID, len(roster))
	if len(roster) == 0 {
		metrics.RecordEmptyRoster()
		return types.PickResponse{}, fmt.Errorf("class %s: %w", classID, ErrNoStudents)
	}

	res, err := s.engine.Pick(ctx, classID, roster)
	if err != nil {
		metrics.RecordErrorByComponent("picker", "pick")
		return types.PickResponse{}, err
	}
	metrics.RecordPick(classID, float64(time.Since(start).Microseconds())/1000)
	metrics.RecordSelectedWeight(res.Weights[res.Selected])

	s.publish(ctx, model.PickEvent{
		EventID:       res.ID,
		ClassID:       classID,
		Day:           res.Day,
		Student:       res.Selected,
		FairnessScore: res.FairnessScore,
		TotalStudents: res.TotalStudents,
		TS:            res.Timestamp,
	})
	s.dashboards.Invalidate(classID)

	weights := make(map[string]float64, len(roster))
	for _, name := range roster {
		weights[name] = types.RoundWeight(res.Weights[name])
	}
	return types.PickResponse{
		Success:          true,
		Selected:         res.Selected,
		Timestamp:        types.FormatTime(res.Timestamp.In(s.loc)),
		FairnessScore:    picker.RoundScore(res.FairnessScore),
		TotalStudents:    res.TotalStudents,
		SelectionWeights: weights,
	}, nil
}

// publish hands e to the audit workers. A full queue drops the event.
func (s *Service) publish(ctx context.Context, e model.PickEvent) { //nolint:gocritic // queue payload is passed by value
	if s.auditQueue.Enqueue(ctx, e) {
		return
	}
	metrics.RecordAuditDropped()
	s.logger.Warn(ctx, "audit queue full; pick not audited",
		logger.String("event_id", e.EventID),
		logger.String("class", e.ClassID),
	)
}

// Stats returns the picker statistics for classID today.
func (s *Service) Stats(ctx context.Context, classID string) (types.StatsResponse, error) {
	if err := s.ready(); err != nil {
		return types.StatsResponse{}, err
	}
	classID = s.resolveClass(ctx, classID)
	roster := s.Roster(classID)
	snap, err := s.engine.Snapshot(ctx, classID, roster)
	if err != nil {
		return types.StatsResponse{}, err
	}
	metrics.UpdateFairnessScore(classID, snap.FairnessScore)

	history := make(map[string]types.StudentHistory, len(snap.History))
	for name, rec := range snap.History {
		recent := rec.RecentPicks
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		formatted := make([]string, len(recent))
		for i, ts := range recent {
			formatted[i] = types.FormatTime(ts.In(s.loc))
		}
		history[name] = types.StudentHistory{
			Count:       rec.Count,
			LastPicked:  types.UnixSeconds(rec.LastPicked),
			RecentPicks: formatted,
		}
	}
	session := make([]types.SessionPick, len(snap.SessionPicks))
	for i, p := range snap.SessionPicks {
		session[i] = types.SessionPick{Student: p.Student, Timestamp: types.FormatTime(p.Timestamp.In(s.loc))}
	}
	return types.StatsResponse{
		TotalStudents: len(roster),
		Students:      roster,
		PickHistory:   history,
		FairnessScore: picker.RoundScore(snap.FairnessScore),
		SessionPicks:  session,
	}, nil
}

// Reset discards today's pick history of classID.
func (s *Service) Reset(ctx context.Context, classID string) (types.MessageResponse, error) {
	if err := s.ready(); err != nil {
		return types.MessageResponse{}, err
	}
	classID = s.resolveClass(ctx, classID)
	if err := s.engine.Reset(ctx, classID); err != nil {
		return types.MessageResponse{}, err
	}
	metrics.RecordHistoryReset(classID)
	metrics.UpdateFairnessScore(classID, picker.PerfectFairness)
	s.dashboards.Invalidate(classID)
	return types.MessageResponse{Success: true, Message: "History reset for today"}, nil
}

// Import replaces the pick history of classID on day.
func (s *Service) Import(ctx context.Context, classID, day string, history picker.PickHistory) error {
	if err := s.ready(); err != nil {
		return err
	}
	classID = s.resolveClass(ctx, classID)
	if err := s.engine.Import(ctx, classID, day, history); err != nil {
		return err
	}
	s.dashboards.Invalidate(classID)
	return nil
}

// Audit lists the audited picks of classID on day; an empty day means today.
func (s *Service) Audit(ctx context.Context, classID, day string) (types.AuditResponse, error) {
	if err := s.ready(); err != nil {
		return types.AuditResponse{}, err
	}
	classID = s.resolveClass(ctx, classID)
	if day == "" {
		day = s.engine.Today()
	}
	if _, err := time.Parse(dayLayout, day); err != nil {
		return types.AuditResponse{}, fmt.Errorf("day %q: %w", day, picker.ErrInvalidInput)
	}
	events, err := s.audit.ListByDay(ctx, classID, day)
	if err != nil {
		return types.AuditResponse{}, fmt.Errorf("list audit: %w", err)
	}
	picks := make([]types.AuditEntry, len(events))
	for i, e := range events {
		picks[i] = types.AuditEntry{
			EventID:       e.EventID,
			Student:       e.Student,
			Timestamp:     types.FormatTime(e.TS.In(s.loc)),
			FairnessScore: picker.RoundScore(e.FairnessScore),
			TotalStudents: e.TotalStudents,
		}
	}
	return types.AuditResponse{ClassID: classID, Day: day, Count: len(picks), Picks: picks}, nil
}

// IssuePass issues a hall pass in classID.
func (s *Service) IssuePass(ctx context.Context, classID string, req types.IssuePassRequest) (types.PassResponse, error) {
	if err := s.ready(); err != nil {
		return types.PassResponse{}, err
	}
	classID = s.resolveClass(ctx, classID)
	st, err := s.hallPasses.Issue(ctx, hallpass.IssueRequest{
		ClassID:          classID,
		StudentName:      req.StudentName,
		Destination:      req.Destination,
		Notes:            req.Notes,
		ExpectedDuration: req.ExpectedDuration,
	})
	if err != nil {
		return types.PassResponse{}, err
	}
	metrics.RecordPassIssued()
	s.dashboards.Invalidate(classID)
	return types.PassResponse{
		Success: true,
		Pass:    s.passJSON(st),
		Message: "Hall pass issued for " + st.StudentName,
	}, nil
}

// ReturnPass marks the pass id as returned.
func (s *Service) ReturnPass(ctx context.Context, id string) (types.PassResponse, error) {
	if err := s.ready(); err != nil {
		return types.PassResponse{}, err
	}
	st, err := s.hallPasses.Return(ctx, strings.TrimSpace(id))
	if err != nil {
		return types.PassResponse{}, err
	}
	if !st.AlreadyReturned {
		metrics.RecordPassReturned()
		s.dashboards.Invalidate(st.ClassID)
	}
	return types.PassResponse{Success: true, Pass: s.passJSON(st), Message: "Pass marked as returned"}, nil
}

// ListPasses summarises today's hall passes of classID.
func (s *Service) ListPasses(ctx context.Context, classID string) (types.PassListResponse, error) {
	if err := s.ready(); err != nil {
		return types.PassListResponse{}, err
	}
	classID = s.resolveClass(ctx, classID)
	summary, err := s.hallPasses.Today(ctx, classID)
	if err != nil {
		return types.PassListResponse{}, err
	}
	metrics.UpdatePassGauges(summary.Statistics.ActiveCount, summary.Statistics.OverdueCount)

	alerts := make([]types.Alert, len(summary.Alerts))
	for i, a := range summary.Alerts {
		alerts[i] = types.Alert{Type: "warning", Message: a}
	}
	return types.PassListResponse{
		ActivePasses: s.passesJSON(summary.Active),
		RecentPasses: s.passesJSON(summary.Recent),
		Statistics: types.PassStatistics{
			TotalToday:   summary.Statistics.TotalToday,
			ActiveCount:  summary.Statistics.ActiveCount,
			OverdueCount: summary.Statistics.OverdueCount,
			AvgDuration:  summary.Statistics.AvgDuration,
		},
		Alerts: alerts,
	}, nil
}

func (s *Service) passesJSON(in []hallpass.Status) []types.HallPass {
	out := make([]types.HallPass, len(in))
	for i, st := range in {
		out[i] = s.passJSON(st)
	}
	return out
}

func (s *Service) passJSON(st hallpass.Status) types.HallPass { //nolint:gocritic // small value type
	var ret *time.Time
	if st.ReturnTime != nil {
		t := st.ReturnTime.In(s.loc)
		ret = &t
	}
	return types.HallPass{
		ID:               st.ID,
		PassCode:         st.ID,
		ClassID:          st.ClassID,
		StudentName:      st.StudentName,
		Destination:      st.Destination,
		Notes:            st.Notes,
		IssueTime:        types.FormatTime(st.IssueTime.In(s.loc)),
		ReturnTime:       types.FormatTimePtr(ret),
		ExpectedDuration: st.ExpectedDuration,
		DurationMinutes:  st.DurationMinutes,
		AlertLevel:       string(st.Alert),
		IsActive:         st.IsActive(),
		IsOverdue:        st.Overdue,
		QRPayload:        st.QRPayload(),
	}
}

// PurgeExpired drops expired dashboard entries and reports how many went.
func (s *Service) PurgeExpired() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0
	}
	return s.dashboards.Purge()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"historyBackend":    s.cfg.HistoryBackend,
		"hallPassBackend":   s.cfg.HallPassBackend,
		"auditBackend":      s.cfg.AuditBackend,
		"auditWorkerCount":  s.cfg.AuditWorkerCount,
		"auditQueueSize":    s.cfg.AuditQueueSize,
		"configuredClasses": len(s.cfg.Rosters),
		"seatingCharts":     len(s.cfg.SeatingCharts),
	}

	if s.started {
		queueLen := s.auditQueue.Len(context.Background())
		stats["auditQueueLength"] = queueLen
		stats["auditWorkersActive"] = s.workerPool.Active()
		stats["dedupeSize"] = s.deduper.Size()
		stats["dashboardCacheEntries"] = s.dashboards.Len()
		stats["today"] = s.engine.Today()

		metrics.UpdateQueueSize(queueLen)
		s.workerPool.UpdateMetrics()
	}
	return stats
}
