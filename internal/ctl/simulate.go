package ctl

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/classroom/internal/adapters/repository"
	"github.com/okian/classroom/internal/domain/picker"
)

const (
	simulationClass = "simulation"
	// simulationSpan keeps every simulated pick on one day.
	simulationSpan = 15 * time.Hour
)

var simulationStart = time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC)

// SimConfig describes a local picking run.
type SimConfig struct {
	Picks    int
	Students int
	// Interval between picks; shortened so the run fits in one day.
	Interval time.Duration
	Seed     int64
}

// StudentCount is one row of the simulated distribution.
type StudentCount struct {
	Name  string
	Count int
}

// SimResult summarises a run.
type SimResult struct {
	Picks        int
	Interval     time.Duration
	Distribution []StudentCount
	Fairness     float64
	// Legacy scores use the older variance factors 10 and 20.
	LegacyFactor10 float64
	LegacyFactor20 float64
	Spread         int
}

// Simulate runs cfg.Picks picks over a roster of cfg.Students against an
// in-memory history store with a simulated clock.
func Simulate(ctx context.Context, cfg SimConfig) (SimResult, error) {
	if cfg.Picks <= 0 || cfg.Students <= 0 {
		return SimResult{}, fmt.Errorf("picks and students must be positive: %w", picker.ErrInvalidInput)
	}
	interval := cfg.Interval
	if interval <= 0 || time.Duration(cfg.Picks)*interval > simulationSpan {
		interval = simulationSpan / time.Duration(cfg.Picks)
	}

	roster := make([]string, cfg.Students)
	for i := range roster {
		roster[i] = fmt.Sprintf("Student %02d", i+1)
	}

	now := simulationStart
	engine := picker.NewEngine(repository.NewMemoryHistoryStore(),
		picker.WithSeed(cfg.Seed),
		picker.WithLocation(time.UTC),
		picker.WithClock(func() time.Time { return now }),
	)
	for i := 0; i < cfg.Picks; i++ {
		if _, err := engine.Pick(ctx, simulationClass, roster); err != nil {
			return SimResult{}, err
		}
		now = now.Add(interval)
	}

	snap, err := engine.Snapshot(ctx, simulationClass, roster)
	if err != nil {
		return SimResult{}, err
	}
	h := snap.History

	res := SimResult{
		Picks:          cfg.Picks,
		Interval:       interval,
		Fairness:       picker.RoundScore(picker.FairnessScore(h)),
		LegacyFactor10: picker.RoundScore(picker.LegacyFairnessScore(h, 10)),
		LegacyFactor20: picker.RoundScore(picker.LegacyFairnessScore(h, 20)),
	}
	low, high := cfg.Picks, 0
	for _, name := range roster {
		c := h[name].Count
		res.Distribution = append(res.Distribution, StudentCount{Name: name, Count: c})
		low, high = min(low, c), max(high, c)
	}
	res.Spread = high - low
	sort.SliceStable(res.Distribution, func(i, j int) bool {
		return res.Distribution[i].Count > res.Distribution[j].Count
	})
	return res, nil
}
