package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/classroom/internal/domain/hallpass"
	"github.com/okian/classroom/internal/domain/picker"
	"github.com/okian/classroom/internal/domain/types"
	"github.com/okian/classroom/pkg/cache"
)

// Dashboard thresholds.
const (
	leastPickedShown       = 3
	fairnessAlertThreshold = 70.0
)

// Dashboard aggregates today's participation and hall passes for classID.
// Results are reused for the configured cache window; mutations of the
// class invalidate them.
func (s *Service) Dashboard(ctx context.Context, classID string) (types.DashboardResponse, error) {
	if err := s.ready(); err != nil {
		return types.DashboardResponse{}, err
	}
	classID = s.resolveClass(ctx, classID)
	return cache.Typed(ctx, s.dashboards, classID, s.cfg.DashboardCacheTTL(),
		func(ctx context.Context) (types.DashboardResponse, error) {
			return s.buildDashboard(ctx, classID)
		})
}

func (s *Service) buildDashboard(ctx context.Context, classID string) (types.DashboardResponse, error) {
	roster := s.Roster(classID)
	snap, err := s.engine.Snapshot(ctx, classID, roster)
	if err != nil {
		return types.DashboardResponse{}, fmt.Errorf("dashboard participation: %w", err)
	}
	summary, err := s.hallPasses.Today(ctx, classID)
	if err != nil {
		return types.DashboardResponse{}, fmt.Errorf("dashboard hall passes: %w", err)
	}

	participation := participationOf(roster, snap)
	passes := types.HallPassOverview{
		Active:     summary.Statistics.ActiveCount,
		Overdue:    summary.Statistics.OverdueCount,
		TotalToday: summary.Statistics.TotalToday,
		Passes:     s.passesJSON(summary.Active),
	}
	return types.DashboardResponse{
		ClassID:       classID,
		HallPasses:    passes,
		Participation: participation,
		Alerts:        classroomAlerts(summary.Active, participation),
		QuickStats: types.QuickStats{
			ActivePasses:        passes.Active,
			OverduePasses:       passes.Overdue,
			StudentsPickedToday: participation.StudentsPickedToday,
			FairnessScore:       participation.FairnessScore,
		},
		GeneratedAt: types.FormatTime(s.now().In(s.loc)),
	}, nil
}

func participationOf(roster []string, snap picker.Snapshot) types.Participation { //nolint:gocritic // read-only snapshot
	p := types.Participation{
		Status:        types.ParticipationNoData,
		FairnessScore: picker.RoundScore(snap.FairnessScore),
		LeastPicked:   picker.LeastPicked(roster, snap.History, leastPickedShown),
		Distribution:  make(map[string]int, len(snap.History)),
	}
	if p.LeastPicked == nil {
		p.LeastPicked = []string{}
	}

	names := make([]string, 0, len(snap.History))
	for name, rec := range snap.History {
		if rec.Count <= 0 {
			continue
		}
		names = append(names, name)
		p.Distribution[name] = rec.Count
		p.TotalPicks += rec.Count
	}
	if p.TotalPicks == 0 {
		return p
	}

	sort.Slice(names, func(i, j int) bool {
		ci, cj := p.Distribution[names[i]], p.Distribution[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	p.Status = types.ParticipationActive
	p.StudentsPickedToday = len(names)
	p.MostPicked = &types.StudentCount{Name: names[0], Count: p.Distribution[names[0]]}
	return p
}

func classroomAlerts(active []hallpass.Status, participation types.Participation) []types.ClassroomAlert { //nolint:gocritic // read-only view
	alerts := []types.ClassroomAlert{}
	for _, st := range active {
		switch st.Alert {
		case hallpass.AlertRed:
			alerts = append(alerts, types.ClassroomAlert{
				Type:     "warning",
				Priority: "high",
				Title:    "Student Out Too Long",
				Message:  fmt.Sprintf("%s has been out for %d minutes", st.StudentName, st.DurationMinutes),
				Action:   "Check on " + st.StudentName,
				Category: "hall_pass",
			})
		case hallpass.AlertYellow:
			alerts = append(alerts, types.ClassroomAlert{
				Type:     "info",
				Priority: "medium",
				Title:    "Monitor Student",
				Message:  fmt.Sprintf("%s out for %d minutes", st.StudentName, st.DurationMinutes),
				Action:   "Monitor return time",
				Category: "hall_pass",
			})
		}
	}
	if participation.Status == types.ParticipationActive && participation.FairnessScore < fairnessAlertThreshold {
		alerts = append(alerts, types.ClassroomAlert{
			Type:     "warning",
			Priority: "medium",
			Title:    "Participation Imbalance",
			Message:  fmt.Sprintf("Fairness score: %.1f%%", participation.FairnessScore),
			Action:   "Consider using random picker",
			Category: "participation",
		})
	}
	return alerts
}
