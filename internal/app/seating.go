package service

import (
	"context"
	"fmt"

	"github.com/okian/classroom/internal/config"
	"github.com/okian/classroom/internal/domain/seating"
	"github.com/okian/classroom/internal/domain/types"
	"github.com/okian/classroom/pkg/logger"
)

func buildCharts(cfgs map[string]config.SeatingChart) (map[string]*seating.Chart, error) {
	charts := make(map[string]*seating.Chart, len(cfgs))
	for classID, cc := range cfgs {
		chart, err := seating.NewChart(cc.Title, cc.Rows, cc.Cols, cc.Students)
		if err != nil {
			return nil, fmt.Errorf("seating chart %s: %w: %w", classID, config.ErrInvalidConfig, err)
		}
		if len(cc.Seats) == 0 {
			chart.AutoArrange()
		} else if err := chart.Place(cc.Seats); err != nil {
			return nil, fmt.Errorf("seating chart %s: %w: %w", classID, config.ErrInvalidConfig, err)
		}
		charts[classID] = chart
	}
	return charts, nil
}

func (s *Service) chart(classID string) *seating.Chart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.charts[classID]
}

// SeatingChart returns the seating chart of classID.
func (s *Service) SeatingChart(ctx context.Context, classID string) (types.SeatingChartResponse, error) {
	if err := s.ready(); err != nil {
		return types.SeatingChartResponse{}, err
	}
	chart := s.chart(classID)
	if chart == nil {
		return types.SeatingChartResponse{}, fmt.Errorf("class %s: %w", classID, ErrNoSeatingChart)
	}
	return chartJSON(classID, chart), nil
}

// UpdateSeating moves a student, auto-arranges or clears the chart of
// classID and returns the result.
func (s *Service) UpdateSeating(ctx context.Context, classID string, req types.SeatingAction) (types.SeatingChartResponse, error) {
	if err := s.ready(); err != nil {
		return types.SeatingChartResponse{}, err
	}
	chart := s.chart(classID)
	if chart == nil {
		return types.SeatingChartResponse{}, fmt.Errorf("class %s: %w", classID, ErrNoSeatingChart)
	}

	var message string
	switch req.Action {
	case types.ActionMoveStudent:
		if req.Row == nil || req.Col == nil {
			return types.SeatingChartResponse{}, fmt.Errorf("move needs row and col: %w", seating.ErrInvalidMove)
		}
		pos := seating.Position{Row: *req.Row, Col: *req.Col}
		if err := chart.UpdatePosition(req.StudentName, pos); err != nil {
			return types.SeatingChartResponse{}, err
		}
		message = fmt.Sprintf("Moved %s to (%d, %d)", req.StudentName, pos.Row, pos.Col)
	case types.ActionAutoArrange:
		seated := chart.AutoArrange()
		message = fmt.Sprintf("Auto-arranged %d students", seated)
	case types.ActionClearSeats:
		chart.Clear()
		message = "Cleared all positions"
	default:
		return types.SeatingChartResponse{}, fmt.Errorf("action %q: %w", req.Action, seating.ErrInvalidMove)
	}
	s.logger.Info(ctx, "seating chart updated",
		logger.String("class", classID),
		logger.String("action", req.Action),
	)

	resp := chartJSON(classID, chart)
	resp.Message = message
	return resp, nil
}

func chartJSON(classID string, chart *seating.Chart) types.SeatingChartResponse {
	rows, cols := chart.Size()
	seats := chart.Seats()
	seated := make(map[string]struct{}, len(seats))
	assigned := make([]types.SeatAssignment, len(seats))
	for i, st := range seats {
		assigned[i] = types.SeatAssignment{Row: st.Row, Col: st.Col, Student: st.Student}
		seated[st.Student] = struct{}{}
	}
	empty := chart.EmptyPositions()
	positions := make([]types.DeskPosition, len(empty))
	for i, p := range empty {
		positions[i] = types.DeskPosition{Row: p.Row, Col: p.Col}
	}
	students := chart.Students()
	unseated := make([]string, 0)
	for _, name := range students {
		if _, ok := seated[name]; !ok {
			unseated = append(unseated, name)
		}
	}
	return types.SeatingChartResponse{
		ClassID:        classID,
		Title:          chart.Title(),
		Rows:           rows,
		Cols:           cols,
		Students:       students,
		Seats:          assigned,
		EmptyPositions: positions,
		Unseated:       unseated,
	}
}
