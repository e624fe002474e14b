// Package types contains the JSON shapes shared by the HTTP API, the
// service and the command line client.
package types

import (
	"math"
	"strings"
	"time"
)

// DefaultClassID is used when a request names no class.
const DefaultClassID = "default"

// TimestampLayout formats every timestamp in responses.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// ActionResetHistory is the picker POST action that clears today's history.
const ActionResetHistory = "reset_history"

// ClassID normalises a requested class id.
func ClassID(raw string) string {
	if id := strings.TrimSpace(raw); id != "" {
		return id
	}
	return DefaultClassID
}

// FormatTime renders t with TimestampLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FormatTimePtr renders t, or returns nil when t is nil.
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// UnixSeconds returns t as fractional unix seconds, or nil when t is nil.
func UnixSeconds(t *time.Time) *float64 {
	if t == nil {
		return nil
	}
	s := float64(t.UnixNano()) / float64(time.Second)
	return &s
}

// RoundWeight rounds a selection weight to two decimals.
func RoundWeight(w float64) float64 {
	return math.Round(w*100) / 100
}

// PickerAction is the optional body of POST /random-picker.
type PickerAction struct {
	Action string `json:"action"`
}

// PickResponse is returned for a successful pick.
type PickResponse struct {
	Success          bool               `json:"success"`
	Selected         string             `json:"selected"`
	Timestamp        string             `json:"timestamp"`
	FairnessScore    float64            `json:"fairness_score"`
	TotalStudents    int                `json:"total_students"`
	SelectionWeights map[string]float64 `json:"selection_weights"`
}

// MessageResponse acknowledges an action that has no other payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StudentHistory is one student's entry in StatsResponse.PickHistory.
type StudentHistory struct {
	Count       int      `json:"count"`
	LastPicked  *float64 `json:"last_picked"`
	RecentPicks []string `json:"recent_picks"`
}

// SessionPick is one pick made in the current session window.
type SessionPick struct {
	Student   string `json:"student"`
	Timestamp string `json:"timestamp"`
}

// StatsResponse is the picker statistics object.
type StatsResponse struct {
	TotalStudents int                       `json:"total_students"`
	Students      []string                  `json:"students"`
	PickHistory   map[string]StudentHistory `json:"pick_history"`
	FairnessScore float64                   `json:"fairness_score"`
	SessionPicks  []SessionPick             `json:"session_picks"`
}

// AuditEntry is one audited pick.
type AuditEntry struct {
	EventID       string  `json:"event_id"`
	Student       string  `json:"student"`
	Timestamp     string  `json:"timestamp"`
	FairnessScore float64 `json:"fairness_score"`
	TotalStudents int     `json:"total_students"`
}

// AuditResponse lists a day's audited picks for a class.
type AuditResponse struct {
	ClassID string       `json:"class"`
	Day     string       `json:"day"`
	Count   int          `json:"count"`
	Picks   []AuditEntry `json:"picks"`
}

// IssuePassRequest is the body of POST /hall-pass-manager.
type IssuePassRequest struct {
	StudentName      string `json:"student_name"`
	Destination      string `json:"destination"`
	ExpectedDuration int    `json:"expected_duration"`
	Notes            string `json:"notes"`
}

// ReturnPassRequest is the body of POST /return-pass.
type ReturnPassRequest struct {
	PassID string `json:"pass_id"`
}

// HallPass is a pass as seen at response time.
type HallPass struct {
	ID               string  `json:"id"`
	PassCode         string  `json:"pass_code"`
	ClassID          string  `json:"class"`
	StudentName      string  `json:"student_name"`
	Destination      string  `json:"destination"`
	Notes            string  `json:"notes"`
	IssueTime        string  `json:"issue_time"`
	ReturnTime       *string `json:"return_time"`
	ExpectedDuration int     `json:"expected_duration"`
	DurationMinutes  int     `json:"duration_minutes"`
	AlertLevel       string  `json:"alert_level"`
	IsActive         bool    `json:"is_active"`
	IsOverdue        bool    `json:"is_overdue"`
	QRPayload        string  `json:"qr_payload"`
}

// PassResponse is returned when a pass is issued or returned.
type PassResponse struct {
	Success bool     `json:"success"`
	Pass    HallPass `json:"pass"`
	Message string   `json:"message"`
}

// PassStatistics summarises today's passes.
type PassStatistics struct {
	TotalToday   int     `json:"total_today"`
	ActiveCount  int     `json:"active_count"`
	OverdueCount int     `json:"overdue_count"`
	AvgDuration  float64 `json:"avg_duration"`
}

// Alert is a short notice attached to a pass listing.
type Alert struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PassListResponse is the hall pass listing.
type PassListResponse struct {
	ActivePasses []HallPass     `json:"active_passes"`
	RecentPasses []HallPass     `json:"recent_passes"`
	Statistics   PassStatistics `json:"statistics"`
	Alerts       []Alert        `json:"alerts"`
}

// StudentCount pairs a student with a pick count.
type StudentCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Participation statuses.
const (
	ParticipationNoData = "no_data"
	ParticipationActive = "active"
)

// Participation summarises today's picks for the dashboard.
type Participation struct {
	Status              string         `json:"status"`
	TotalPicks          int            `json:"total_picks"`
	StudentsPickedToday int            `json:"students_picked_today"`
	FairnessScore       float64        `json:"fairness_score"`
	MostPicked          *StudentCount  `json:"most_picked"`
	LeastPicked         []string       `json:"least_picked"`
	Distribution        map[string]int `json:"distribution"`
}

// HallPassOverview is the dashboard's hall pass panel.
type HallPassOverview struct {
	Active     int        `json:"active"`
	Overdue    int        `json:"overdue"`
	TotalToday int        `json:"total_today"`
	Passes     []HallPass `json:"passes"`
}

// QuickStats are the headline numbers of the dashboard.
type QuickStats struct {
	ActivePasses        int     `json:"active_passes"`
	OverduePasses       int     `json:"overdue_passes"`
	StudentsPickedToday int     `json:"students_picked_today"`
	FairnessScore       float64 `json:"fairness_score"`
}

// ClassroomAlert is a dashboard notice for the teacher.
type ClassroomAlert struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Action   string `json:"action"`
	Category string `json:"category"`
}

// DashboardResponse aggregates participation and hall passes for a class.
type DashboardResponse struct {
	ClassID       string           `json:"class"`
	HallPasses    HallPassOverview `json:"hall_passes"`
	Participation Participation    `json:"participation"`
	Alerts        []ClassroomAlert `json:"alerts"`
	QuickStats    QuickStats       `json:"quick_stats"`
	GeneratedAt   string           `json:"generated_at"`
}

// Actions of POST /seating-chart.
const (
	ActionMoveStudent = "move"
	ActionAutoArrange = "auto_arrange"
	ActionClearSeats  = "clear"
)

// SeatingAction is the body of POST /seating-chart. Row and Col are
// required for ActionMoveStudent.
type SeatingAction struct {
	Action      string `json:"action"`
	StudentName string `json:"student_name,omitempty"`
	Row         *int   `json:"row,omitempty"`
	Col         *int   `json:"col,omitempty"`
}

// DeskPosition is a zero-indexed desk, row 0 at the front.
type DeskPosition struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// SeatAssignment is an occupied desk.
type SeatAssignment struct {
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Student string `json:"student"`
}

// SeatingChartResponse is a class's seating chart.
type SeatingChartResponse struct {
	ClassID        string           `json:"class"`
	Title          string           `json:"title"`
	Rows           int              `json:"rows"`
	Cols           int              `json:"cols"`
	Students       []string         `json:"students"`
	Seats          []SeatAssignment `json:"seats"`
	EmptyPositions []DeskPosition   `json:"empty_positions"`
	Unseated       []string         `json:"unseated"`
	Message        string           `json:"message,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
