// Package hallpass models digital hall passes: issue, return, elapsed time
// and the green/yellow/red alert level shown to teachers.
package hallpass

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Pass defaults and limits.
const (
	DefaultExpectedMinutes = 5
	MinExpectedMinutes     = 1
	MaxExpectedMinutes     = 60
	DefaultOverdueGrace    = 5 * time.Minute
	codeLength             = 8
	recentLimit            = 10
)

// AlertLevel grades how late a student is.
type AlertLevel string

// Alert levels.
const (
	AlertGreen  AlertLevel = "green"
	AlertYellow AlertLevel = "yellow"
	AlertRed    AlertLevel = "red"
)

// Pass is one issued hall pass.
type Pass struct {
	ID               string
	ClassID          string
	StudentName      string
	Destination      string
	Notes            string
	IssueTime        time.Time
	ReturnTime       *time.Time
	ExpectedDuration int // minutes
}

// IssueRequest carries the fields a teacher supplies when issuing a pass.
type IssueRequest struct {
	ClassID          string
	StudentName      string
	Destination      string
	Notes            string
	ExpectedDuration int
}

// NewPass validates req and builds a pass issued at now.
func NewPass(req IssueRequest, now time.Time) (Pass, error) {
	student := strings.TrimSpace(req.StudentName)
	destination := strings.TrimSpace(req.Destination)
	switch {
	case student == "":
		return Pass{}, fmt.Errorf("missing student_name: %w", ErrInvalidPass)
	case destination == "":
		return Pass{}, fmt.Errorf("missing destination: %w", ErrInvalidPass)
	}
	expected := req.ExpectedDuration
	if expected == 0 {
		expected = DefaultExpectedMinutes
	}
	if expected < MinExpectedMinutes || expected > MaxExpectedMinutes {
		return Pass{}, fmt.Errorf("expected_duration %d outside %d..%d: %w",
			expected, MinExpectedMinutes, MaxExpectedMinutes, ErrInvalidPass)
	}
	return Pass{
		ID:               NewCode(),
		ClassID:          req.ClassID,
		StudentName:      student,
		Destination:      destination,
		Notes:            strings.TrimSpace(req.Notes),
		IssueTime:        now,
		ExpectedDuration: expected,
	}, nil
}

// NewCode returns an 8 character upper-case pass code.
func NewCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:codeLength])
}

// IsActive reports whether the student has not yet returned.
func (p Pass) IsActive() bool { return p.ReturnTime == nil }

// DurationMinutes is the whole minutes out, up to the return or now.
func (p Pass) DurationMinutes(now time.Time) int {
	end := now
	if p.ReturnTime != nil {
		end = *p.ReturnTime
	}
	d := end.Sub(p.IssueTime)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

func (p Pass) expected() int {
	if p.ExpectedDuration <= 0 {
		return DefaultExpectedMinutes
	}
	return p.ExpectedDuration
}

// IsOverdue reports an active pass past its expected duration.
func (p Pass) IsOverdue(now time.Time) bool {
	return p.IsActive() && p.DurationMinutes(now) > p.expected()
}

// Alert grades the pass: returned passes are green, passes beyond
// expected+grace are red, beyond expected yellow.
func (p Pass) Alert(now time.Time, grace time.Duration) AlertLevel {
	if !p.IsActive() {
		return AlertGreen
	}
	duration := p.DurationMinutes(now)
	expected := p.expected()
	switch {
	case duration > expected+int(grace/time.Minute):
		return AlertRed
	case duration > expected:
		return AlertYellow
	default:
		return AlertGreen
	}
}

// QRPayload is the text a QR renderer would encode for this pass.
func (p Pass) QRPayload() string {
	return fmt.Sprintf("HALL_PASS:%s:%s:%s", p.ID, p.StudentName, p.Destination)
}

// Status is a pass evaluated at a point in time.
type Status struct {
	Pass
	DurationMinutes int
	Alert           AlertLevel
	Overdue         bool
	// AlreadyReturned is set by Manager.Return when an earlier call
	// returned the pass.
	AlreadyReturned bool
}

// Statistics summarises a set of passes.
type Statistics struct {
	TotalToday   int
	ActiveCount  int
	OverdueCount int
	AvgDuration  float64
}

// Summary is the teacher-facing listing of passes.
type Summary struct {
	Active     []Status
	Recent     []Status
	Statistics Statistics
	Alerts     []string
}

// Summarize evaluates passes at now. Active passes are ordered longest out
// first; Recent holds the last ten returned passes, newest return first.
func Summarize(passes []Pass, now time.Time, grace time.Duration) Summary {
	var s Summary
	totalDuration := 0
	for _, p := range passes {
		st := Status{
			Pass:            p,
			DurationMinutes: p.DurationMinutes(now),
			Alert:           p.Alert(now, grace),
			Overdue:         p.IsOverdue(now),
		}
		totalDuration += st.DurationMinutes
		if p.IsActive() {
			s.Active = append(s.Active, st)
			if st.Alert == AlertRed {
				s.Statistics.OverdueCount++
			}
			continue
		}
		s.Recent = append(s.Recent, st)
	}

	sort.SliceStable(s.Active, func(i, j int) bool {
		return s.Active[i].DurationMinutes > s.Active[j].DurationMinutes
	})
	sort.SliceStable(s.Recent, func(i, j int) bool {
		return s.Recent[i].ReturnTime.After(*s.Recent[j].ReturnTime)
	})
	if len(s.Recent) > recentLimit {
		s.Recent = s.Recent[:recentLimit]
	}

	s.Statistics.TotalToday = len(passes)
	s.Statistics.ActiveCount = len(s.Active)
	s.Statistics.AvgDuration = float64(totalDuration) / float64(max(len(passes), 1))
	if s.Statistics.OverdueCount > 0 {
		s.Alerts = append(s.Alerts, fmt.Sprintf("%d pass(es) are overdue", s.Statistics.OverdueCount))
	}
	return s
}
