package ctl

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/okian/classroom/internal/domain/types"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

// Printer writes command output, coloured by alert level.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Success prints msg in green with a check mark.
func (p *Printer) Success(format string, a ...any) {
	green.Fprintf(p.out, "✓ "+format+"\n", a...)
}

// Warning prints msg in yellow.
func (p *Printer) Warning(format string, a ...any) {
	yellow.Fprintf(p.out, "! "+format+"\n", a...)
}

// Info prints an uncoloured line.
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}

// Error prints title in red followed by the cause.
func (p *Printer) Error(title string, err error) {
	red.Fprintf(p.out, "%s\n", title)
	if err != nil {
		fmt.Fprintf(p.out, "  %v\n", err)
	}
}

// Pick prints a pick result.
func (p *Printer) Pick(resp types.PickResponse) {
	p.Success("Selected %s", bold.Sprint(resp.Selected))
	p.Info("  students: %d  fairness: %.1f  at: %s", resp.TotalStudents, resp.FairnessScore, resp.Timestamp)
}

// Stats prints picker statistics.
func (p *Printer) Stats(resp types.StatsResponse) {
	cyan.Fprintf(p.out, "%d students, fairness %s\n", resp.TotalStudents, p.score(resp.FairnessScore))
	for _, name := range resp.Students {
		h := resp.PickHistory[name]
		p.Info("  %-24s %3d", name, h.Count)
	}
	if len(resp.SessionPicks) > 0 {
		p.Info("Recent:")
		for _, sp := range resp.SessionPicks {
			p.Info("  %s  %s", sp.Timestamp, sp.Student)
		}
	}
}

// Passes prints a pass listing.
func (p *Printer) Passes(resp types.PassListResponse) {
	st := resp.Statistics
	cyan.Fprintf(p.out, "%d today, %d active, %d overdue, avg %.1f min\n",
		st.TotalToday, st.ActiveCount, st.OverdueCount, st.AvgDuration)
	for _, hp := range resp.ActivePasses {
		p.Info("  %s  %s  %-20s %-12s %d/%d min", levelColor(hp.AlertLevel).Sprint("●"),
			hp.ID, hp.StudentName, hp.Destination, hp.DurationMinutes, hp.ExpectedDuration)
	}
	for _, a := range resp.Alerts {
		p.Warning("%s", a.Message)
	}
}

// Pass prints a single pass after issue or return.
func (p *Printer) Pass(resp types.PassResponse) {
	p.Success("%s", resp.Message)
	hp := resp.Pass
	p.Info("  id: %s  code: %s  student: %s  destination: %s", hp.ID, hp.PassCode, hp.StudentName, hp.Destination)
}

// Simulation prints a simulation summary with a bar per student.
func (p *Printer) Simulation(res SimResult) {
	cyan.Fprintf(p.out, "%d picks, one every %s\n", res.Picks, res.Interval)
	top := 1
	if len(res.Distribution) > 0 && res.Distribution[0].Count > top {
		top = res.Distribution[0].Count
	}
	for _, sc := range res.Distribution {
		bar := strings.Repeat("█", sc.Count*30/top)
		p.Info("  %-12s %4d %s", sc.Name, sc.Count, bar)
	}
	p.Info("fairness: %s  legacy x10: %.1f  legacy x20: %.1f  spread: %d",
		p.score(res.Fairness), res.LegacyFactor10, res.LegacyFactor20, res.Spread)
}

func (p *Printer) score(s float64) string {
	switch {
	case s >= 90:
		return green.Sprintf("%.1f", s)
	case s >= 70:
		return yellow.Sprintf("%.1f", s)
	default:
		return red.Sprintf("%.1f", s)
	}
}

func levelColor(level string) *color.Color {
	switch level {
	case "red":
		return red
	case "yellow":
		return yellow
	default:
		return green
	}
}
