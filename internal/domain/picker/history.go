// Package picker implements fair random student selection: inverse-frequency
// and recency weighting, a weighted draw, bounded per-day pick history and a
// variance-derived fairness score.
//
// Everything except Engine is a pure function over caller-supplied snapshots;
// persistence and write serialisation belong to the HistoryStore.
package picker

import (
	"sort"
	"time"
)

// MaxRecentPicks bounds StudentRecord.RecentPicks; older picks are evicted first.
const MaxRecentPicks = 10

// StudentRecord is one student's pick record for a single day.
type StudentRecord struct {
	Count       int
	LastPicked  *time.Time
	RecentPicks []time.Time
}

// PickHistory maps student name to that student's record for one day.
type PickHistory map[string]StudentRecord

// Clone returns a deep copy of h. A nil history clones to an empty one.
func (h PickHistory) Clone() PickHistory {
	out := make(PickHistory, len(h))
	for name, rec := range h {
		out[name] = rec.clone()
	}
	return out
}

func (r StudentRecord) clone() StudentRecord {
	c := StudentRecord{Count: r.Count}
	if r.LastPicked != nil {
		t := *r.LastPicked
		c.LastPicked = &t
	}
	if r.RecentPicks != nil {
		c.RecentPicks = append([]time.Time(nil), r.RecentPicks...)
	}
	return c
}

// Counts returns the pick counts of every student in h, in name order.
func (h PickHistory) Counts() []int {
	names := h.names()
	counts := make([]int, len(names))
	for i, name := range names {
		counts[i] = max(h[name].Count, 0)
	}
	return counts
}

// TotalPicks sums all counts in h.
func (h PickHistory) TotalPicks() int {
	total := 0
	for _, rec := range h {
		total += max(rec.Count, 0)
	}
	return total
}

func (h PickHistory) names() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecordPick returns a copy of history with one pick of student at now applied:
// the record is created if absent, Count is incremented, LastPicked set and now
// appended to RecentPicks (trimmed to the newest MaxRecentPicks).
//
// It must be called exactly once per Select outcome to keep counts accurate.
func RecordPick(history PickHistory, student string, now time.Time) PickHistory {
	out := history.Clone()
	rec := out[student]
	if rec.Count < 0 {
		rec.Count = 0
	}
	rec.Count++
	t := now
	rec.LastPicked = &t
	rec.RecentPicks = append(rec.RecentPicks, now)
	if n := len(rec.RecentPicks); n > MaxRecentPicks {
		rec.RecentPicks = append([]time.Time(nil), rec.RecentPicks[n-MaxRecentPicks:]...)
	}
	out[student] = rec
	return out
}

// SessionPick is a single recorded pick.
type SessionPick struct {
	Student   string
	Timestamp time.Time
}

// SessionPicks lists every pick in history newer than now-window, newest first.
// Only the bounded RecentPicks log is consulted.
func SessionPicks(history PickHistory, now time.Time, window time.Duration) []SessionPick {
	cutoff := now.Add(-window)
	var picks []SessionPick
	for name, rec := range history {
		for _, ts := range rec.RecentPicks {
			if ts.After(cutoff) && !ts.After(now) {
				picks = append(picks, SessionPick{Student: name, Timestamp: ts})
			}
		}
	}
	sort.Slice(picks, func(i, j int) bool {
		if !picks[i].Timestamp.Equal(picks[j].Timestamp) {
			return picks[i].Timestamp.After(picks[j].Timestamp)
		}
		return picks[i].Student < picks[j].Student
	})
	return picks
}

// LeastPicked returns up to n roster members ordered by ascending pick count,
// ties kept in roster order.
func LeastPicked(roster []string, history PickHistory, n int) []string {
	if n <= 0 || len(roster) == 0 {
		return nil
	}
	ordered := append([]string(nil), roster...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return max(history[ordered[i]].Count, 0) < max(history[ordered[j]].Count, 0)
	})
	if n > len(ordered) {
		n = len(ordered)
	}
	return ordered[:n]
}
