package picker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// naiveLayouts are accepted for timestamps written without a zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// wireRecord is the stored shape of a StudentRecord.
type wireRecord struct {
	Count       json.RawMessage `json:"count"`
	LastPicked  json.RawMessage `json:"last_picked"`
	Picks       json.RawMessage `json:"picks"`
	RecentPicks json.RawMessage `json:"recent_picks"`
}

type storedRecord struct {
	Count      int      `json:"count"`
	LastPicked *string  `json:"last_picked,omitempty"`
	Picks      []string `json:"picks"`
}

// MarshalJSON writes the stored shape: count, RFC 3339 last_picked, picks.
func (r StudentRecord) MarshalJSON() ([]byte, error) {
	out := storedRecord{Count: max(r.Count, 0), Picks: make([]string, 0, len(r.RecentPicks))}
	if r.LastPicked != nil {
		s := r.LastPicked.Format(time.RFC3339Nano)
		out.LastPicked = &s
	}
	for _, ts := range r.RecentPicks {
		out.Picks = append(out.Picks, ts.Format(time.RFC3339Nano))
	}
	return json.Marshal(out)
}

// UnmarshalJSON never fails: history is untrusted and may be partially
// written, so unreadable counts decode as 0 and unreadable timestamps as
// "never picked".
func (r *StudentRecord) UnmarshalJSON(data []byte) error {
	*r = StudentRecord{}
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return nil
	}
	r.Count = decodeCount(w.Count)
	r.LastPicked = decodeTime(w.LastPicked)

	picks := w.Picks
	if len(bytes.TrimSpace(picks)) == 0 || bytes.Equal(bytes.TrimSpace(picks), []byte("null")) {
		picks = w.RecentPicks
	}
	r.RecentPicks = decodeTimes(picks)
	return nil
}

// EncodeHistory serialises history for storage.
func EncodeHistory(history PickHistory) ([]byte, error) {
	if history == nil {
		history = PickHistory{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return data, nil
}

// DecodeHistory parses stored history. Empty input is an empty history.
// Only a payload that is not a JSON object is reported, as ErrCorruptHistory;
// individual bad records decode leniently.
func DecodeHistory(data []byte) (PickHistory, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return PickHistory{}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return PickHistory{}, fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	history := make(PickHistory, len(raw))
	for name, msg := range raw {
		var rec StudentRecord
		_ = rec.UnmarshalJSON(msg)
		history[name] = rec
	}
	return history, nil
}

func decodeCount(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

func decodeTime(raw json.RawMessage) *time.Time {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		// Unix seconds; zero means never picked.
		if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		sec, frac := math.Modf(f)
		t := time.Unix(int64(sec), int64(frac*float64(time.Second)))
		return &t
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	t, ok := parseTimestamp(s)
	if !ok {
		return nil
	}
	return &t
}

func decodeTimes(raw json.RawMessage) []time.Time {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []time.Time
	for _, item := range items {
		if t := decodeTime(item); t != nil {
			out = append(out, *t)
		}
	}
	if len(out) > MaxRecentPicks {
		out = out[len(out)-MaxRecentPicks:]
	}
	return out
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
