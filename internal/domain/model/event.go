// Package model contains domain models passed between layers.
package model

import "time"

// PickEvent records one selection for the audit trail. The per-day history
// keeps only the newest ten picks per student; the audit log keeps all.
type PickEvent struct {
	EventID       string    // unique id for idempotency
	ClassID       string    // roster the pick was drawn from
	Day           string    // YYYY-MM-DD in the service time zone
	Student       string    // selected student
	FairnessScore float64   // score before the pick was recorded
	TotalStudents int       // roster size at pick time
	TS            time.Time // pick timestamp
}

// Valid reports whether the event carries the fields the audit log needs.
func (e PickEvent) Valid() bool {
	return e.EventID != "" && e.ClassID != "" && e.Day != "" && e.Student != "" && !e.TS.IsZero()
}
