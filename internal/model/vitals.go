package model

import "time"

// VitalsSample is one dated blood-pressure + heart-rate reading.
//
// Samples are append-only: created by their owning user, never mutated.
// The trend chart reads them oldest-first, so listing is ascending by date —
// the inverse of report ordering, intentionally.
type VitalsSample struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Date      string    `json:"date"      db:"date"`
	Systolic  int       `json:"systolic"  db:"systolic"`
	Diastolic int       `json:"diastolic" db:"diastolic"`
	HeartRate int       `json:"heart_rate" db:"heart_rate"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
