package model

import "time"

// Report types commonly uploaded. The Type field is an open string — these
// constants cover the UI's dropdown, but any value is accepted and stored.
const (
	ReportTypeLab          = "Lab Report"
	ReportTypePrescription = "Prescription"
	ReportTypeImaging      = "Imaging"
	ReportTypeTest         = "Test Report"
)

// Report represents an uploaded medical document record.
//
// Filename is the opaque stored name under the upload directory, not the name
// the user's file had on their machine. Date is kept as an ISO "YYYY-MM-DD"
// string: the API filters on exact date match and sorts lexicographically,
// which for ISO dates is chronological order — same behavior, no parsing.
//
// OwnerID is fixed for the report's lifetime. There is no ownership transfer.
type Report struct {
	ID        string    `json:"id"        db:"id"`
	Filename  string    `json:"filename"  db:"filename"`
	Type      string    `json:"type"      db:"type"`
	Date      string    `json:"date"      db:"date"`
	Vitals    string    `json:"vitals"    db:"vitals"` // free-text annotation, may be empty
	OwnerID   string    `json:"ownerId"   db:"owner_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// SharedReport is a report as seen by a viewer it was shared with,
// augmented with the owning user's username for display.
type SharedReport struct {
	Report
	OwnerName string `json:"ownerName" db:"owner_name"`
}
