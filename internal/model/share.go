package model

import "time"

// RoleViewer is the only share role currently issued. The column exists so
// richer roles (e.g. a future "editor") don't need a migration.
const RoleViewer = "viewer"

// Share grants a named viewer read access to one report.
//
// Invariant: OwnerID always equals the owning report's OwnerID at creation
// time — shares are created only by the report's owner, never transferred.
// The (ReportID, ViewerUsername) pair is unique: sharing the same report with
// the same viewer twice is a conflict, not a second grant.
type Share struct {
	ID             string    `json:"id"             db:"id"`
	ReportID       string    `json:"reportId"       db:"report_id"`
	OwnerID        string    `json:"ownerId"        db:"owner_id"`
	ViewerUsername string    `json:"viewerUsername" db:"viewer_username"`
	Role           string    `json:"role"           db:"role"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
}
