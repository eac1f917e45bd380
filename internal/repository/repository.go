// Package repository defines the persistence interfaces the service layer
// programs against. The sqlite subpackage implements them; tests use
// hand-written in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/health-wallet/internal/model"
)

// ReportFilter narrows ListByOwner. Empty fields mean "no filter";
// non-empty fields are exact matches.
type ReportFilter struct {
	Type string
	Date string
}

type UserRepository interface {
	// Create inserts a new user. A username collision returns an error
	// wrapping apperror.ErrConflict.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type ReportRepository interface {
	Create(ctx context.Context, report *model.Report) error
	GetByID(ctx context.Context, id string) (*model.Report, error)
	// ListByOwner returns the owner's reports ordered by date descending,
	// ties newest-first.
	ListByOwner(ctx context.Context, ownerID string, filter ReportFilter) ([]model.Report, error)
	// ListSharedWith returns reports a viewer was granted access to, each
	// augmented with the owner's username. Dangling shares produce no rows.
	ListSharedWith(ctx context.Context, viewerUsername string) ([]model.SharedReport, error)
	// DeleteCascade removes the report row and every share referencing it in
	// one transaction.
	DeleteCascade(ctx context.Context, id string) error
}

type ShareRepository interface {
	// Create inserts a share. A duplicate (report, viewer) pair returns an
	// error wrapping apperror.ErrConflict.
	Create(ctx context.Context, share *model.Share) error
	// DeleteByReportAndViewer removes the share rows matching the pair.
	// Zero rows affected returns an error wrapping apperror.ErrNotFound.
	DeleteByReportAndViewer(ctx context.Context, reportID, viewerUsername string) error
}

type VitalsRepository interface {
	Create(ctx context.Context, sample *model.VitalsSample) error
	// ListByUser returns the user's samples ordered by date ascending,
	// ties oldest-first.
	ListByUser(ctx context.Context, userID string) ([]model.VitalsSample, error)
}
