package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/health-wallet/internal/apperror"
	"github.com/sakif/health-wallet/internal/model"
	"github.com/sakif/health-wallet/internal/repository"
)

// compile-time check that *ShareDB implements repository.ShareRepository
var _ repository.ShareRepository = (*ShareDB)(nil)

// ShareDB is the SQLite-backed share repository.
type ShareDB struct {
	db *DB
}

// Create inserts a share row. The UNIQUE(report_id, viewer_username) index
// turns a repeat grant into apperror.ErrConflict.
func (s *ShareDB) Create(ctx context.Context, share *model.Share) error {
	share.ID = xid.New().String()
	share.CreatedAt = time.Now()
	if share.Role == "" {
		share.Role = model.RoleViewer
	}

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO shares (id, report_id, owner_id, viewer_username, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		share.ID,
		share.ReportID,
		share.OwnerID,
		share.ViewerUsername,
		share.Role,
		share.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("share",
				fmt.Sprintf("report %s is already shared with %q", share.ReportID, share.ViewerUsername))
		}
		return fmt.Errorf("sqlite: creating share: %w", err)
	}

	return nil
}

// DeleteByReportAndViewer removes the share rows matching the pair.
// RowsAffected detects "nothing to revoke": zero rows maps to
// apperror.ErrNotFound, so a second identical revoke correctly 404s.
func (s *ShareDB) DeleteByReportAndViewer(ctx context.Context, reportID, viewerUsername string) error {
	result, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM shares WHERE report_id = ? AND viewer_username = ?`,
		reportID, viewerUsername,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting share for report %s viewer %q: %w", reportID, viewerUsername, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("shared report", reportID)
	}

	return nil
}
