package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/health-wallet/internal/apperror"
	"github.com/sakif/health-wallet/internal/model"
	"github.com/sakif/health-wallet/internal/repository"
)

// compile-time check that *ReportDB implements repository.ReportRepository
var _ repository.ReportRepository = (*ReportDB)(nil)

// ReportDB is the SQLite-backed report repository.
type ReportDB struct {
	db *DB
}

// Create inserts a new report row. ID and CreatedAt are generated here and
// written back into the struct (pointer receiver, same as the rest of the
// repositories).
func (r *ReportDB) Create(ctx context.Context, report *model.Report) error {
	report.ID = xid.New().String()
	report.CreatedAt = time.Now()

	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO reports (id, filename, type, date, vitals, owner_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.Filename,
		report.Type,
		report.Date,
		report.Vitals,
		report.OwnerID,
		report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating report: %w", err)
	}

	return nil
}

// GetByID retrieves a single report by its ID.
// Returns apperror.ErrNotFound if the report doesn't exist.
func (r *ReportDB) GetByID(ctx context.Context, id string) (*model.Report, error) {
	var rep model.Report

	err := r.db.conn.QueryRowContext(ctx,
		`SELECT id, filename, type, date, vitals, owner_id, created_at
		 FROM reports WHERE id = ?`,
		id,
	).Scan(
		&rep.ID,
		&rep.Filename,
		&rep.Type,
		&rep.Date,
		&rep.Vitals,
		&rep.OwnerID,
		&rep.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("report", id)
		}
		return nil, fmt.Errorf("sqlite: getting report %s: %w", id, err)
	}

	return &rep, nil
}

// ListByOwner returns the owner's reports, optionally narrowed by exact type
// and/or date match.
//
// Ordering: date DESC, then id DESC. xid values sort by creation time, so
// id DESC breaks same-date ties newest-insert-first.
func (r *ReportDB) ListByOwner(ctx context.Context, ownerID string, filter repository.ReportFilter) ([]model.Report, error) {
	query := `SELECT id, filename, type, date, vitals, owner_id, created_at
		 FROM reports WHERE owner_id = ?`
	args := []any{ownerID}

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Date != "" {
		query += ` AND date = ?`
		args = append(args, filter.Date)
	}

	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reports for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	reports := make([]model.Report, 0)
	for rows.Next() {
		var rep model.Report
		if err := rows.Scan(
			&rep.ID, &rep.Filename, &rep.Type, &rep.Date,
			&rep.Vitals, &rep.OwnerID, &rep.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning report row: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reports: %w", err)
	}

	return reports, nil
}

// ListSharedWith returns every report shared with the given viewer, joined
// with the owner's username.
//
// The INNER JOINs double as the defensive read the consistency model needs:
// a share whose report has been deleted simply matches no row, so dangling
// shares (from data predating the cascade) can never surface here.
func (r *ReportDB) ListSharedWith(ctx context.Context, viewerUsername string) ([]model.SharedReport, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT r.id, r.filename, r.type, r.date, r.vitals, r.owner_id, r.created_at,
		        u.username AS owner_name
		 FROM reports r
		 JOIN shares s ON r.id = s.report_id
		 JOIN users u ON r.owner_id = u.id
		 WHERE s.viewer_username = ?
		 ORDER BY s.id`,
		viewerUsername,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reports shared with %q: %w", viewerUsername, err)
	}
	defer rows.Close()

	shared := make([]model.SharedReport, 0)
	for rows.Next() {
		var sr model.SharedReport
		if err := rows.Scan(
			&sr.ID, &sr.Filename, &sr.Type, &sr.Date,
			&sr.Vitals, &sr.OwnerID, &sr.CreatedAt,
			&sr.OwnerName,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning shared report row: %w", err)
		}
		shared = append(shared, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating shared reports: %w", err)
	}

	return shared, nil
}

// DeleteCascade removes a report and all shares referencing it in a single
// transaction. Either both disappear or neither does — a reader can never
// observe a share pointing at a deleted report.
//
// Returns apperror.ErrNotFound if the report row doesn't exist. Share order
// matters inside the transaction: shares carry a foreign key to reports, so
// they go first.
func (r *ReportDB) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM shares WHERE report_id = ?`, id,
	); err != nil {
		return fmt.Errorf("sqlite: deleting shares for report %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM reports WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting report %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("report", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing report delete: %w", err)
	}

	return nil
}
