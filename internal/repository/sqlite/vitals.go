package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/health-wallet/internal/model"
	"github.com/sakif/health-wallet/internal/repository"
)

// compile-time check that *VitalsDB implements repository.VitalsRepository
var _ repository.VitalsRepository = (*VitalsDB)(nil)

// VitalsDB is the SQLite-backed vitals repository.
type VitalsDB struct {
	db *DB
}

// Create appends a vitals sample. Samples are never updated or deleted.
func (v *VitalsDB) Create(ctx context.Context, sample *model.VitalsSample) error {
	sample.ID = xid.New().String()
	sample.CreatedAt = time.Now()

	_, err := v.db.conn.ExecContext(ctx,
		`INSERT INTO vitals (id, user_id, date, systolic, diastolic, heart_rate, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sample.ID,
		sample.UserID,
		sample.Date,
		sample.Systolic,
		sample.Diastolic,
		sample.HeartRate,
		sample.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating vitals sample: %w", err)
	}

	return nil
}

// ListByUser returns the user's samples oldest-first — trend charts read
// chronologically, the inverse of report ordering. id ASC breaks same-date
// ties in insertion order (xid is time-sortable).
func (v *VitalsDB) ListByUser(ctx context.Context, userID string) ([]model.VitalsSample, error) {
	rows, err := v.db.conn.QueryContext(ctx,
		`SELECT id, user_id, date, systolic, diastolic, heart_rate, created_at
		 FROM vitals
		 WHERE user_id = ?
		 ORDER BY date ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing vitals for user %s: %w", userID, err)
	}
	defer rows.Close()

	samples := make([]model.VitalsSample, 0)
	for rows.Next() {
		var s model.VitalsSample
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Date,
			&s.Systolic, &s.Diastolic, &s.HeartRate,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vitals row: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating vitals: %w", err)
	}

	return samples, nil
}
