// ============================================================================
// FILE: internal/infrastructure/persistence/checkback_repository.go
// PURPOSE: Durable checkback job persistence with skip-locked firing
// ============================================================================
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/metrics"
)

type CheckbackRepository struct {
	db *sql.DB
}

func NewCheckbackRepository(db *sql.DB) *CheckbackRepository {
	return &CheckbackRepository{db: db}
}

const checkbackColumns = `
	id, variant_id, offset_hours, fire_at, status, attempt_count,
	last_error, fired_at, created_at, updated_at
`

// CreateForPublish inserts one pending job per offset. ON CONFLICT DO
// NOTHING on the (variant_id, offset_hours) unique index makes replays
// idempotent.
func (r *CheckbackRepository) CreateForPublish(ctx context.Context, variantID uuid.UUID, publishedAt time.Time, offsetsHours []int, now time.Time) (int, error) {
	created := 0
	err := InTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, offset := range offsetsHours {
			job := metrics.NewCheckbackJob(variantID, publishedAt, offset, now)
			res, err := tx.ExecContext(ctx, `
				INSERT INTO checkback_jobs (`+checkbackColumns+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
				ON CONFLICT (variant_id, offset_hours) DO NOTHING
			`,
				job.ID, job.VariantID, job.OffsetHours, job.FireAt, string(job.Status),
				job.AttemptCount, nullString(strPtrOrNil(job.LastError)),
				nullTime(job.FiredAt), job.CreatedAt, job.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert checkback job: %w", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				created++
			}
		}
		return nil
	})
	return created, err
}

// LeaseDue fires due pending jobs under the same skip-locked protocol as the
// publish queue.
func (r *CheckbackRepository) LeaseDue(ctx context.Context, n int, now time.Time) ([]*metrics.CheckbackJob, error) {
	var jobs []*metrics.CheckbackJob
	err := InTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			UPDATE checkback_jobs SET
				status = 'fired',
				fired_at = $1,
				updated_at = $1
			WHERE id IN (
				SELECT id FROM checkback_jobs
				WHERE status = 'pending' AND fire_at <= $1
				ORDER BY fire_at ASC, id ASC
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			)
			RETURNING `+checkbackColumns,
			now, n,
		)
		if err != nil {
			return fmt.Errorf("failed to lease due checkbacks: %w", err)
		}
		defer rows.Close()
		jobs, err = scanCheckbackJobs(rows)
		return err
	})
	return jobs, err
}

func (r *CheckbackRepository) Complete(ctx context.Context, id uuid.UUID, status metrics.JobStatus, attemptCount int, lastError string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE checkback_jobs SET
			status = $1, attempt_count = $2, last_error = $3, updated_at = $4
		WHERE id = $5 AND status = 'fired'
	`, string(status), attemptCount, nullString(strPtrOrNil(lastError)), now, id)
	if err != nil {
		return fmt.Errorf("failed to complete checkback job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return metrics.ErrJobNotFound
	}
	return nil
}

func (r *CheckbackRepository) Requeue(ctx context.Context, id uuid.UUID, attemptCount int, lastError string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE checkback_jobs SET
			status = 'pending', attempt_count = $1, last_error = $2, updated_at = $3
		WHERE id = $4 AND status = 'fired'
	`, attemptCount, nullString(strPtrOrNil(lastError)), now, id)
	if err != nil {
		return fmt.Errorf("failed to requeue checkback job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return metrics.ErrJobNotFound
	}
	return nil
}

func (r *CheckbackRepository) SkipPendingForVariant(ctx context.Context, variantID uuid.UUID, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE checkback_jobs SET status = 'skipped', updated_at = $1
		WHERE variant_id = $2 AND status = 'pending'
	`, now, variantID)
	if err != nil {
		return 0, fmt.Errorf("failed to skip checkback jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *CheckbackRepository) FindByVariant(ctx context.Context, variantID uuid.UUID) ([]*metrics.CheckbackJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+checkbackColumns+` FROM checkback_jobs
		WHERE variant_id = $1 ORDER BY offset_hours ASC
	`, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkback jobs: %w", err)
	}
	defer rows.Close()
	return scanCheckbackJobs(rows)
}

func scanCheckbackJobs(rows *sql.Rows) ([]*metrics.CheckbackJob, error) {
	jobs := make([]*metrics.CheckbackJob, 0)
	for rows.Next() {
		var (
			job       metrics.CheckbackJob
			status    string
			lastError sql.NullString
			firedAt   sql.NullTime
		)
		err := rows.Scan(
			&job.ID, &job.VariantID, &job.OffsetHours, &job.FireAt, &status,
			&job.AttemptCount, &lastError, &firedAt, &job.CreatedAt, &job.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		job.Status = metrics.JobStatus(status)
		job.LastError = lastError.String
		job.FiredAt = timePtr(firedAt)
		j := job
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}
