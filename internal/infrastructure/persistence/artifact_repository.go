// ============================================================================
// FILE: internal/infrastructure/persistence/artifact_repository.go
// PURPOSE: Inventory artifact persistence
// ============================================================================
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

type ArtifactRepository struct {
	db *sql.DB
}

func NewArtifactRepository(db *sql.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

const artifactColumns = `
	id, workspace_id, source_name, media_url, duration_s, ready_at, consumed_at
`

func (r *ArtifactRepository) Create(ctx context.Context, a *content.Artifact) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO artifacts (`+artifactColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		a.ID(), a.WorkspaceID(), a.SourceName(), a.MediaURL(),
		a.Duration().Seconds(), a.ReadyAt(), nullTime(a.ConsumedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	return nil
}

func (r *ArtifactRepository) FindByID(ctx context.Context, id uuid.UUID) (*content.Artifact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = $1`, id)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, content.ErrArtifactNotFound
	}
	return a, err
}

func (r *ArtifactRepository) FindReady(ctx context.Context, workspaceID uuid.UUID) ([]*content.Artifact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+artifactColumns+` FROM artifacts
		WHERE workspace_id = $1 AND consumed_at IS NULL
		ORDER BY ready_at ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan inventory: %w", err)
	}
	defer rows.Close()

	artifacts := make([]*content.Artifact, 0)
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// MarkConsumed guards against double-consumption: the WHERE clause only
// matches unconsumed rows.
func (r *ArtifactRepository) MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE artifacts SET consumed_at = $1 WHERE id = $2 AND consumed_at IS NULL
	`, at, id)
	if err != nil {
		return fmt.Errorf("failed to consume artifact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return content.ErrArtifactConsumed
	}
	return nil
}

func scanArtifact(row rowScanner) (*content.Artifact, error) {
	var (
		id, workspaceID      uuid.UUID
		sourceName, mediaURL string
		durationS            float64
		readyAt              time.Time
		consumedAt           sql.NullTime
	)
	err := row.Scan(&id, &workspaceID, &sourceName, &mediaURL, &durationS, &readyAt, &consumedAt)
	if err != nil {
		return nil, err
	}
	return content.ReconstructArtifact(
		id, workspaceID, sourceName, mediaURL,
		time.Duration(durationS*float64(time.Second)), readyAt, timePtr(consumedAt),
	), nil
}
