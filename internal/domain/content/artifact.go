// path: internal/domain/content/artifact.go
package content

import (
	"time"

	"github.com/google/uuid"
)

// Form classifies an artifact for cadence planning.
type Form string

const (
	FormShort Form = "short"
	FormLong  Form = "long"
)

// ShortMaxDuration is the boundary between short- and long-form media.
const ShortMaxDuration = 60 * time.Second

// Artifact is a ready-to-publish media unit from inventory, not yet bound to
// a platform. A consumed artifact may not be re-scheduled.
type Artifact struct {
	id         uuid.UUID
	workspaceID uuid.UUID
	sourceName string
	mediaURL   string
	duration   time.Duration
	readyAt    time.Time
	consumedAt *time.Time
}

// NewArtifact registers a ready artifact.
func NewArtifact(workspaceID uuid.UUID, sourceName, mediaURL string, duration time.Duration, readyAt time.Time) (*Artifact, error) {
	if workspaceID == uuid.Nil {
		return nil, ErrInvalidWorkspaceID
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if mediaURL == "" {
		return nil, ErrMissingMediaURL
	}
	return &Artifact{
		id:          uuid.New(),
		workspaceID: workspaceID,
		sourceName:  sourceName,
		mediaURL:    mediaURL,
		duration:    duration,
		readyAt:     readyAt.UTC(),
	}, nil
}

// ReconstructArtifact recreates an artifact from persistence.
func ReconstructArtifact(id, workspaceID uuid.UUID, sourceName, mediaURL string, duration time.Duration, readyAt time.Time, consumedAt *time.Time) *Artifact {
	return &Artifact{
		id:          id,
		workspaceID: workspaceID,
		sourceName:  sourceName,
		mediaURL:    mediaURL,
		duration:    duration,
		readyAt:     readyAt,
		consumedAt:  consumedAt,
	}
}

func (a *Artifact) ID() uuid.UUID          { return a.id }
func (a *Artifact) WorkspaceID() uuid.UUID { return a.workspaceID }
func (a *Artifact) SourceName() string     { return a.sourceName }
func (a *Artifact) MediaURL() string       { return a.mediaURL }
func (a *Artifact) Duration() time.Duration { return a.duration }
func (a *Artifact) ReadyAt() time.Time     { return a.readyAt }
func (a *Artifact) ConsumedAt() *time.Time { return a.consumedAt }

// Form derives short vs long from duration: short iff duration <= 60s.
func (a *Artifact) Form() Form {
	if a.duration <= ShortMaxDuration {
		return FormShort
	}
	return FormLong
}

// IsConsumed reports whether the artifact was already bound to a schedule.
func (a *Artifact) IsConsumed() bool { return a.consumedAt != nil }

// Consume marks the artifact as scheduled. Consuming twice is an error.
func (a *Artifact) Consume(now time.Time) error {
	if a.consumedAt != nil {
		return ErrArtifactConsumed
	}
	t := now.UTC()
	a.consumedAt = &t
	return nil
}
