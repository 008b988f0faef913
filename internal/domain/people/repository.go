// path: internal/domain/people/repository.go
package people

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines people-graph persistence. ResolveOrCreate must be safe
// under concurrent ingestion of the same (channel, handle): the unique index
// decides the winner and the loser re-reads.
type Repository interface {
	// ResolveOrCreate finds the person behind (channel, handle), creating
	// person + identity + bootstrap insight when absent. Touches
	// identity.last_seen_at either way.
	ResolveOrCreate(ctx context.Context, workspaceID uuid.UUID, channel, handle string, fullName *string, now time.Time) (*Person, error)

	FindByID(ctx context.Context, id uuid.UUID) (*Person, error)

	InsertEvent(ctx context.Context, e *Event) error

	// EventsSince returns a person's events in [since, now], newest first.
	EventsSince(ctx context.Context, personID uuid.UUID, since time.Time) ([]*Event, error)

	// ActivePersonIDs lists distinct person ids with events since the cutoff.
	ActivePersonIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error)

	GetInsight(ctx context.Context, personID uuid.UUID) (*Insight, error)
	SaveInsight(ctx context.Context, insight *Insight) error

	// TouchInsight nudges last_active_at/state on ingestion.
	TouchInsight(ctx context.Context, personID uuid.UUID, now time.Time) error
}
