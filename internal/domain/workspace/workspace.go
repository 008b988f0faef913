// path: internal/domain/workspace/workspace.go
package workspace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("workspace not found")
	ErrInvalidName = errors.New("workspace name is required")
	ErrInvalidSlug = errors.New("workspace slug is invalid")
)

// Workspace is the ownership root: it owns content items, artifacts, and
// people. Scheduler runs are serialized per workspace.
type Workspace struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Slug      string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Workspace) TableName() string { return "workspaces" }

// New creates a workspace with a slug derived from the name.
func New(name string, now time.Time) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	slug := Slugify(name)
	if slug == "" {
		return nil, ErrInvalidSlug
	}
	now = now.UTC()
	return &Workspace{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Slugify lowercases and dash-joins the name, dropping anything that is not
// alphanumeric.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// Repository defines workspace persistence.
type Repository interface {
	Create(ctx context.Context, w *Workspace) error
	FindByID(ctx context.Context, id uuid.UUID) (*Workspace, error)
	FindBySlug(ctx context.Context, slug string) (*Workspace, error)
}
