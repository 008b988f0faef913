// ============================================================================
// FILE: internal/infrastructure/persistence/people_repository.go
// PURPOSE: People graph persistence over GORM
// ============================================================================
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IsaiahDupree/mediaposter/internal/domain/people"
)

type PeopleRepository struct {
	db *gorm.DB
}

func NewPeopleRepository(db *gorm.DB) *PeopleRepository {
	return &PeopleRepository{db: db}
}

// ResolveOrCreate finds or creates the person behind (channel, handle). Two
// concurrent ingests of a brand-new handle race on the identity unique
// index; the loser re-reads and attaches to the winner's person.
func (r *PeopleRepository) ResolveOrCreate(ctx context.Context, workspaceID uuid.UUID, channel, handle string, fullName *string, now time.Time) (*people.Person, error) {
	now = now.UTC()

	person, err := r.findByIdentity(ctx, channel, handle, now)
	if err == nil {
		return person, nil
	}
	if !errors.Is(err, people.ErrPersonNotFound) {
		return nil, err
	}

	person = &people.Person{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		FullName:    fullName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	identity := &people.Identity{
		ID:          uuid.New(),
		PersonID:    person.ID,
		Channel:     channel,
		Handle:      handle,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	insight := people.NewInsight(person.ID, now)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(person).Error; err != nil {
			return err
		}
		if err := tx.Create(identity).Error; err != nil {
			return err
		}
		return tx.Create(insight).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			// Lost the race: the identity now exists, resolve through it.
			return r.findByIdentity(ctx, channel, handle, now)
		}
		return nil, fmt.Errorf("failed to create person: %w", err)
	}
	return person, nil
}

func (r *PeopleRepository) findByIdentity(ctx context.Context, channel, handle string, now time.Time) (*people.Person, error) {
	var identity people.Identity
	err := r.db.WithContext(ctx).
		Where("channel = ? AND handle = ?", channel, handle).
		First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, people.ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Model(&people.Identity{}).
		Where("id = ?", identity.ID).
		Update("last_seen_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to touch identity: %w", err)
	}

	var person people.Person
	if err := r.db.WithContext(ctx).First(&person, "id = ?", identity.PersonID).Error; err != nil {
		return nil, fmt.Errorf("failed to load person: %w", err)
	}
	return &person, nil
}

func (r *PeopleRepository) FindByID(ctx context.Context, id uuid.UUID) (*people.Person, error) {
	var person people.Person
	err := r.db.WithContext(ctx).
		Preload("Identities").
		First(&person, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, people.ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load person: %w", err)
	}
	return &person, nil
}

func (r *PeopleRepository) InsertEvent(ctx context.Context, e *people.Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to insert person event: %w", err)
	}
	return nil
}

func (r *PeopleRepository) EventsSince(ctx context.Context, personID uuid.UUID, since time.Time) ([]*people.Event, error) {
	var events []*people.Event
	err := r.db.WithContext(ctx).
		Where("person_id = ? AND occurred_at >= ?", personID, since).
		Order("occurred_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return events, nil
}

func (r *PeopleRepository) ActivePersonIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&people.Event{}).
		Where("occurred_at >= ?", since).
		Distinct("person_id").
		Pluck("person_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active people: %w", err)
	}
	return ids, nil
}

func (r *PeopleRepository) GetInsight(ctx context.Context, personID uuid.UUID) (*people.Insight, error) {
	var insight people.Insight
	err := r.db.WithContext(ctx).First(&insight, "person_id = ?", personID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, people.ErrInsightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load insight: %w", err)
	}
	return &insight, nil
}

func (r *PeopleRepository) SaveInsight(ctx context.Context, insight *people.Insight) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "person_id"}},
			UpdateAll: true,
		}).
		Create(insight).Error
	if err != nil {
		return fmt.Errorf("failed to save insight: %w", err)
	}
	return nil
}

func (r *PeopleRepository) TouchInsight(ctx context.Context, personID uuid.UUID, now time.Time) error {
	now = now.UTC()
	err := r.db.WithContext(ctx).
		Model(&people.Insight{}).
		Where("person_id = ?", personID).
		Updates(map[string]interface{}{
			"last_active_at": now,
			"activity_state": string(people.StateActive),
			"updated_at":     now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to touch insight: %w", err)
	}
	return nil
}
