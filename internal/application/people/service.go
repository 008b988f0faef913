// path: internal/application/people/service.go
package people

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/domain/people"
	"github.com/IsaiahDupree/mediaposter/internal/infrastructure/services"
	"github.com/IsaiahDupree/mediaposter/internal/lens"
)

// IngestRequest is one engagement observation entering the graph.
type IngestRequest struct {
	WorkspaceID    uuid.UUID         `json:"workspace_id" validate:"required"`
	Channel        string            `json:"channel" validate:"required"`
	Handle         string            `json:"handle" validate:"required"`
	EventType      people.EventType  `json:"event_type" validate:"required"`
	FullName       *string           `json:"full_name,omitempty"`
	PlatformID     *string           `json:"platform_id,omitempty"`
	ContentExcerpt *string           `json:"content_excerpt,omitempty"`
	TrafficType    string            `json:"traffic_type,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// IngestResponse identifies the resolved person and stored event.
type IngestResponse struct {
	PersonID uuid.UUID `json:"person_id"`
	EventID  uuid.UUID `json:"event_id"`
}

// RecomputeResponse reports a lens recompute.
type RecomputeResponse struct {
	Updated int `json:"updated"`
}

// Service implements the People API: ingestion, lookup, and lens recompute.
type Service struct {
	repo       people.Repository
	logger     common.Logger
	clk        clock.Clock
	metrics    *services.EngineMetrics
	windowDays int
}

// NewService creates the people service.
func NewService(repo people.Repository, logger common.Logger, clk clock.Clock, metrics *services.EngineMetrics, windowDays int) *Service {
	if windowDays <= 0 {
		windowDays = lens.WindowDays
	}
	return &Service{
		repo:       repo,
		logger:     logger,
		clk:        clk,
		metrics:    metrics,
		windowDays: windowDays,
	}
}

// IngestEvent resolves the identity, appends the event, and nudges the
// insight. Safe under concurrent ingestion of the same handle.
func (s *Service) IngestEvent(ctx context.Context, req *IngestRequest) (*IngestResponse, error) {
	if req.Channel == "" {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRequest, people.ErrInvalidChannel)
	}
	if req.Handle == "" {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRequest, people.ErrInvalidHandle)
	}
	if !people.IsValidEventType(req.EventType) {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRequest, people.ErrInvalidEventType)
	}

	now := s.clk.Now()
	person, err := s.repo.ResolveOrCreate(ctx, req.WorkspaceID, req.Channel, req.Handle, req.FullName, now)
	if err != nil {
		return nil, err
	}

	trafficType := req.TrafficType
	if trafficType == "" {
		trafficType = "organic"
	}

	event := &people.Event{
		ID:             uuid.New(),
		PersonID:       person.ID,
		Channel:        req.Channel,
		EventType:      req.EventType,
		PlatformID:     req.PlatformID,
		ContentExcerpt: req.ContentExcerpt,
		TrafficType:    trafficType,
		OccurredAt:     now,
		Metadata:       req.Metadata,
	}
	if err := s.repo.InsertEvent(ctx, event); err != nil {
		return nil, err
	}

	if err := s.repo.TouchInsight(ctx, person.ID, now); err != nil {
		s.logger.Warn("touching insight after ingest", "person_id", person.ID, "error", err)
	}

	s.metrics.EventsIngested.WithLabelValues(string(req.EventType)).Inc()
	return &IngestResponse{PersonID: person.ID, EventID: event.ID}, nil
}

// GetPerson returns a person with their identities.
func (s *Service) GetPerson(ctx context.Context, id uuid.UUID) (*people.Person, error) {
	person, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, people.ErrPersonNotFound) {
			return nil, fmt.Errorf("%w: person %s", common.ErrNotFound, id)
		}
		return nil, err
	}
	return person, nil
}

// GetInsights returns the derived lens for a person.
func (s *Service) GetInsights(ctx context.Context, personID uuid.UUID) (*people.Insight, error) {
	insight, err := s.repo.GetInsight(ctx, personID)
	if err != nil {
		if errors.Is(err, people.ErrInsightNotFound) {
			return nil, fmt.Errorf("%w: insight for person %s", common.ErrNotFound, personID)
		}
		return nil, err
	}
	return insight, nil
}

// RecomputeLens rebuilds one person's lens from the sliding window.
func (s *Service) RecomputeLens(ctx context.Context, personID uuid.UUID) (*people.Insight, error) {
	now := s.clk.Now()
	since := now.AddDate(0, 0, -s.windowDays)

	events, err := s.repo.EventsSince(ctx, personID, since)
	if err != nil {
		return nil, err
	}

	insight := lens.ComputeInsight(events, now)
	if insight == nil {
		// Nothing in the window; the stored lens keeps its last state.
		return s.GetInsights(ctx, personID)
	}
	insight.PersonID = personID

	if err := s.repo.SaveInsight(ctx, insight); err != nil {
		return nil, err
	}
	s.metrics.LensRecomputes.Inc()
	s.logger.Info("lens recomputed",
		"person_id", personID, "state", insight.ActivityState,
		"warmth", insight.WarmthScore)
	return insight, nil
}

// RecomputeAllActive rebuilds the lens for every person with events in the
// window. One person failing never stops the sweep.
func (s *Service) RecomputeAllActive(ctx context.Context) (*RecomputeResponse, error) {
	since := s.clk.Now().AddDate(0, 0, -s.windowDays)
	ids, err := s.repo.ActivePersonIDs(ctx, since)
	if err != nil {
		return nil, err
	}

	updated := 0
	for _, id := range ids {
		if _, err := s.RecomputeLens(ctx, id); err != nil {
			s.logger.Error("lens recompute failed", "person_id", id, "error", err)
			continue
		}
		updated++
	}

	s.logger.Info("lens sweep complete", "active", len(ids), "updated", updated)
	return &RecomputeResponse{Updated: updated}, nil
}

// IngestComment converts one platform comment into a commented event; the
// checkback worker feeds these from adapter.FetchComments.
func (s *Service) IngestComment(ctx context.Context, workspaceID uuid.UUID, channel, handle, text, platformPostID string, trafficType string) error {
	excerpt := text
	req := &IngestRequest{
		WorkspaceID:    workspaceID,
		Channel:        channel,
		Handle:         handle,
		EventType:      people.EventCommented,
		ContentExcerpt: &excerpt,
		PlatformID:     &platformPostID,
		TrafficType:    trafficType,
	}
	_, err := s.IngestEvent(ctx, req)
	return err
}
