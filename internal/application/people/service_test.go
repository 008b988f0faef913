// path: internal/application/people/service_test.go
package people

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/domain/people"
	"github.com/IsaiahDupree/mediaposter/internal/infrastructure/services"
)

// memPeople mirrors the unique-index semantics of the GORM repository: one
// person per (channel, handle), last_seen touched on every resolve.
type memPeople struct {
	mu         sync.Mutex
	persons    map[uuid.UUID]*people.Person
	identities map[string]*people.Identity // key channel|handle
	events     []*people.Event
	insights   map[uuid.UUID]*people.Insight
}

func newMemPeople() *memPeople {
	return &memPeople{
		persons:    map[uuid.UUID]*people.Person{},
		identities: map[string]*people.Identity{},
		insights:   map[uuid.UUID]*people.Insight{},
	}
}

func idKey(channel, handle string) string { return channel + "|" + handle }

func (m *memPeople) ResolveOrCreate(ctx context.Context, workspaceID uuid.UUID, channel, handle string, fullName *string, now time.Time) (*people.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if identity, ok := m.identities[idKey(channel, handle)]; ok {
		identity.LastSeenAt = now
		return m.persons[identity.PersonID], nil
	}

	person := &people.Person{ID: uuid.New(), WorkspaceID: workspaceID, FullName: fullName, CreatedAt: now, UpdatedAt: now}
	m.persons[person.ID] = person
	m.identities[idKey(channel, handle)] = &people.Identity{
		ID: uuid.New(), PersonID: person.ID, Channel: channel, Handle: handle,
		FirstSeenAt: now, LastSeenAt: now,
	}
	m.insights[person.ID] = people.NewInsight(person.ID, now)
	return person, nil
}

func (m *memPeople) FindByID(ctx context.Context, id uuid.UUID) (*people.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[id]
	if !ok {
		return nil, people.ErrPersonNotFound
	}
	out := *p
	for _, identity := range m.identities {
		if identity.PersonID == id {
			out.Identities = append(out.Identities, *identity)
		}
	}
	return &out, nil
}

func (m *memPeople) InsertEvent(ctx context.Context, e *people.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memPeople) EventsSince(ctx context.Context, personID uuid.UUID, since time.Time) ([]*people.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*people.Event, 0)
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if e.PersonID == personID && !e.OccurredAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memPeople) ActivePersonIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	out := make([]uuid.UUID, 0)
	for _, e := range m.events {
		if !e.OccurredAt.Before(since) && !seen[e.PersonID] {
			seen[e.PersonID] = true
			out = append(out, e.PersonID)
		}
	}
	return out, nil
}

func (m *memPeople) GetInsight(ctx context.Context, personID uuid.UUID) (*people.Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.insights[personID]
	if !ok {
		return nil, people.ErrInsightNotFound
	}
	return in, nil
}

func (m *memPeople) SaveInsight(ctx context.Context, insight *people.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights[insight.PersonID] = insight
	return nil
}

func (m *memPeople) TouchInsight(ctx context.Context, personID uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in, ok := m.insights[personID]; ok {
		in.Touch(now)
	}
	return nil
}

func newTestService() (*Service, *memPeople, *clock.Fake) {
	repo := newMemPeople()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(repo, nopLogger{}, clk, services.NewEngineMetrics(prometheus.NewRegistry()), 90)
	return svc, repo, clk
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...interface{}) {}
func (nopLogger) Info(msg string, fields ...interface{})  {}
func (nopLogger) Warn(msg string, fields ...interface{})  {}
func (nopLogger) Error(msg string, fields ...interface{}) {}

func TestIngestEvent_CreatesPersonAndEvent(t *testing.T) {
	svc, repo, _ := newTestService()
	ws := uuid.New()

	res, err := svc.IngestEvent(context.Background(), &IngestRequest{
		WorkspaceID: ws,
		Channel:     "instagram",
		Handle:      "@alice",
		EventType:   people.EventCommented,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.PersonID)
	assert.Len(t, repo.events, 1)
	assert.Equal(t, "organic", repo.events[0].TrafficType)

	insight, err := svc.GetInsights(context.Background(), res.PersonID)
	require.NoError(t, err)
	assert.Equal(t, people.StateActive, insight.ActivityState)
}

func TestIngestEvent_SameHandleResolvesToOnePerson(t *testing.T) {
	svc, repo, _ := newTestService()
	ws := uuid.New()

	req := &IngestRequest{
		WorkspaceID: ws, Channel: "instagram", Handle: "@alice",
		EventType: people.EventCommented,
	}
	first, err := svc.IngestEvent(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.IngestEvent(context.Background(), req)
	require.NoError(t, err)

	// One person, one identity, two events.
	assert.Equal(t, first.PersonID, second.PersonID)
	assert.Len(t, repo.persons, 1)
	assert.Len(t, repo.identities, 1)
	assert.Len(t, repo.events, 2)
}

func TestIngestEvent_DistinctChannelsAreDistinctPeople(t *testing.T) {
	svc, repo, _ := newTestService()
	ws := uuid.New()

	a, err := svc.IngestEvent(context.Background(), &IngestRequest{
		WorkspaceID: ws, Channel: "instagram", Handle: "@alice", EventType: people.EventLiked,
	})
	require.NoError(t, err)
	b, err := svc.IngestEvent(context.Background(), &IngestRequest{
		WorkspaceID: ws, Channel: "tiktok", Handle: "@alice", EventType: people.EventLiked,
	})
	require.NoError(t, err)

	assert.NotEqual(t, a.PersonID, b.PersonID)
	assert.Len(t, repo.persons, 2)
}

func TestIngestEvent_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ws := uuid.New()

	_, err := svc.IngestEvent(context.Background(), &IngestRequest{WorkspaceID: ws, Handle: "@a", EventType: people.EventLiked})
	assert.Error(t, err)
	_, err = svc.IngestEvent(context.Background(), &IngestRequest{WorkspaceID: ws, Channel: "x", EventType: people.EventLiked})
	assert.Error(t, err)
	_, err = svc.IngestEvent(context.Background(), &IngestRequest{WorkspaceID: ws, Channel: "x", Handle: "@a", EventType: "poked"})
	assert.Error(t, err)
}

func TestRecomputeLens_UpdatesInsight(t *testing.T) {
	svc, _, clk := newTestService()
	ws := uuid.New()

	excerpt := "love the travel editing in this one"
	res, err := svc.IngestEvent(context.Background(), &IngestRequest{
		WorkspaceID: ws, Channel: "instagram", Handle: "@bob",
		EventType: people.EventCommented, ContentExcerpt: &excerpt,
	})
	require.NoError(t, err)

	clk.Advance(24 * time.Hour)
	insight, err := svc.RecomputeLens(context.Background(), res.PersonID)
	require.NoError(t, err)
	assert.Equal(t, people.StateActive, insight.ActivityState)
	assert.Greater(t, insight.WarmthScore, 0.0)
	assert.Contains(t, insight.Interests, "travel")
	assert.InDelta(t, 1.0, insight.ChannelPreferences["instagram"], 0.0001)
}

func TestRecomputeAllActive_SweepsEveryone(t *testing.T) {
	svc, _, _ := newTestService()
	ws := uuid.New()

	for _, handle := range []string{"@a", "@b", "@c"} {
		_, err := svc.IngestEvent(context.Background(), &IngestRequest{
			WorkspaceID: ws, Channel: "tiktok", Handle: handle, EventType: people.EventLiked,
		})
		require.NoError(t, err)
	}

	res, err := svc.RecomputeAllActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)
}

func TestIngestComment_FeedsGraph(t *testing.T) {
	svc, repo, _ := newTestService()
	ws := uuid.New()

	err := svc.IngestComment(context.Background(), ws, "instagram", "@carol", "great edit", "ig-777", "organic")
	require.NoError(t, err)

	require.Len(t, repo.events, 1)
	e := repo.events[0]
	assert.Equal(t, people.EventCommented, e.EventType)
	require.NotNil(t, e.ContentExcerpt)
	assert.Equal(t, "great edit", *e.ContentExcerpt)
	require.NotNil(t, e.PlatformID)
	assert.Equal(t, "ig-777", *e.PlatformID)
}
