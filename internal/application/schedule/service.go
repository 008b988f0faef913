// path: internal/application/schedule/service.go
package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/config"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/domain/queue"
	"github.com/IsaiahDupree/mediaposter/internal/scheduler"
)

// PlanWriter materializes plan bindings and evicts queued items ahead of a
// force reschedule. Each binding lands in its own transaction.
type PlanWriter interface {
	Materialize(ctx context.Context, item *content.Item, variant *content.Variant, queueItem *queue.Item, artifactID uuid.UUID, consumedAt time.Time) error
	EvictQueued(ctx context.Context, workspaceID uuid.UUID, from, to time.Time, now time.Time) (int, error)
}

// Service implements the Scheduler API: inventory, plan, and materialized
// auto-scheduling.
type Service struct {
	scanner *scheduler.Scanner
	queue   queue.Repository
	plans   PlanWriter
	lock    common.AdvisoryLock
	logger  common.Logger
	clk     clock.Clock
	cfg     config.SchedulerConfig
}

// NewService creates the scheduling service.
func NewService(
	scanner *scheduler.Scanner,
	q queue.Repository,
	plans PlanWriter,
	lock common.AdvisoryLock,
	logger common.Logger,
	clk clock.Clock,
	cfg config.SchedulerConfig,
) *Service {
	return &Service{
		scanner: scanner,
		queue:   q,
		plans:   plans,
		lock:    lock,
		logger:  logger,
		clk:     clk,
		cfg:     cfg,
	}
}

// GetInventory returns the classified ready inventory for a workspace.
func (s *Service) GetInventory(ctx context.Context, workspaceID uuid.UUID) (*InventoryResponse, error) {
	inv, err := s.scanner.Scan(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return &InventoryResponse{
		Short: toFormInventory(inv.Short),
		Long:  toFormInventory(inv.Long),
		Total: inv.Total(),
	}, nil
}

// GetPlan computes the current plan without materializing anything.
func (s *Service) GetPlan(ctx context.Context, workspaceID uuid.UUID) (*PlanResponse, error) {
	inv, err := s.scanner.Scan(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	plan, err := scheduler.Compute(inv, s.plannerConfig(nil), s.clk.Now())
	if err != nil {
		return nil, err
	}
	return toPlanResponse(plan), nil
}

// UpdateOnNewContent fills schedule gaps after fresh artifacts arrive; it is
// a non-forced AutoSchedule.
func (s *Service) UpdateOnNewContent(ctx context.Context, workspaceID uuid.UUID) (*UpdateResponse, error) {
	res, err := s.AutoSchedule(ctx, workspaceID, &AutoScheduleRequest{})
	if err != nil {
		return nil, err
	}
	return &UpdateResponse{Rescheduled: res.Created}, nil
}

func (s *Service) plannerConfig(req *AutoScheduleRequest) scheduler.Config {
	cfg := scheduler.Config{
		HorizonMonths:  s.cfg.HorizonMonths,
		MinPerDayShort: s.cfg.MinPerDayShort,
		MaxPerDayShort: s.cfg.MaxPerDayShort,
		MinPerDayLong:   s.cfg.MinPerDayLong,
		MaxPerDayLong:   s.cfg.MaxPerDayLong,
		PreferredHours:  s.cfg.PreferredHours,
		PlatformWindows: s.cfg.PlatformWindows,
	}
	for _, p := range s.cfg.Platforms {
		cfg.Platforms = append(cfg.Platforms, content.Platform(p))
	}
	if req == nil {
		return cfg
	}
	cfg.ForceReschedule = req.ForceReschedule
	if len(req.Platforms) > 0 {
		cfg.Platforms = req.Platforms
	}
	if len(req.PreferredHours) > 0 {
		cfg.PreferredHours = req.PreferredHours
	}
	if req.HorizonMonths > 0 {
		cfg.HorizonMonths = req.HorizonMonths
	}
	return cfg
}

func toFormInventory(artifacts []*content.Artifact) FormInventory {
	items := make([]ArtifactView, 0, len(artifacts))
	for _, a := range artifacts {
		items = append(items, ArtifactView{
			ID:         a.ID(),
			SourceName: a.SourceName(),
			DurationS:  a.Duration().Seconds(),
			Form:       string(a.Form()),
			ReadyAt:    a.ReadyAt(),
		})
	}
	return FormInventory{Count: len(items), Items: items}
}

func toPlanResponse(plan *scheduler.Plan) *PlanResponse {
	resp := &PlanResponse{
		HorizonStart:     plan.HorizonStart,
		HorizonDays:      plan.HorizonDays,
		RateShort:        plan.RateShort,
		RateLong:         plan.RateLong,
		CanExtendHorizon: plan.CanExtendHorizon,
	}
	for _, b := range plan.Bindings {
		resp.Slots = append(resp.Slots, PlanSlotView{
			Day:      int(b.At.Sub(plan.HorizonStart).Hours() / 24),
			At:       b.At,
			Form:     string(b.Artifact.Form()),
			Platform: b.Platform,
		})
	}
	return resp
}
