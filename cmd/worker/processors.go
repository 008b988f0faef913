// ============================================================================
// FILE: cmd/worker/processors.go
// PURPOSE: Ticker-driven processors wrapping the engine workers
// ============================================================================

package main

import (
	"context"
	"time"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	apppeople "github.com/IsaiahDupree/mediaposter/internal/application/people"
	"github.com/IsaiahDupree/mediaposter/internal/checkback"
	"github.com/IsaiahDupree/mediaposter/internal/dispatcher"
)

// tickLoop runs fn on an interval until the context ends or stop closes.
func tickLoop(ctx context.Context, stop <-chan struct{}, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run once on startup so a restart doesn't wait a full interval.
	fn(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// DispatchProcessor drives the publish dispatcher.
type DispatchProcessor struct {
	dispatcher *dispatcher.Dispatcher
	logger     common.Logger
	interval   time.Duration
	stopChan   chan struct{}
}

func NewDispatchProcessor(d *dispatcher.Dispatcher, logger common.Logger, interval time.Duration) *DispatchProcessor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &DispatchProcessor{dispatcher: d, logger: logger, interval: interval, stopChan: make(chan struct{})}
}

func (p *DispatchProcessor) Name() string { return "DispatchProcessor" }

func (p *DispatchProcessor) Run(ctx context.Context) error {
	p.logger.Info("dispatch loop started", "interval", p.interval)
	tickLoop(ctx, p.stopChan, p.interval, func(ctx context.Context) {
		if _, err := p.dispatcher.Tick(ctx); err != nil {
			p.logger.Error("dispatch tick failed", "error", err)
		}
	})
	return nil
}

func (p *DispatchProcessor) Stop(ctx context.Context) error {
	close(p.stopChan)
	return nil
}

// ReaperProcessor reclaims expired leases.
type ReaperProcessor struct {
	reaper   *dispatcher.Reaper
	logger   common.Logger
	interval time.Duration
	stopChan chan struct{}
}

func NewReaperProcessor(r *dispatcher.Reaper, logger common.Logger, interval time.Duration) *ReaperProcessor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReaperProcessor{reaper: r, logger: logger, interval: interval, stopChan: make(chan struct{})}
}

func (p *ReaperProcessor) Name() string { return "ReaperProcessor" }

func (p *ReaperProcessor) Run(ctx context.Context) error {
	p.logger.Info("lease reaper started", "interval", p.interval)
	tickLoop(ctx, p.stopChan, p.interval, func(ctx context.Context) {
		if _, err := p.reaper.Sweep(ctx); err != nil {
			p.logger.Error("reaper sweep failed", "error", err)
		}
	})
	return nil
}

func (p *ReaperProcessor) Stop(ctx context.Context) error {
	close(p.stopChan)
	return nil
}

// CheckbackProcessor fires due metric-pull jobs.
type CheckbackProcessor struct {
	worker   *checkback.Worker
	logger   common.Logger
	interval time.Duration
	stopChan chan struct{}
}

func NewCheckbackProcessor(w *checkback.Worker, logger common.Logger, interval time.Duration) *CheckbackProcessor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CheckbackProcessor{worker: w, logger: logger, interval: interval, stopChan: make(chan struct{})}
}

func (p *CheckbackProcessor) Name() string { return "CheckbackProcessor" }

func (p *CheckbackProcessor) Run(ctx context.Context) error {
	p.logger.Info("checkback poller started", "interval", p.interval)
	tickLoop(ctx, p.stopChan, p.interval, func(ctx context.Context) {
		if _, err := p.worker.Tick(ctx); err != nil {
			p.logger.Error("checkback tick failed", "error", err)
		}
	})
	return nil
}

func (p *CheckbackProcessor) Stop(ctx context.Context) error {
	close(p.stopChan)
	return nil
}

// LensSweepProcessor periodically recomputes lenses for active people.
type LensSweepProcessor struct {
	people   *apppeople.Service
	logger   common.Logger
	interval time.Duration
	stopChan chan struct{}
}

func NewLensSweepProcessor(s *apppeople.Service, logger common.Logger, interval time.Duration) *LensSweepProcessor {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &LensSweepProcessor{people: s, logger: logger, interval: interval, stopChan: make(chan struct{})}
}

func (p *LensSweepProcessor) Name() string { return "LensSweepProcessor" }

func (p *LensSweepProcessor) Run(ctx context.Context) error {
	p.logger.Info("lens sweep started", "interval", p.interval)
	tickLoop(ctx, p.stopChan, p.interval, func(ctx context.Context) {
		if _, err := p.people.RecomputeAllActive(ctx); err != nil {
			p.logger.Error("lens sweep failed", "error", err)
		}
	})
	return nil
}

func (p *LensSweepProcessor) Stop(ctx context.Context) error {
	close(p.stopChan)
	return nil
}
