package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/efb/signals/signals-backend/internal/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultRefreshSchedule rebuilds the cache at the top of every hour
const DefaultRefreshSchedule = "0 * * * *"

// RefreshWorker periodically rebuilds every series, rewrites the cache and notifies
// WebSocket subscribers
type RefreshWorker struct {
	seriesService   *SeriesService
	donationService *DonationService
	publisher       websocket.EventPublisher
	logger          zerolog.Logger
	spec            string
	schedule        cron.Schedule
	cron            *cron.Cron
	runOnStart      bool
	runMu           sync.Mutex
	mu              sync.Mutex
	running         bool
}

// RefreshWorkerConfig holds configuration for the refresh worker
type RefreshWorkerConfig struct {
	Schedule   string // standard 5-field cron spec
	RunOnStart bool
}

// DefaultRefreshWorkerConfig returns sensible defaults
func DefaultRefreshWorkerConfig() RefreshWorkerConfig {
	return RefreshWorkerConfig{
		Schedule:   DefaultRefreshSchedule,
		RunOnStart: true,
	}
}

// NewRefreshWorker creates a new refresh worker. donationService and publisher may be nil.
func NewRefreshWorker(
	seriesService *SeriesService,
	donationService *DonationService,
	publisher websocket.EventPublisher,
	logger zerolog.Logger,
	config RefreshWorkerConfig,
) (*RefreshWorker, error) {
	if config.Schedule == "" {
		config.Schedule = DefaultRefreshSchedule
	}
	schedule, err := cron.ParseStandard(config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", config.Schedule, err)
	}
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}

	return &RefreshWorker{
		seriesService:   seriesService,
		donationService: donationService,
		publisher:       publisher,
		logger:          logger.With().Str("component", "refresh_worker").Logger(),
		spec:            config.Schedule,
		schedule:        schedule,
		runOnStart:      config.RunOnStart,
	}, nil
}

// Start schedules refresh runs until Stop is called or ctx is cancelled
func (w *RefreshWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.cron = cron.New()
	w.cron.Schedule(w.schedule, cron.FuncJob(func() { w.RunOnce(ctx) }))
	w.cron.Start()
	w.mu.Unlock()

	w.logger.Info().
		Str("schedule", w.spec).
		Time("next_run", w.schedule.Next(time.Now())).
		Msg("Starting refresh worker")

	if w.runOnStart {
		go w.RunOnce(ctx)
	}

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
}

// Stop gracefully stops the worker, waiting for a run in progress
func (w *RefreshWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	c := w.cron
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping refresh worker")
	<-c.Stop().Done()
	w.logger.Info().Msg("Refresh worker stopped")
}

// IsRunning returns whether the worker is currently scheduled
func (w *RefreshWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce refreshes every series and the donation report. Runs never overlap.
func (w *RefreshWorker) RunOnce(ctx context.Context) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	startTime := time.Now()
	result := w.seriesService.Refresh(ctx)

	failed := make(map[string]string, len(result.Failed))
	for id, err := range result.Failed {
		failed[id] = err.Error()
		w.logger.Warn().Err(err).Str("series", id).Msg("Failed to refresh series")
	}

	w.publisher.Publish(websocket.SeriesRefreshed(map[string]interface{}{
		"refreshed": result.Refreshed,
		"failed":    failed,
	}))
	if len(failed) > 0 {
		w.publisher.Publish(websocket.SeriesFailed(map[string]interface{}{
			"failed": failed,
		}))
	}

	w.refreshDonations(ctx)

	w.logger.Info().
		Int("refreshed", len(result.Refreshed)).
		Int("failed", len(result.Failed)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Completed refresh run")
}

func (w *RefreshWorker) refreshDonations(ctx context.Context) {
	if w.donationService == nil {
		return
	}

	report, err := w.donationService.GetReport(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to refresh donations")
		return
	}

	s := report.Summary
	w.publisher.Publish(websocket.DonationsRefreshed(map[string]interface{}{
		"totalDonations":  s.TotalDonations,
		"totalAmountEGP":  s.TotalAmountEGP.InexactFloat64(),
		"totalAmountUSD":  s.TotalAmountUSD.InexactFloat64(),
		"averageDonation": s.AverageDonation.InexactFloat64(),
	}))
}
