package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"esports_v1/ingestion/internal/client"
	"esports_v1/ingestion/internal/config"
	"esports_v1/ingestion/internal/metrics"
	"esports_v1/ingestion/internal/predictor"
	"esports_v1/ingestion/internal/syncer"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job names, used as log fields and metric labels
const (
	JobUpcomingSync = "upcoming_sync"
	JobPastSync     = "past_sync"
	JobPlayerSync   = "player_sync"
	JobStatsSync    = "stats_sync"
	JobPredict      = "predict"
)

// Syncer is the part of the sync engine the scheduler drives
type Syncer interface {
	SyncGame(ctx context.Context, req syncer.SyncRequest) (syncer.Result, error)
	SyncPlayers(ctx context.Context, teamLimit int) (syncer.PlayerResult, error)
	SyncMatchStats(ctx context.Context, limit, batchSize int) (syncer.StatsResult, error)
}

// Predictor is the part of the prediction engine the scheduler drives
type Predictor interface {
	PredictUpcoming(ctx context.Context, limit int) (predictor.BatchResult, error)
}

// Scheduler runs the periodic ETL passes for the worker.
// Jobs never overlap: the process is the only writer and every pass runs
// to completion before the next one starts.
type Scheduler struct {
	cfg       *config.Config
	syncer    Syncer
	predictor Predictor
	cron      *cron.Cron
	mu        sync.Mutex
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, s Syncer, p Predictor) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		syncer:    s,
		predictor: p,
		cron:      cron.New(),
	}
}

// Start registers every job and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{JobUpcomingSync, s.cfg.UpcomingSyncCron, s.SyncUpcoming},
		{JobPastSync, s.cfg.PastSyncCron, s.SyncPast},
		{JobPlayerSync, s.cfg.PlayerSyncCron, s.SyncPlayers},
		{JobStatsSync, s.cfg.StatsSyncCron, s.SyncStats},
		{JobPredict, s.cfg.PredictCron, s.Predict},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() { job.run(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
		log.Info().
			Str("job", job.name).
			Str("schedule", job.spec).
			Msg("Job scheduled")
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running job to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	log.Info().Msg("Scheduler stopped")
}

// RunAll runs every pass once in dependency order. The worker uses it for
// the initial sync on startup.
func (s *Scheduler) RunAll(ctx context.Context) {
	s.SyncUpcoming(ctx)
	s.SyncPast(ctx)
	s.SyncPlayers(ctx)
	s.SyncStats(ctx)
	s.Predict(ctx)
}

// SyncUpcoming syncs the upcoming and running windows of every configured game
func (s *Scheduler) SyncUpcoming(ctx context.Context) {
	s.run(ctx, JobUpcomingSync, func(ctx context.Context) error {
		for _, game := range s.cfg.Games {
			for _, window := range []client.Window{client.WindowUpcoming, client.WindowRunning} {
				s.syncGame(ctx, game, window)
			}
		}
		return nil
	})
}

// SyncPast syncs the most recent page of past matches of every configured game
func (s *Scheduler) SyncPast(ctx context.Context) {
	s.run(ctx, JobPastSync, func(ctx context.Context) error {
		for _, game := range s.cfg.Games {
			s.syncGame(ctx, game, client.WindowPast)
		}
		return nil
	})
}

func (s *Scheduler) syncGame(ctx context.Context, game string, window client.Window) {
	res, err := s.syncer.SyncGame(ctx, syncer.SyncRequest{
		GameSlug: game,
		Window:   window,
		Limit:    s.cfg.BatchSize,
		Page:     1,
	})
	if err != nil {
		log.Error().Err(err).Str("game", game).Str("window", string(window)).Msg("Game sync failed")
		return
	}
	if res.FetchErr != nil {
		log.Warn().Err(res.FetchErr).Str("game", game).Str("window", string(window)).Msg("No matches fetched")
	}
}

// SyncPlayers loads rosters for teams without players
func (s *Scheduler) SyncPlayers(ctx context.Context) {
	s.run(ctx, JobPlayerSync, func(ctx context.Context) error {
		_, err := s.syncer.SyncPlayers(ctx, s.cfg.PlayerTeamLimit)
		return err
	})
}

// SyncStats extracts stats for finished matches without them
func (s *Scheduler) SyncStats(ctx context.Context) {
	s.run(ctx, JobStatsSync, func(ctx context.Context) error {
		_, err := s.syncer.SyncMatchStats(ctx, s.cfg.StatsLimit, s.cfg.StatsBatchSize)
		return err
	})
}

// Predict predicts upcoming matches that have no prediction yet
func (s *Scheduler) Predict(ctx context.Context) {
	s.run(ctx, JobPredict, func(ctx context.Context) error {
		_, err := s.predictor.PredictUpcoming(ctx, s.cfg.PredictLimit)
		return err
	})
}

func (s *Scheduler) run(ctx context.Context, name string, fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	log.Info().Str("job", name).Msg("Running job...")

	err := fn(ctx)
	metrics.RecordWorkerJob(name, time.Since(start).Seconds())

	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("Job failed")
		return
	}

	metrics.LastSuccessfulSync.SetToCurrentTime()
	log.Info().
		Str("job", name).
		Dur("duration", time.Since(start)).
		Msg("Job complete")
}
