// Package jobs runs the background maintenance tasks (cron).
package jobs

import (
	"context"
	"fmt"
	"time"

	"prize-scratch-engine/internal/core/ports"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RTPAuditor recomputes per-product payout totals from the game ledger and
// compares them against the live product accumulators. The ledger is the
// source of truth; a mismatch means a stats row drifted and needs operator
// attention.
type RTPAuditor struct {
	productRepo ports.ProductRepository
	gameRepo    ports.GameRepository
	log         zerolog.Logger
}

// NewRTPAuditor creates a new RTPAuditor.
func NewRTPAuditor(productRepo ports.ProductRepository, gameRepo ports.GameRepository, log zerolog.Logger) *RTPAuditor {
	return &RTPAuditor{
		productRepo: productRepo,
		gameRepo:    gameRepo,
		log:         log,
	}
}

// Run sweeps every active product once. A failing product is logged and
// skipped so one bad row never blocks the rest of the sweep.
func (a *RTPAuditor) Run(ctx context.Context) error {
	products, err := a.productRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing active products: %w", err)
	}

	var drifted int
	for i := range products {
		p := &products[i]

		agg, err := a.gameRepo.AggregateByProduct(ctx, p.ID)
		if err != nil {
			a.log.Error().Err(err).Str("product_id", p.ID.String()).Msg("rtp audit: aggregate failed")
			continue
		}

		ledgerRevenue := agg.Games * p.Price
		if agg.AmountWon != p.TotalPayouts || ledgerRevenue != p.TotalRevenue || agg.Games != p.TotalGamesPlayed {
			drifted++
			a.log.Warn().
				Str("product_id", p.ID.String()).
				Int64("ledger_games", agg.Games).
				Int64("stats_games", p.TotalGamesPlayed).
				Int64("ledger_revenue", ledgerRevenue).
				Int64("stats_revenue", p.TotalRevenue).
				Int64("ledger_payouts", agg.AmountWon).
				Int64("stats_payouts", p.TotalPayouts).
				Msg("rtp audit: product stats drifted from game ledger")
		}
	}

	a.log.Info().
		Int("products", len(products)).
		Int("drifted", drifted).
		Msg("rtp audit sweep finished")
	return nil
}

// Scheduler owns the cron runner for background jobs.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewScheduler creates a scheduler. Schedules run in UTC.
func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		log:  log,
	}
}

// AddJob registers fn under the given cron spec. Each invocation gets a
// bounded context so a stuck job cannot hang the runner forever.
func (s *Scheduler) AddJob(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("background job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling job %s: %w", name, err)
	}
	return nil
}

// Start launches the cron runner.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("job scheduler started")
}

// Stop halts the runner and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("job scheduler stopped")
}
