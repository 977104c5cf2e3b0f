// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rameshwar8767/shopfusion/internal/logging"
)

// Trainer retrains recommendation models for every tenant with data.
// Satisfied by *recommend.Engine.
type Trainer interface {
	TrainAll(ctx context.Context) error
}

// TrainerService periodically retrains all tenant models. A zero interval
// disables the ticker, leaving training entirely to the HTTP endpoint.
type TrainerService struct {
	trainer   Trainer
	interval  time.Duration
	onStartup bool
}

// NewTrainerService creates the scheduled training service.
func NewTrainerService(trainer Trainer, interval time.Duration, onStartup bool) *TrainerService {
	return &TrainerService{
		trainer:   trainer,
		interval:  interval,
		onStartup: onStartup,
	}
}

// Serve implements suture.Service. Training failures are logged, not
// returned, so one bad tenant dataset cannot put the service in backoff.
func (s *TrainerService) Serve(ctx context.Context) error {
	logger := logging.With().Str("component", "trainer-service").Logger()

	if s.onStartup {
		s.run(ctx, logger.With().Str("trigger", "startup").Logger())
	}

	if s.interval <= 0 {
		logger.Info().Msg("Scheduled training disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logger.Info().Dur("interval", s.interval).Msg("Scheduled training enabled")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx, logger.With().Str("trigger", "schedule").Logger())
		}
	}
}

func (s *TrainerService) run(ctx context.Context, logger zerolog.Logger) {
	start := time.Now()
	if err := s.trainer.TrainAll(ctx); err != nil {
		logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Training pass finished with errors")
		return
	}
	logger.Info().Dur("duration", time.Since(start)).Msg("Training pass completed")
}

// String identifies the service in supervision logs.
func (s *TrainerService) String() string {
	return "training-scheduler"
}
