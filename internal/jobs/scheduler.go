package jobs

import (
	"context"
	"time"

	"quest_webapp/internal/http/middleware"
	"quest_webapp/internal/logger"
	"quest_webapp/internal/progression"
	"quest_webapp/internal/repository"

	"github.com/robfig/cron/v3"
)

// Scheduler runs background maintenance: a nightly state audit and a
// periodic sweep of idle rate limiter windows.
type Scheduler struct {
	cron    *cron.Cron
	users   *repository.UserRepository
	limiter *progression.RateLimiter
}

func NewScheduler(users *repository.UserRepository, limiter *progression.RateLimiter) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		users:   users,
		limiter: limiter,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 3 * * *", s.auditUsers); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 10m", s.sweepLimiter); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("scheduler stopped")
}

func (s *Scheduler) auditUsers() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	violations, err := s.users.CountInvariantViolations(ctx)
	if err != nil {
		logger.Error("audit failed", "error", err)
		return
	}

	middleware.InvariantViolations.Set(float64(violations))
	if violations > 0 {
		logger.Error("audit found inconsistent user rows", "count", violations)
	} else {
		logger.Info("audit clean")
	}
}

func (s *Scheduler) sweepLimiter() {
	dropped := s.limiter.Sweep(time.Now())
	if dropped > 0 {
		logger.Debug("rate limiter sweep", "dropped", dropped)
	}
}
