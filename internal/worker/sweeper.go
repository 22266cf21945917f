package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/boardlock/boardlock/internal/repo"
)

// Sweeper drops idempotency keys past their TTL so the collection does not
// grow without bound.
type Sweeper struct {
	repo     repo.TaskRepository
	logger   *zap.Logger
	ttl      time.Duration
	interval time.Duration
	wg       sync.WaitGroup
	stop     chan struct{}
}

func NewSweeper(r repo.TaskRepository, logger *zap.Logger, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		repo:     r,
		logger:   logger,
		ttl:      ttl,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting idempotency key sweeper",
		zap.Duration("ttl", s.ttl),
		zap.Duration("interval", s.interval),
	)

	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	s.logger.Info("Stopping sweeper...")
	close(s.stop)
	s.wg.Wait()
	s.logger.Info("Sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep error", zap.Error(err))
			}
		}
	}
}

// Sweep runs a single purge pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.ttl)
	purged, err := s.repo.PurgeIdempotencyKeys(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.Info("Purged idempotency keys", zap.Int64("purged", purged))
	}
	return nil
}
