package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rayuela-fp/feoe-api/pkg/jobs"
)

type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// TrashSweeper periodically purges trashed requests past their retention
// window. Purge runs go through the shared background queue so sweeps never
// block request handling.
type TrashSweeper struct {
	purger   expiredPurger
	queue    *jobs.Queue
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// NewTrashSweeper constructs the sweeper.
func NewTrashSweeper(purger expiredPurger, interval time.Duration, logger *zap.Logger) *TrashSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	s := &TrashSweeper{purger: purger, interval: interval, logger: logger}
	s.queue = jobs.NewQueue("trash-sweeper", s.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 2,
		MaxRetries: 1,
		Logger:     logger,
	})
	return s
}

// Start launches the queue and the periodic tick.
func (s *TrashSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.queue.Start(ctx)
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "purge-expired"}); err != nil {
					s.logger.Warn("failed to enqueue trash sweep", zap.Error(err))
				}
			}
		}
	}()
}

// Stop halts the ticker and drains workers.
func (s *TrashSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.queue.Stop()
}

func (s *TrashSweeper) handle(ctx context.Context, job jobs.Job) error {
	purged, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.Info("purged expired trashed requests", zap.Int("count", purged))
	}
	return nil
}
