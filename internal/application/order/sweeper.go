package order

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper drives the expiration sweep on a timer as a backstop for the
// read-time sweep. It holds no state of its own.
type Sweeper struct {
	coordinator *Coordinator
	interval    time.Duration
	log         *zap.Logger
}

func NewSweeper(coordinator *Coordinator, interval time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.L()
	}
	return &Sweeper{
		coordinator: coordinator,
		interval:    interval,
		log:         log.With(zap.String("component", "sweeper")),
	}
}

// Run sweeps every interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("sweeper_started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper_stopped")
			return
		case <-ticker.C:
			swept, err := s.coordinator.SweepExpired(ctx)
			if err != nil {
				s.log.Error("sweep_failed", zap.Error(err))
				continue
			}
			if swept > 0 {
				s.log.Info("sweep_done", zap.Int("canceled", swept))
			}
		}
	}
}
