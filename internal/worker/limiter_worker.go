package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LimiterSweeper drops per-IP limiters of clients that went quiet.
type LimiterSweeper interface {
	Cleanup() int
}

type LimiterWorker struct {
	*periodic
}

func NewLimiterWorker(sweeper LimiterSweeper, interval time.Duration, logger *zap.Logger) *LimiterWorker {
	named := logger.Named("limiter")
	task := func(ctx context.Context) error {
		if removed := sweeper.Cleanup(); removed > 0 {
			named.Debug("removed idle rate limiters", zap.Int("removed", removed))
		}
		return nil
	}
	return &LimiterWorker{periodic: newPeriodic("limiter", interval, time.Second, task, logger)}
}
