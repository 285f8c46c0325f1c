package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MatchRefresher force-fetches the match feeds and snapshots them.
type MatchRefresher interface {
	RefreshFeeds(ctx context.Context) error
}

// MatchWorker держит кэш лент матчей теплым и пишет снапшоты в БД
type MatchWorker struct {
	*periodic
}

func NewMatchWorker(refresher MatchRefresher, interval time.Duration, logger *zap.Logger) *MatchWorker {
	return &MatchWorker{
		periodic: newPeriodic("matches", interval, 30*time.Second, refresher.RefreshFeeds, logger),
	}
}
