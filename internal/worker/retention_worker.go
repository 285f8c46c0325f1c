package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type ChatPruner interface {
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

type SnapshotPruner interface {
	DeleteOld(ctx context.Context, olderThan time.Time) (int64, error)
}

type RetentionConfig struct {
	// ChatRetention 0 хранит чат бессрочно
	ChatRetention     time.Duration
	SnapshotRetention time.Duration
}

type RetentionWorker struct {
	*periodic
	chat      ChatPruner
	snapshots SnapshotPruner
	config    RetentionConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewRetentionWorker(
	chat ChatPruner,
	snapshots SnapshotPruner,
	config RetentionConfig,
	interval time.Duration,
	logger *zap.Logger,
) *RetentionWorker {
	w := &RetentionWorker{
		chat:      chat,
		snapshots: snapshots,
		config:    config,
		logger:    logger.Named("retention"),
		now:       time.Now,
	}
	w.periodic = newPeriodic("retention", interval, 5*time.Minute, w.prune, logger)
	return w
}

func (w *RetentionWorker) prune(ctx context.Context) error {
	now := w.now()
	var errs []error

	if w.config.ChatRetention > 0 {
		deleted, err := w.chat.DeleteOlderThan(ctx, now.Add(-w.config.ChatRetention))
		if err != nil {
			errs = append(errs, fmt.Errorf("prune chat messages: %w", err))
		} else if deleted > 0 {
			w.logger.Info("pruned chat messages", zap.Int64("deleted", deleted))
		}
	}

	if w.config.SnapshotRetention > 0 {
		deleted, err := w.snapshots.DeleteOld(ctx, now.Add(-w.config.SnapshotRetention))
		if err != nil {
			errs = append(errs, fmt.Errorf("prune feed snapshots: %w", err))
		} else if deleted > 0 {
			w.logger.Info("pruned feed snapshots", zap.Int64("deleted", deleted))
		}
	}

	return errors.Join(errs...)
}
