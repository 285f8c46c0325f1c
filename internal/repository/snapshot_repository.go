package repository

import (
	"context"
	"time"

	"batball/internal/models"

	"gorm.io/gorm"
)

type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *models.FeedSnapshot) error
	GetLatest(ctx context.Context, source string) (*models.FeedSnapshot, error)
	GetBySource(ctx context.Context, source string, limit int) ([]models.FeedSnapshot, error)
	DeleteOld(ctx context.Context, olderThan time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type snapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Create(ctx context.Context, snapshot *models.FeedSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *snapshotRepository) GetLatest(ctx context.Context, source string) (*models.FeedSnapshot, error) {
	var snapshot models.FeedSnapshot
	err := r.db.WithContext(ctx).
		Where("source = ?", source).
		Order("fetched_at DESC").
		First(&snapshot).
		Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *snapshotRepository) GetBySource(ctx context.Context, source string, limit int) ([]models.FeedSnapshot, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var snapshots []models.FeedSnapshot
	err := r.db.WithContext(ctx).
		Where("source = ?", source).
		Order("fetched_at DESC").
		Limit(limit).
		Find(&snapshots).
		Error
	return snapshots, err
}

func (r *snapshotRepository) DeleteOld(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("fetched_at < ?", olderThan).
		Delete(&models.FeedSnapshot{})
	return result.RowsAffected, result.Error
}

func (r *snapshotRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FeedSnapshot{}).Count(&count).Error
	return count, err
}
