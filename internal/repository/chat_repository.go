package repository

import (
	"context"
	"time"

	"batball/internal/models"

	"gorm.io/gorm"
)

type ChatRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	History(ctx context.Context, room string, limit int) ([]models.ChatMessage, error)
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// History возвращает последние limit сообщений комнаты в хронологическом порядке
func (r *chatRepository) History(ctx context.Context, room string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	// берем новые DESC, потом разворачиваем
	var msgs []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room = ?", room).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).
		Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *chatRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&models.ChatMessage{})
	return result.RowsAffected, result.Error
}

func (r *chatRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChatMessage{}).Count(&count).Error
	return count, err
}
