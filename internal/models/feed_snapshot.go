package models

import (
	"time"

	"gorm.io/datatypes"
)

// FeedSnapshot хранит последний удачный ответ апстрима под ключом кэша,
// чтобы после рестарта было что отдать как устаревшие данные
type FeedSnapshot struct {
	ID        uint           `gorm:"primaryKey"`
	Source    string         `gorm:"not null;index"`
	FetchedAt time.Time      `gorm:"not null;default:now()"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}
