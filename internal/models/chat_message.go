package models

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventMessage EventType = "message"
	EventJoin    EventType = "join"
	EventLeave   EventType = "leave"
)

// ChatMessage is an append-only entry of a room log. Guest messages carry
// only a display name, UserID stays nil.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey"`
	Room      string    `gorm:"type:varchar(100);not null;index"`
	UserID    *string   `gorm:"type:varchar(64);index"`
	Username  string    `gorm:"type:varchar(100);not null"`
	Body      string    `gorm:"type:text;not null"`
	EventType EventType `gorm:"type:varchar(16);not null;default:message"`
	IsGuest   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (m ChatMessage) AuthorKind() string {
	if m.IsGuest {
		return "guest"
	}
	return "registered"
}

func (m ChatMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID                uint      `json:"id"`
		RoomID            string    `json:"roomId"`
		UserID            *string   `json:"userId,omitempty"`
		AuthorDisplayName string    `json:"authorDisplayName"`
		AuthorKind        string    `json:"authorKind"`
		Body              string    `json:"body"`
		EventType         EventType `json:"eventType"`
		CreatedAt         time.Time `json:"createdAt"`
	}{
		ID:                m.ID,
		RoomID:            m.Room,
		UserID:            m.UserID,
		AuthorDisplayName: m.Username,
		AuthorKind:        m.AuthorKind(),
		Body:              m.Body,
		EventType:         m.EventType,
		CreatedAt:         m.CreatedAt,
	})
}
