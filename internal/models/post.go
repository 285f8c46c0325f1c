package models

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Title     string    `gorm:"type:varchar(200);not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"authorId"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Comments  []Comment `gorm:"foreignKey:PostID" json:"comments"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Comment принадлежит либо пользователю (UserID), либо гостю (GuestUsername)
type Comment struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	PostID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"postId"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	UserID        *uuid.UUID `gorm:"type:uuid" json:"userId,omitempty"`
	User          *User      `gorm:"foreignKey:UserID" json:"-"`
	GuestUsername string     `gorm:"type:varchar(50)" json:"guestUsername,omitempty"`
	Username      string     `gorm:"-" json:"username"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

// ResolveUsername заполняет отображаемое имя автора комментария
func (c *Comment) ResolveUsername() {
	if c.User != nil {
		c.Username = c.User.Username
		return
	}
	c.Username = c.GuestUsername
}
