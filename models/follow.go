package models

import "time"

// Follow is a directed subscription edge from User to Author. The pair is unique.
type Follow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:follow_uniq;index" json:"user_id"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:follow_uniq;index" json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Author    User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
