package models

import "time"

// RefreshSession is one active refresh token of a user. Only the SHA-256
// digest of the token is persisted.
type RefreshSession struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	TokenHash string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	IssuedAt  time.Time `gorm:"not null;index" json:"issued_at"`
}
