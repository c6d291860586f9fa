package models

import "time"

// Follow records that User subscribes to the recipes published by Following.
type Follow struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      uint  `gorm:"not null;uniqueIndex:idx_follows_pair"`
	FollowingID uint  `gorm:"not null;uniqueIndex:idx_follows_pair;index"`
	User        *User `gorm:"foreignKey:UserID"`
	Following   *User `gorm:"foreignKey:FollowingID"`
	CreatedAt   time.Time
}
