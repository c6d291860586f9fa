package models

import "time"

type Favorite struct {
	ID        uint    `gorm:"primaryKey"`
	UserID    uint    `gorm:"not null;uniqueIndex:idx_favorites_pair"`
	RecipeID  uint    `gorm:"not null;uniqueIndex:idx_favorites_pair;index"`
	Recipe    *Recipe `gorm:"foreignKey:RecipeID"`
	CreatedAt time.Time
}
