package models

import "time"

// ShoppingCart is a single cart entry: one recipe a user intends to shop for.
type ShoppingCart struct {
	ID        uint    `gorm:"primaryKey"`
	UserID    uint    `gorm:"not null;uniqueIndex:idx_shopping_carts_pair"`
	RecipeID  uint    `gorm:"not null;uniqueIndex:idx_shopping_carts_pair;index"`
	Recipe    *Recipe `gorm:"foreignKey:RecipeID"`
	CreatedAt time.Time
}
