package models

import (
	"gorm.io/gorm"
)

// Recipe is published by Author. CreatedAt doubles as the publication date.
type Recipe struct {
	gorm.Model
	AuthorID    uint               `gorm:"not null;index" json:"author_id"`
	Author      *User              `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Name        string             `gorm:"not null;size:200" json:"name"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null" json:"cooking_time"`
	Image       string             `json:"image"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;" json:"tags"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients"`
}
