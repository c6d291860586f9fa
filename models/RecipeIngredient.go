package models

// RecipeIngredient is one ingredient line of a recipe. Lines are replaced
// wholesale whenever the recipe is updated.
type RecipeIngredient struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	RecipeID     uint        `gorm:"not null;index" json:"recipe_id"`
	IngredientID uint        `gorm:"not null;index" json:"ingredient_id"`
	Amount       float64     `gorm:"not null" json:"amount"`
	Ingredient   *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}
