// Package shopping turns the recipes in a user's cart into a merged
// shopping list and renders it as a downloadable document.
package shopping

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"foodgram/models"
)

// ErrDataIntegrity reports a cart row whose recipe or ingredient reference
// no longer resolves.
var ErrDataIntegrity = errors.New("shopping: cart references a missing recipe or ingredient")

// IngredientLine is one ingredient requirement of a recipe.
type IngredientLine struct {
	Name     string
	Unit     string
	Quantity float64
}

// Recipe is the cart's view of a recipe: its identity and ingredient lines.
type Recipe struct {
	ID    uint
	Name  string
	Lines []IngredientLine
}

// CartReader returns the recipes a user has placed in their shopping cart,
// in the order they were added.
type CartReader interface {
	CartRecipes(ctx context.Context, userID uint) ([]Recipe, error)
}

// GormCartReader reads carts from the application database.
type GormCartReader struct {
	DB *gorm.DB
}

func (r GormCartReader) CartRecipes(ctx context.Context, userID uint) ([]Recipe, error) {
	if r.DB == nil {
		return nil, gorm.ErrInvalidDB
	}

	var entries []models.ShoppingCart
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Preload("Recipe").
		Preload("Recipe.Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("id asc")
		}).
		Preload("Recipe.Ingredients.Ingredient").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	recipes := make([]Recipe, 0, len(entries))
	for _, entry := range entries {
		if entry.Recipe == nil {
			return nil, fmt.Errorf("%w: cart entry %d points at recipe %d", ErrDataIntegrity, entry.ID, entry.RecipeID)
		}
		recipe := Recipe{
			ID:    entry.Recipe.ID,
			Name:  entry.Recipe.Name,
			Lines: make([]IngredientLine, 0, len(entry.Recipe.Ingredients)),
		}
		for _, line := range entry.Recipe.Ingredients {
			if line.Ingredient == nil {
				return nil, fmt.Errorf("%w: recipe %d line %d points at ingredient %d", ErrDataIntegrity, recipe.ID, line.ID, line.IngredientID)
			}
			recipe.Lines = append(recipe.Lines, IngredientLine{
				Name:     line.Ingredient.Name,
				Unit:     line.Ingredient.MeasurementUnit,
				Quantity: line.Amount,
			})
		}
		recipes = append(recipes, recipe)
	}

	return recipes, nil
}

// StaticCartReader serves carts from memory, keyed by user id.
type StaticCartReader map[uint][]Recipe

func (r StaticCartReader) CartRecipes(_ context.Context, userID uint) ([]Recipe, error) {
	source := r[userID]
	recipes := make([]Recipe, len(source))
	copy(recipes, source)
	return recipes, nil
}
