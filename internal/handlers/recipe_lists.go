package handlers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	applog "foodgram/internal/log"
	"foodgram/models"
)

// recipeList describes a per-user set of recipes: favorites or the cart.
type recipeList struct {
	name      string
	model     func() any
	entry     func(userID, recipeID uint) any
	duplicate string
	absent    string
}

var (
	favoriteList = recipeList{
		name:  "favorites",
		model: func() any { return &models.Favorite{} },
		entry: func(userID, recipeID uint) any {
			return &models.Favorite{UserID: userID, RecipeID: recipeID}
		},
		duplicate: "The recipe is already in favorites.",
		absent:    "The recipe is not in favorites.",
	}
	shoppingCartList = recipeList{
		name:  "shopping cart",
		model: func() any { return &models.ShoppingCart{} },
		entry: func(userID, recipeID uint) any {
			return &models.ShoppingCart{UserID: userID, RecipeID: recipeID}
		},
		duplicate: "The recipe is already in the shopping cart.",
		absent:    "The recipe is not in the shopping cart.",
	}
)

func (l recipeList) add(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}
	userID, _ := currentUserID(r)
	recipeID, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}

	ctx := r.Context()
	var recipe models.Recipe
	if err := database.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		writeStoreError(w, r, err, "failed to load recipe")
		return
	}

	var existing int64
	if err := database.WithContext(ctx).Model(l.model()).Where("user_id = ? AND recipe_id = ?", userID, recipe.ID).Count(&existing).Error; err != nil {
		writeStoreError(w, r, err, "failed to check "+l.name)
		return
	}
	if existing > 0 {
		writeValidationErrors(w, ValidationErrors{nonFieldErrors: {l.duplicate}})
		return
	}

	if err := database.WithContext(ctx).Create(l.entry(userID, recipe.ID)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeValidationErrors(w, ValidationErrors{nonFieldErrors: {l.duplicate}})
			return
		}
		writeStoreError(w, r, err, "failed to add recipe to "+l.name)
		return
	}
	applog.Debug(ctx, "recipe added", "list", l.name, "userID", userID, "recipeID", recipe.ID)
	writeJSON(w, http.StatusCreated, projectShortRecipe(r, recipe))
}

func (l recipeList) remove(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}
	userID, _ := currentUserID(r)
	recipeID, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}

	ctx := r.Context()
	var recipe models.Recipe
	if err := database.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		writeStoreError(w, r, err, "failed to load recipe")
		return
	}

	result := database.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipe.ID).Delete(l.model())
	if result.Error != nil {
		writeStoreError(w, r, result.Error, "failed to remove recipe from "+l.name)
		return
	}
	if result.RowsAffected == 0 {
		writeValidationErrors(w, ValidationErrors{nonFieldErrors: {l.absent}})
		return
	}
	applog.Debug(ctx, "recipe removed", "list", l.name, "userID", userID, "recipeID", recipe.ID)
	w.WriteHeader(http.StatusNoContent)
}

func AddFavorite(w http.ResponseWriter, r *http.Request) { favoriteList.add(w, r) }

func RemoveFavorite(w http.ResponseWriter, r *http.Request) { favoriteList.remove(w, r) }

func AddToShoppingCart(w http.ResponseWriter, r *http.Request) { shoppingCartList.add(w, r) }

func RemoveFromShoppingCart(w http.ResponseWriter, r *http.Request) { shoppingCartList.remove(w, r) }
