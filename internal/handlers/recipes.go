package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	applog "foodgram/internal/log"
	"foodgram/models"
)

type recipeIngredientRequest struct {
	ID     uint    `json:"id" validate:"required"`
	Amount float64 `json:"amount" validate:"gt=0"`
}

type recipeRequest struct {
	Ingredients []recipeIngredientRequest `json:"ingredients" validate:"required,min=1,unique=ID,dive"`
	Tags        []uint                    `json:"tags" validate:"required,min=1,unique,dive,required"`
	Image       string                    `json:"image" validate:"required"`
	Name        string                    `json:"name" validate:"required,max=200"`
	Text        string                    `json:"text" validate:"required"`
	CookingTime int                       `json:"cooking_time" validate:"required,min=1"`
}

// recipeUpdateRequest always replaces ingredients and tags; the remaining
// fields change only when present.
type recipeUpdateRequest struct {
	Ingredients []recipeIngredientRequest `json:"ingredients" validate:"required,min=1,unique=ID,dive"`
	Tags        []uint                    `json:"tags" validate:"required,min=1,unique,dive,required"`
	Image       *string                   `json:"image" validate:"omitnil,min=1"`
	Name        *string                   `json:"name" validate:"omitnil,min=1,max=200"`
	Text        *string                   `json:"text" validate:"omitnil,min=1"`
	CookingTime *int                      `json:"cooking_time" validate:"omitnil,min=1"`
}

func preloadRecipe(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name asc") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Ingredients.Ingredient")
}

func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// recipeFilters applies the author, tags, is_favorited and
// is_in_shopping_cart query parameters. The last two need a caller.
func recipeFilters(ctx context.Context, r *http.Request, viewerID uint) func(*gorm.DB) *gorm.DB {
	query := r.URL.Query()
	return func(db *gorm.DB) *gorm.DB {
		if author, err := strconv.ParseUint(query.Get("author"), 10, 64); err == nil {
			db = db.Where("recipes.author_id = ?", author)
		}
		if slugs := query["tags"]; len(slugs) > 0 {
			tagged := database.WithContext(ctx).Table("recipe_tags").
				Select("recipe_tags.recipe_id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", slugs)
			db = db.Where("recipes.id IN (?)", tagged)
		}
		if viewerID != 0 && truthy(query.Get("is_favorited")) {
			favorited := database.WithContext(ctx).Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", viewerID)
			db = db.Where("recipes.id IN (?)", favorited)
		}
		if viewerID != 0 && truthy(query.Get("is_in_shopping_cart")) {
			inCart := database.WithContext(ctx).Model(&models.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", viewerID)
			db = db.Where("recipes.id IN (?)", inCart)
		}
		return db
	}
}

// ListRecipes returns a page of recipes, newest first.
func ListRecipes(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}
	ctx := r.Context()
	viewerID, _ := currentUserID(r)
	filters := recipeFilters(ctx, r, viewerID)
	page := parsePage(r)

	var count int64
	if err := database.WithContext(ctx).Model(&models.Recipe{}).Scopes(filters).Count(&count).Error; err != nil {
		writeStoreError(w, r, err, "failed to count recipes")
		return
	}
	if !pageExists(page, count) {
		writeJSONError(w, http.StatusNotFound, "Invalid page.")
		return
	}

	var recipes []models.Recipe
	err := database.WithContext(ctx).
		Scopes(filters, preloadRecipe).
		Order("recipes.created_at desc, recipes.id desc").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&recipes).Error
	if err != nil {
		writeStoreError(w, r, err, "failed to list recipes")
		return
	}

	flags, err := loadViewerFlags(ctx, viewerID, recipes)
	if err != nil {
		writeStoreError(w, r, err, "failed to load recipe flags")
		return
	}

	results := make([]recipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		results = append(results, projectRecipe(r, recipe, flags))
	}
	writeJSON(w, http.StatusOK, newPaginatedResponse(r, page, count, results))
}

func fetchRecipe(ctx context.Context, id uint) (models.Recipe, error) {
	var recipe models.Recipe
	err := database.WithContext(ctx).Scopes(preloadRecipe).First(&recipe, id).Error
	return recipe, err
}

func writeRecipe(w http.ResponseWriter, r *http.Request, status int, id uint) {
	ctx := r.Context()
	recipe, err := fetchRecipe(ctx, id)
	if err != nil {
		writeStoreError(w, r, err, "failed to load recipe")
		return
	}
	viewerID, _ := currentUserID(r)
	flags, err := loadViewerFlags(ctx, viewerID, []models.Recipe{recipe})
	if err != nil {
		writeStoreError(w, r, err, "failed to load recipe flags")
		return
	}
	writeJSON(w, status, projectRecipe(r, recipe, flags))
}

// GetRecipe returns the full recipe view.
func GetRecipe(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	writeRecipe(w, r, http.StatusOK, id)
}

// checkReferences reports ingredient and tag ids that do not exist.
func checkReferences(ctx context.Context, ingredients []recipeIngredientRequest, tagIDs []uint) (ValidationErrors, error) {
	errs := ValidationErrors{}

	ingredientIDs := make([]uint, 0, len(ingredients))
	for _, item := range ingredients {
		ingredientIDs = append(ingredientIDs, item.ID)
	}
	missing, err := missingIDs(ctx, &models.Ingredient{}, ingredientIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		errs.Add("ingredients", fmt.Sprintf("Ingredient %d does not exist.", id))
	}

	missing, err = missingIDs(ctx, &models.Tag{}, tagIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		errs.Add("tags", fmt.Sprintf("Tag %d does not exist.", id))
	}
	return errs, nil
}

func missingIDs(ctx context.Context, model any, ids []uint) ([]uint, error) {
	var found []uint
	if err := database.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	present := make(map[uint]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	var missing []uint
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func recipeLines(items []recipeIngredientRequest, recipeID uint) []models.RecipeIngredient {
	lines := make([]models.RecipeIngredient, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.RecipeIngredient{RecipeID: recipeID, IngredientID: item.ID, Amount: item.Amount})
	}
	return lines
}

func replaceRecipeTags(tx *gorm.DB, recipeID uint, tagIDs []uint) error {
	if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipeID).Error; err != nil {
		return err
	}
	rows := make([]map[string]any, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		rows = append(rows, map[string]any{"recipe_id": recipeID, "tag_id": tagID})
	}
	return tx.Table("recipe_tags").Create(rows).Error
}

// CreateRecipe publishes a recipe authored by the caller.
func CreateRecipe(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}
	authorID, _ := currentUserID(r)
	ctx := r.Context()

	var payload recipeRequest
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	errs, err := checkReferences(ctx, payload.Ingredients, payload.Tags)
	if err != nil {
		writeStoreError(w, r, err, "failed to check recipe references")
		return
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	image, err := saveImage(payload.Image)
	if err != nil {
		if errors.Is(err, errInvalidImage) {
			writeValidationErrors(w, ValidationErrors{"image": {errInvalidImage.Error()}})
			return
		}
		applog.Error(ctx, "failed to store recipe image", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Unable to store the image.")
		return
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        payload.Name,
		Text:        payload.Text,
		CookingTime: payload.CookingTime,
		Image:       image,
	}
	err = database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "Ingredients").Create(&recipe).Error; err != nil {
			return err
		}
		lines := recipeLines(payload.Ingredients, recipe.ID)
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}
		return replaceRecipeTags(tx, recipe.ID, payload.Tags)
	})
	if err != nil {
		removeImage(ctx, image)
		writeStoreError(w, r, err, "failed to create recipe")
		return
	}

	applog.Info(ctx, "recipe created", "recipeID", recipe.ID, "authorID", authorID)
	writeRecipe(w, r, http.StatusCreated, recipe.ID)
}

// loadOwnRecipe loads the recipe in the path and checks the caller wrote it.
func loadOwnRecipe(w http.ResponseWriter, r *http.Request) (models.Recipe, bool) {
	var recipe models.Recipe
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return recipe, false
	}
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return recipe, false
	}
	if err := database.WithContext(r.Context()).First(&recipe, id).Error; err != nil {
		writeStoreError(w, r, err, "failed to load recipe")
		return recipe, false
	}
	viewerID, _ := currentUserID(r)
	if recipe.AuthorID != viewerID {
		applog.Debug(r.Context(), "recipe change by non-author rejected", "recipeID", recipe.ID, "userID", viewerID)
		writeJSONError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return recipe, false
	}
	return recipe, true
}

// UpdateRecipe edits a recipe; only its author may do so.
func UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, ok := loadOwnRecipe(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var payload recipeUpdateRequest
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	errs, err := checkReferences(ctx, payload.Ingredients, payload.Tags)
	if err != nil {
		writeStoreError(w, r, err, "failed to check recipe references")
		return
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	previousImage := recipe.Image
	newImage := ""
	if payload.Image != nil {
		newImage, err = saveImage(*payload.Image)
		if err != nil {
			if errors.Is(err, errInvalidImage) {
				writeValidationErrors(w, ValidationErrors{"image": {errInvalidImage.Error()}})
				return
			}
			applog.Error(ctx, "failed to store recipe image", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Unable to store the image.")
			return
		}
	}

	updates := map[string]any{}
	if payload.Name != nil {
		updates["name"] = *payload.Name
	}
	if payload.Text != nil {
		updates["text"] = *payload.Text
	}
	if payload.CookingTime != nil {
		updates["cooking_time"] = *payload.CookingTime
	}
	if newImage != "" {
		updates["image"] = newImage
	}

	err = database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&recipe).Updates(updates).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		lines := recipeLines(payload.Ingredients, recipe.ID)
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}
		return replaceRecipeTags(tx, recipe.ID, payload.Tags)
	})
	if err != nil {
		removeImage(ctx, newImage)
		writeStoreError(w, r, err, "failed to update recipe")
		return
	}
	if newImage != "" {
		removeImage(ctx, previousImage)
	}

	applog.Info(ctx, "recipe updated", "recipeID", recipe.ID)
	writeRecipe(w, r, http.StatusOK, recipe.ID)
}

// DeleteRecipe removes a recipe together with its cart entries, favorites,
// ingredient lines and tag links. Only the author may delete.
func DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, ok := loadOwnRecipe(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.ShoppingCart{}, &models.Favorite{}, &models.RecipeIngredient{}} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipe.ID).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&recipe).Error
	})
	if err != nil {
		writeStoreError(w, r, err, "failed to delete recipe")
		return
	}
	removeImage(ctx, recipe.Image)

	applog.Info(ctx, "recipe deleted", "recipeID", recipe.ID)
	w.WriteHeader(http.StatusNoContent)
}
