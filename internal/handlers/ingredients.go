package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	applog "foodgram/internal/log"
	"foodgram/models"
)

type ingredientRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=200"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListIngredients returns ingredients ordered by name, optionally filtered by
// a case-insensitive name prefix (?name=).
func ListIngredients(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}

	query := database.WithContext(r.Context()).Order("name asc")
	if prefix := strings.TrimSpace(r.URL.Query().Get("name")); prefix != "" {
		pattern := likeEscaper.Replace(strings.ToLower(prefix)) + "%"
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern)
	}

	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		writeStoreError(w, r, err, "failed to list ingredients")
		return
	}

	results := make([]ingredientResponse, 0, len(ingredients))
	for _, ingredient := range ingredients {
		results = append(results, projectIngredient(ingredient))
	}
	writeJSON(w, http.StatusOK, results)
}

func GetIngredient(w http.ResponseWriter, r *http.Request) {
	ingredient, ok := loadIngredient(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, projectIngredient(ingredient))
}

func loadIngredient(w http.ResponseWriter, r *http.Request) (models.Ingredient, bool) {
	var ingredient models.Ingredient
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return ingredient, false
	}
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return ingredient, false
	}
	if err := database.WithContext(r.Context()).First(&ingredient, id).Error; err != nil {
		writeStoreError(w, r, err, "failed to load ingredient")
		return ingredient, false
	}
	return ingredient, true
}

func ingredientExists(r *http.Request, payload ingredientRequest, exceptID uint) (bool, error) {
	var count int64
	err := database.WithContext(r.Context()).Model(&models.Ingredient{}).
		Where("name = ? AND measurement_unit = ? AND id <> ?", payload.Name, payload.MeasurementUnit, exceptID).
		Count(&count).Error
	return count > 0, err
}

// CreateIngredient is restricted to staff.
func CreateIngredient(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, r) {
		return
	}
	var payload ingredientRequest
	if !decodeAndValidate(w, r, &payload) {
		return
	}

	exists, err := ingredientExists(r, payload, 0)
	if err != nil {
		writeStoreError(w, r, err, "failed to check ingredient uniqueness")
		return
	}
	if exists {
		writeValidationErrors(w, ValidationErrors{nonFieldErrors: {"This ingredient already exists with that measurement unit."}})
		return
	}

	ingredient := models.Ingredient{Name: payload.Name, MeasurementUnit: payload.MeasurementUnit}
	if err := database.WithContext(r.Context()).Create(&ingredient).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeValidationErrors(w, ValidationErrors{nonFieldErrors: {"This ingredient already exists with that measurement unit."}})
			return
		}
		writeStoreError(w, r, err, "failed to create ingredient")
		return
	}
	applog.Info(r.Context(), "ingredient created", "ingredientID", ingredient.ID)
	writeJSON(w, http.StatusCreated, projectIngredient(ingredient))
}

// UpdateIngredient replaces name and unit. Staff only.
func UpdateIngredient(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, r) {
		return
	}
	ingredient, ok := loadIngredient(w, r)
	if !ok {
		return
	}
	var payload ingredientRequest
	if !decodeAndValidate(w, r, &payload) {
		return
	}

	exists, err := ingredientExists(r, payload, ingredient.ID)
	if err != nil {
		writeStoreError(w, r, err, "failed to check ingredient uniqueness")
		return
	}
	if exists {
		writeValidationErrors(w, ValidationErrors{nonFieldErrors: {"This ingredient already exists with that measurement unit."}})
		return
	}

	ingredient.Name = payload.Name
	ingredient.MeasurementUnit = payload.MeasurementUnit
	if err := database.WithContext(r.Context()).Save(&ingredient).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeValidationErrors(w, ValidationErrors{nonFieldErrors: {"This ingredient already exists with that measurement unit."}})
			return
		}
		writeStoreError(w, r, err, "failed to update ingredient")
		return
	}
	writeJSON(w, http.StatusOK, projectIngredient(ingredient))
}

// DeleteIngredient removes the ingredient and every recipe line using it.
// Staff only.
func DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, r) {
		return
	}
	ingredient, ok := loadIngredient(w, r)
	if !ok {
		return
	}

	err := database.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ingredient_id = ?", ingredient.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&ingredient).Error
	})
	if err != nil {
		writeStoreError(w, r, err, "failed to delete ingredient")
		return
	}
	applog.Info(r.Context(), "ingredient deleted", "ingredientID", ingredient.ID)
	w.WriteHeader(http.StatusNoContent)
}
