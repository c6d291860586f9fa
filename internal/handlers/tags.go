package handlers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	applog "foodgram/internal/log"
	"foodgram/models"
)

type tagRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Slug  string `json:"slug" validate:"required,max=200,slug"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type tagPatchRequest struct {
	Name  *string `json:"name" validate:"omitnil,min=1,max=200"`
	Slug  *string `json:"slug" validate:"omitnil,min=1,max=200,slug"`
	Color *string `json:"color" validate:"omitnil,omitempty,hexcolor"`
}

// ListTags returns every tag ordered by name. Tags are not paginated.
func ListTags(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}
	var tags []models.Tag
	if err := database.WithContext(r.Context()).Order("name asc").Find(&tags).Error; err != nil {
		writeStoreError(w, r, err, "failed to list tags")
		return
	}
	results := make([]tagResponse, 0, len(tags))
	for _, tag := range tags {
		results = append(results, projectTag(tag))
	}
	writeJSON(w, http.StatusOK, results)
}

func GetTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := loadTag(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, projectTag(tag))
}

func loadTag(w http.ResponseWriter, r *http.Request) (models.Tag, bool) {
	var tag models.Tag
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return tag, false
	}
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return tag, false
	}
	if err := database.WithContext(r.Context()).First(&tag, id).Error; err != nil {
		writeStoreError(w, r, err, "failed to load tag")
		return tag, false
	}
	return tag, true
}

func slugTaken(r *http.Request, slug string, exceptID uint) (bool, error) {
	var count int64
	err := database.WithContext(r.Context()).Model(&models.Tag{}).
		Where("slug = ? AND id <> ?", slug, exceptID).
		Count(&count).Error
	return count > 0, err
}

// CreateTag is restricted to staff.
func CreateTag(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, r) {
		return
	}
	var payload tagRequest
	if !decodeAndValidate(w, r, &payload) {
		return
	}

	taken, err := slugTaken(r, payload.Slug, 0)
	if err != nil {
		writeStoreError(w, r, err, "failed to check tag slug")
		return
	}
	if taken {
		writeValidationErrors(w, ValidationErrors{"slug": {"A tag with this slug already exists."}})
		return
	}

	tag := models.Tag{Name: payload.Name, Slug: payload.Slug, Color: payload.Color}
	if err := database.WithContext(r.Context()).Create(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeValidationErrors(w, ValidationErrors{"slug": {"A tag with this slug already exists."}})
			return
		}
		writeStoreError(w, r, err, "failed to create tag")
		return
	}
	applog.Info(r.Context(), "tag created", "tagID", tag.ID, "slug", tag.Slug)
	writeJSON(w, http.StatusCreated, projectTag(tag))
}

// UpdateTag handles PUT (all fields) and PATCH (any subset). Staff only.
func UpdateTag(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, r) {
		return
	}
	tag, ok := loadTag(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodPut {
		var payload tagRequest
		if !decodeAndValidate(w, r, &payload) {
			return
		}
		tag.Name, tag.Slug, tag.Color = payload.Name, payload.Slug, payload.Color
	} else {
		var payload tagPatchRequest
		if !decodeAndValidate(w, r, &payload) {
			return
		}
		if payload.Name != nil {
			tag.Name = *payload.Name
		}
		if payload.Slug != nil {
			tag.Slug = *payload.Slug
		}
		if payload.Color != nil {
			tag.Color = *payload.Color
		}
	}

	taken, err := slugTaken(r, tag.Slug, tag.ID)
	if err != nil {
		writeStoreError(w, r, err, "failed to check tag slug")
		return
	}
	if taken {
		writeValidationErrors(w, ValidationErrors{"slug": {"A tag with this slug already exists."}})
		return
	}

	if err := database.WithContext(r.Context()).Save(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeValidationErrors(w, ValidationErrors{"slug": {"A tag with this slug already exists."}})
			return
		}
		writeStoreError(w, r, err, "failed to update tag")
		return
	}
	writeJSON(w, http.StatusOK, projectTag(tag))
}

// DeleteTag detaches the tag from every recipe and removes it. Staff only.
func DeleteTag(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, r) {
		return
	}
	tag, ok := loadTag(w, r)
	if !ok {
		return
	}

	err := database.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM recipe_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&tag).Error
	})
	if err != nil {
		writeStoreError(w, r, err, "failed to delete tag")
		return
	}
	applog.Info(r.Context(), "tag deleted", "tagID", tag.ID)
	w.WriteHeader(http.StatusNoContent)
}
