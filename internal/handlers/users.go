package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	applog "foodgram/internal/log"
	"foodgram/models"
)

type userCreateRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,max=150"`
}

type userCreatedResponse struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type setPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required,max=150"`
	CurrentPassword string `json:"current_password" validate:"required"`
}

// ListUsers returns a page of users ordered by id.
func ListUsers(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}
	ctx := r.Context()
	page := parsePage(r)

	var count int64
	if err := database.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		writeStoreError(w, r, err, "failed to count users")
		return
	}
	if !pageExists(page, count) {
		writeJSONError(w, http.StatusNotFound, "Invalid page.")
		return
	}

	var users []models.User
	if err := database.WithContext(ctx).Order("id asc").Limit(page.Limit).Offset(page.Offset()).Find(&users).Error; err != nil {
		writeStoreError(w, r, err, "failed to list users")
		return
	}

	viewerID, _ := currentUserID(r)
	ids := make([]uint, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}
	following, err := followingSet(ctx, viewerID, ids)
	if err != nil {
		writeStoreError(w, r, err, "failed to load subscriptions")
		return
	}

	results := make([]userResponse, 0, len(users))
	for _, user := range users {
		results = append(results, projectUser(user, following[user.ID]))
	}
	writeJSON(w, http.StatusOK, newPaginatedResponse(r, page, count, results))
}

// CreateUser registers a new account.
func CreateUser(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}

	var payload userCreateRequest
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	payload.Email = models.NormalizeEmail(payload.Email)

	ctx := r.Context()
	errs, err := userConflicts(r, payload.Email, payload.Username)
	if err != nil {
		writeStoreError(w, r, err, "failed to check user uniqueness")
		return
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		applog.Error(ctx, "failed to hash password", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	user := models.User{
		Email:        payload.Email,
		Username:     payload.Username,
		FirstName:    strings.TrimSpace(payload.FirstName),
		LastName:     strings.TrimSpace(payload.LastName),
		PasswordHash: string(hashed),
	}
	if err := database.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Registered concurrently after the check above.
			errs, checkErr := userConflicts(r, payload.Email, payload.Username)
			if checkErr == nil && len(errs) > 0 {
				writeValidationErrors(w, errs)
				return
			}
		}
		writeStoreError(w, r, err, "failed to create user")
		return
	}

	applog.Info(ctx, "user registered", "userID", user.ID)
	writeJSON(w, http.StatusCreated, userCreatedResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// userConflicts reports which of email and username already belong to an
// account.
func userConflicts(r *http.Request, email, username string) (ValidationErrors, error) {
	errs := ValidationErrors{}
	var taken int64
	if err := database.WithContext(r.Context()).Unscoped().Model(&models.User{}).Where("lower(email) = ?", email).Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		errs.Add("email", "A user with that email already exists.")
	}
	if err := database.WithContext(r.Context()).Unscoped().Model(&models.User{}).Where("username = ?", username).Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		errs.Add("username", "A user with that username already exists.")
	}
	return errs, nil
}

// GetUser returns a single user profile.
func GetUser(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}

	var user models.User
	if err := database.WithContext(r.Context()).First(&user, id).Error; err != nil {
		writeStoreError(w, r, err, "failed to load user")
		return
	}

	viewerID, _ := currentUserID(r)
	following, err := followingSet(r.Context(), viewerID, []uint{user.ID})
	if err != nil {
		writeStoreError(w, r, err, "failed to load subscriptions")
		return
	}
	writeJSON(w, http.StatusOK, projectUser(user, following[user.ID]))
}

// Me returns the caller's own profile.
func Me(w http.ResponseWriter, r *http.Request) {
	user, err := loadCurrentUser(r)
	if err != nil {
		if errors.Is(err, errNotAuthenticated) {
			writeJSONError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		writeStoreError(w, r, err, "failed to load current user")
		return
	}
	writeJSON(w, http.StatusOK, projectUser(*user, false))
}

// SetPassword replaces the caller's password after checking the current one.
func SetPassword(w http.ResponseWriter, r *http.Request) {
	user, err := loadCurrentUser(r)
	if err != nil {
		if errors.Is(err, errNotAuthenticated) {
			writeJSONError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		writeStoreError(w, r, err, "failed to load current user")
		return
	}

	var payload setPasswordRequest
	if !decodeAndValidate(w, r, &payload) {
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.CurrentPassword)); err != nil {
		applog.Debug(r.Context(), "set password with wrong current password", "userID", user.ID)
		writeValidationErrors(w, ValidationErrors{"current_password": {"Invalid password."}})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		applog.Error(r.Context(), "failed to hash password", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if err := database.WithContext(r.Context()).Model(user).Update("password_hash", string(hashed)).Error; err != nil {
		writeStoreError(w, r, err, "failed to update password")
		return
	}

	applog.Info(r.Context(), "password changed", "userID", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// recipesLimit parses ?recipes_limit=; zero or malformed means unlimited.
func recipesLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("recipes_limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func buildSubscription(r *http.Request, author models.User, limit int) (subscriptionResponse, error) {
	ctx := r.Context()
	resp := subscriptionResponse{userResponse: projectUser(author, true), Recipes: []shortRecipeResponse{}}

	if err := database.WithContext(ctx).Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&resp.RecipesCount).Error; err != nil {
		return resp, err
	}

	query := database.WithContext(ctx).Where("author_id = ?", author.ID).Order("created_at desc, id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return resp, err
	}
	for _, recipe := range recipes {
		resp.Recipes = append(resp.Recipes, projectShortRecipe(r, recipe))
	}
	return resp, nil
}

// Subscribe makes the caller follow the user in the path.
func Subscribe(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}
	viewerID, _ := currentUserID(r)
	authorID, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}

	ctx := r.Context()
	var author models.User
	if err := database.WithContext(ctx).First(&author, authorID).Error; err != nil {
		writeStoreError(w, r, err, "failed to load author")
		return
	}
	if author.ID == viewerID {
		writeValidationErrors(w, ValidationErrors{nonFieldErrors: {"You cannot subscribe to yourself."}})
		return
	}

	var existing int64
	if err := database.WithContext(ctx).Model(&models.Follow{}).Where("user_id = ? AND following_id = ?", viewerID, author.ID).Count(&existing).Error; err != nil {
		writeStoreError(w, r, err, "failed to check subscription")
		return
	}
	if existing > 0 {
		writeValidationErrors(w, ValidationErrors{nonFieldErrors: {"You are already subscribed to this user."}})
		return
	}

	if err := database.WithContext(ctx).Create(&models.Follow{UserID: viewerID, FollowingID: author.ID}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeValidationErrors(w, ValidationErrors{nonFieldErrors: {"You are already subscribed to this user."}})
			return
		}
		writeStoreError(w, r, err, "failed to create subscription")
		return
	}

	resp, err := buildSubscription(r, author, recipesLimit(r))
	if err != nil {
		writeStoreError(w, r, err, "failed to build subscription")
		return
	}
	applog.Debug(ctx, "subscription created", "userID", viewerID, "authorID", author.ID)
	writeJSON(w, http.StatusCreated, resp)
}

// Unsubscribe removes the caller's subscription to the user in the path.
func Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}
	viewerID, _ := currentUserID(r)
	authorID, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}

	ctx := r.Context()
	var author models.User
	if err := database.WithContext(ctx).First(&author, authorID).Error; err != nil {
		writeStoreError(w, r, err, "failed to load author")
		return
	}

	result := database.WithContext(ctx).Where("user_id = ? AND following_id = ?", viewerID, author.ID).Delete(&models.Follow{})
	if result.Error != nil {
		writeStoreError(w, r, result.Error, "failed to delete subscription")
		return
	}
	if result.RowsAffected == 0 {
		writeValidationErrors(w, ValidationErrors{nonFieldErrors: {"You are not subscribed to this user."}})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Subscriptions lists the authors the caller follows with their latest recipes.
func Subscriptions(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeStoreError(w, r, gorm.ErrInvalidDB, "")
		return
	}
	viewerID, _ := currentUserID(r)
	ctx := r.Context()
	page := parsePage(r)

	var count int64
	if err := database.WithContext(ctx).Model(&models.Follow{}).Where("user_id = ?", viewerID).Count(&count).Error; err != nil {
		writeStoreError(w, r, err, "failed to count subscriptions")
		return
	}
	if !pageExists(page, count) {
		writeJSONError(w, http.StatusNotFound, "Invalid page.")
		return
	}

	var authors []models.User
	err := database.WithContext(ctx).
		Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.user_id = ?", viewerID).
		Order("users.id asc").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&authors).Error
	if err != nil {
		writeStoreError(w, r, err, "failed to list subscriptions")
		return
	}

	limit := recipesLimit(r)
	results := make([]subscriptionResponse, 0, len(authors))
	for _, author := range authors {
		resp, err := buildSubscription(r, author, limit)
		if err != nil {
			writeStoreError(w, r, err, "failed to build subscription")
			return
		}
		results = append(results, resp)
	}
	writeJSON(w, http.StatusOK, newPaginatedResponse(r, page, count, results))
}
