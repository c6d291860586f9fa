package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	applog "foodgram/internal/log"
	"foodgram/internal/shopping"
	"foodgram/models"
)

const (
	sessionUserIDKey = "auth:user:id"
	tokenScheme      = "Token"
	defaultPageSize  = 6
)

var (
	sessionManager *scs.SessionManager
	database       *gorm.DB
	shoppingList   *shopping.Service
	mediaRoot      = "media"
	mediaURL       = "/media/"
	pageSize       = defaultPageSize

	errNotAuthenticated = errors.New("auth: not authenticated")
)

// Options carries the optional handler dependencies.
type Options struct {
	MediaRoot string
	MediaURL  string
	PageSize  int
	// Shopping defaults to a service reading carts from the database.
	Shopping *shopping.Service
}

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(sm *scs.SessionManager, db *gorm.DB, opts Options) {
	sessionManager = sm
	database = db

	shoppingList = opts.Shopping
	if shoppingList == nil {
		shoppingList = shopping.NewService(shopping.GormCartReader{DB: db}, "")
	}

	mediaRoot = "media"
	if strings.TrimSpace(opts.MediaRoot) != "" {
		mediaRoot = opts.MediaRoot
	}
	mediaURL = "/media/"
	if strings.TrimSpace(opts.MediaURL) != "" {
		mediaURL = "/" + strings.Trim(opts.MediaURL, "/") + "/"
	}
	pageSize = defaultPageSize
	if opts.PageSize > 0 {
		pageSize = opts.PageSize
	}
}

func tokenFromHeader(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, tokenScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// TokenAuthentication loads the session named by the "Authorization: Token"
// header. Requests without a token get an empty anonymous session.
func TokenAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionManager == nil {
			next.ServeHTTP(w, r)
			return
		}

		token := tokenFromHeader(r.Header.Get("Authorization"))
		ctx, err := sessionManager.Load(r.Context(), token)
		if err != nil {
			applog.Error(r.Context(), "failed to load auth token", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Unable to verify credentials.")
			return
		}
		r = r.WithContext(ctx)

		next.ServeHTTP(w, r)

		// Touch the token so the idle timeout slides with activity.
		if token != "" && sessionManager.IdleTimeout > 0 && sessionManager.Status(ctx) == scs.Unmodified {
			if _, ok := currentUserID(r); ok {
				if _, _, err := sessionManager.Commit(ctx); err != nil {
					applog.Error(ctx, "failed to refresh auth token", "error", err)
				}
			}
		}
	})
}

// RequireAuthentication rejects anonymous requests with 401.
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentUserID(r); !ok {
			applog.Debug(r.Context(), "rejecting anonymous request", "path", r.URL.Path)
			writeJSONError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUserID(r *http.Request) (uint, bool) {
	if sessionManager == nil {
		return 0, false
	}
	id := sessionManager.GetInt(r.Context(), sessionUserIDKey)
	if id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func loadCurrentUser(r *http.Request) (*models.User, error) {
	id, ok := currentUserID(r)
	if !ok {
		return nil, errNotAuthenticated
	}
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}
	user := &models.User{}
	if err := database.WithContext(r.Context()).First(user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotAuthenticated
		}
		return nil, err
	}
	return user, nil
}

// requireStaff writes 401/403 and returns false unless the caller is staff.
func requireStaff(w http.ResponseWriter, r *http.Request) bool {
	user, err := loadCurrentUser(r)
	switch {
	case errors.Is(err, errNotAuthenticated):
		writeJSONError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return false
	case err != nil:
		writeStoreError(w, r, err, "failed to load current user")
		return false
	case !user.IsStaff:
		applog.Debug(r.Context(), "non-staff write rejected", "userID", user.ID, "path", r.URL.Path)
		writeJSONError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return false
	}
	return true
}

func findUserByEmail(r *http.Request, email string) (*models.User, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}

	user := &models.User{}
	err := database.WithContext(r.Context()).Where("lower(email) = ?", models.NormalizeEmail(email)).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

// establishSession binds the user to a fresh token and persists it.
func establishSession(r *http.Request, user *models.User) (string, error) {
	if sessionManager == nil {
		return "", errors.New("session manager not configured")
	}
	if err := sessionManager.RenewToken(r.Context()); err != nil {
		return "", err
	}
	sessionManager.Put(r.Context(), sessionUserIDKey, int(user.ID))
	token, _, err := sessionManager.Commit(r.Context())
	if err != nil {
		return "", err
	}
	return token, nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AuthToken string `json:"auth_token"`
}

const invalidCredentials = "Unable to log in with provided credentials."

// Login exchanges an email and password for an auth token.
func Login(w http.ResponseWriter, r *http.Request) {
	if sessionManager == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "Authentication is not available.")
		return
	}

	var payload loginRequest
	if !decodeAndValidate(w, r, &payload) {
		return
	}

	user, err := findUserByEmail(r, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(r.Context(), "login for unknown email")
			writeValidationErrors(w, ValidationErrors{nonFieldErrors: {invalidCredentials}})
			return
		}
		writeStoreError(w, r, err, "failed to load user during login")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		applog.Debug(r.Context(), "login with wrong password", "userID", user.ID)
		writeValidationErrors(w, ValidationErrors{nonFieldErrors: {invalidCredentials}})
		return
	}

	token, err := establishSession(r, user)
	if err != nil {
		applog.Error(r.Context(), "failed to establish session", "error", err, "userID", user.ID)
		writeJSONError(w, http.StatusInternalServerError, "Unable to sign in. Please try again.")
		return
	}

	applog.Info(r.Context(), "user logged in", "userID", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{AuthToken: token})
}

// Logout revokes the token used for the request.
func Logout(w http.ResponseWriter, r *http.Request) {
	if sessionManager != nil {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			applog.Error(r.Context(), "failed to destroy session", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Unable to log out. Please try again.")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
