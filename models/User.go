package models

import (
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// ReservedUsername cannot be registered because it collides with the /users/me/ route.
const ReservedUsername = "me"

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// User represents an application account that can authenticate with the platform.
type User struct {
	gorm.Model
	Email        string   `gorm:"uniqueIndex;not null;size:254"`
	Username     string   `gorm:"uniqueIndex;not null;size:150"`
	FirstName    string   `gorm:"size:150"`
	LastName     string   `gorm:"size:150"`
	PasswordHash string   `gorm:"not null"`
	IsStaff      bool     `gorm:"not null;default:false"`
	Recipes      []Recipe `gorm:"foreignKey:AuthorID"`
}

// ValidUsername reports whether value is an acceptable username.
func ValidUsername(value string) bool {
	if value == "" || value == ReservedUsername {
		return false
	}
	return usernamePattern.MatchString(value)
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
