package identity

import (
	"strings"
	"time"

	"github.com/rpublish/rpublish/pkg/pwdhash"
)

// UserPermissions are single characters that are present in the user's Permissions field
type UserPermissions string

const (
	UserPermissionAdmin  UserPermissions = "a"
	UserPermissionEditor UserPermissions = "e"
)

// User is a single record in users.json.
// The password digest is never exposed over the API.
type User struct {
	Username           string    `json:"user_name"`
	PasswordHash       string    `json:"password_hash"`
	CreatedDate        time.Time `json:"created_date"`
	PasswordUpdateDate time.Time `json:"password_update_date"`
	LastLoginDate      time.Time `json:"last_login_date"`
	Enabled            bool      `json:"enabled"`
	Permissions        string    `json:"permissions"`
}

func newUser(username, password string, permissions string) User {
	now := time.Now().UTC()
	return User{
		Username:           strings.TrimSpace(username),
		PasswordHash:       pwdhash.HashPasswordBase64(password),
		CreatedDate:        now,
		PasswordUpdateDate: now,
		LastLoginDate:      now,
		Enabled:            true,
		Permissions:        permissions,
	}
}

func IsValidPermission(p string) bool {
	return p == string(UserPermissionAdmin) || p == string(UserPermissionEditor)
}

func (u *User) HasPermission(p UserPermissions) bool {
	if strings.Contains(u.Permissions, string(UserPermissionAdmin)) {
		return true
	}
	return strings.Contains(u.Permissions, string(p))
}
