package auth

import (
	"time"

	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/rbac"
)

// User is a stored account as read by the login path. Role is the raw stored
// value; it is parsed before any decision is made on it.
type User struct {
	ID                 int64
	Username           string
	PasswordHash       string
	FullName           string
	Email              string
	Role               string
	DUN                string
	IsActive           bool
	MustChangePassword bool
	LastLogin          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// UserInfo is the sanitized account view returned to clients. It never
// carries the password digest.
type UserInfo struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	FullName           string    `json:"full_name,omitempty"`
	Email              string    `json:"email,omitempty"`
	Role               rbac.Role `json:"role"`
	DUN                string    `json:"dun,omitempty"`
	MustChangePassword bool      `json:"must_change_password"`
}

// LoginInput carries login credentials and request metadata.
type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	AccessToken        string    `json:"access_token"`
	TokenType          string    `json:"token_type"`
	ExpiresAt          time.Time `json:"expires_at"`
	User               UserInfo  `json:"user"`
	MustChangePassword bool      `json:"must_change_password"`
}

// ChangePasswordInput carries a self-service password change.
type ChangePasswordInput struct {
	Current   string
	Next      string
	IPAddress string
}

// InfoFromPrincipal projects a principal onto the client view.
func InfoFromPrincipal(p authz.Principal) UserInfo {
	return UserInfo{
		ID:                 p.ID,
		Username:           p.Username,
		FullName:           p.FullName,
		Email:              p.Email,
		Role:               p.Role,
		DUN:                p.DUN,
		MustChangePassword: p.MustChangePassword,
	}
}
