package users

import "time"

// Account is a user account as seen by administrators. The password digest
// is never loaded.
type Account struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	FullName           string     `json:"full_name,omitempty"`
	Email              string     `json:"email,omitempty"`
	Role               string     `json:"role"`
	DUN                string     `json:"dun,omitempty"`
	IsActive           bool       `json:"is_active"`
	MustChangePassword bool       `json:"must_change_password"`
	LastLogin          *time.Time `json:"last_login,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// NewAccount is the input for creating an account.
type NewAccount struct {
	Username string
	Password string
	FullName string
	Email    string
	Role     string
	DUN      string
}

// accountRecord is what gets inserted.
type accountRecord struct {
	Username     string
	PasswordHash string
	FullName     string
	Email        string
	Role         string
	DUN          string
}
