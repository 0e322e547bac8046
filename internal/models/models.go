package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the profile returned by the remote API. The ID is server-assigned.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginCredentials is the login form payload. It is never persisted.
type LoginCredentials struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// RegisterCredentials is the registration form payload.
// ConfirmPassword is checked locally and never sent to the API.
type RegisterCredentials struct {
	Username        string `json:"username" form:"username" validate:"min=2"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"min=6"`
	ConfirmPassword string `json:"-" form:"confirmPassword" validate:"eqfield=Password"`
}

// RegisterRequest is the wire body of POST /user/register
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by the login and refresh endpoints
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Account is the dev API's persisted user row
type Account struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Profile returns the public view of the account
func (a *Account) Profile() User {
	return User{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
	}
}

// AutoMigrate creates or updates the dev API schema
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{})
}
