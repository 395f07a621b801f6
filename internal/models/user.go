package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered campus member.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never send to client
	FullName     string    `json:"full_name"`
	CollegeName  string    `json:"college_name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	IsBlocked    bool      `json:"is_blocked"`
	CreatedAt    time.Time `json:"created_at"`
	LastSeen     time.Time `json:"last_seen"`
}

// UserRegistration contains data needed for user registration
type UserRegistration struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=5"`
	FullName    string `json:"full_name" binding:"required,min=2,max=80"`
	CollegeName string `json:"college_name"`
	Phone       string `json:"phone"`
}

// UserLogin contains data needed for user login
type UserLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is what we return to the client
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	CollegeName string    `json:"college_name,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
}

// PublicProfile returns the client-safe view of a user.
func (u *User) PublicProfile() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		CollegeName: u.CollegeName,
		Phone:       u.Phone,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
	}
}
