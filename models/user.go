package models

import "time"

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleMember  UserRole = "member"
)

// IsValid reports whether the role is one of the known roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	FullName       string    `json:"full_name,omitempty"`
	HashedPassword string    `json:"-"`
	Role           UserRole  `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for user registration.
type RegisterRequest struct {
	Email    string   `json:"email"`
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	Password string   `json:"password"`
	Role     UserRole `json:"role"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Actor is the authenticated user attached to every request by the JWT
// middleware. The service layer trusts it without re-validating credentials.
type Actor struct {
	ID       int64
	Username string
	Role     UserRole
}

// CanDelete reports whether the actor may delete a task created by creatorID.
func (a Actor) CanDelete(creatorID int64) bool {
	return a.ID == creatorID || a.Role == RoleAdmin || a.Role == RoleManager
}
