package domain

import "github.com/shopspring/decimal"

// Role drives UI-level gating only; the server is the authorization boundary.
type Role string

const (
	RoleUser    Role = "USER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// WalletSummary is the wallet projection embedded in user payloads.
type WalletSummary struct {
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency,omitempty"`
	IsVerified bool            `json:"isVerified"`
}

type User struct {
	ID         int64          `json:"id"`
	Username   string         `json:"username"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone,omitempty"`
	FullName   string         `json:"fullName,omitempty"`
	Role       Role           `json:"role"`
	IsVerified bool           `json:"isVerified"`
	Wallet     *WalletSummary `json:"wallet,omitempty"`
	CreatedAt  *Timestamp     `json:"createdAt,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) IsManager() bool {
	return u != nil && u.Role == RoleManager
}

// CanAccessAdmin is true for admins and managers.
func (u *User) CanAccessAdmin() bool {
	return u.IsAdmin() || u.IsManager()
}

// UserInput is the admin-side partial update of a user.
type UserInput struct {
	Username   *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	FullName   *string `json:"fullName,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Role       *Role   `json:"role,omitempty" validate:"omitempty,oneof=USER ADMIN MANAGER"`
	IsVerified *bool   `json:"isVerified,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// RegisterResponse acknowledges that a verification code was issued.
type RegisterResponse struct {
	Message string `json:"message,omitempty"`
	Email   string `json:"email,omitempty"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,number"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by verify and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
