package dto

import "time"

// RegisterRequest creates a workspace together with its owner
type RegisterRequest struct {
	WorkspaceName string `json:"workspace_name" validate:"required,min=2,max=255" example:"Acme Marketing"`
	Currency      string `json:"currency" validate:"omitempty,len=3,alpha" example:"USD"`
	Timezone      string `json:"timezone" validate:"omitempty,timezone" example:"Europe/Berlin"`
	FullName      string `json:"full_name" validate:"required,min=2,max=255" example:"Jane Doe"`
	Email         string `json:"email" validate:"required,email,max=255" example:"jane@acme.io"`
	Password      string `json:"password" validate:"required,min=8,max=100,password_strength" example:"SecurePass123!"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"jane@acme.io"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// RefreshTokenRequest exchanges a refresh token for a new token pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke alongside the access token
type LogoutRequest struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// UserInfo represents user information returned in auth responses
type UserInfo struct {
	UUID        string     `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email       string     `json:"email" example:"jane@acme.io"`
	FullName    string     `json:"full_name" example:"Jane Doe"`
	Role        string     `json:"role" example:"owner"`
	IsActive    bool       `json:"is_active" example:"true"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   string     `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// WorkspaceInfo represents the tenant a user belongs to
type WorkspaceInfo struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Currency string `json:"currency"`
	Timezone string `json:"timezone"`
}

// TokenInfo is an access/refresh token pair
type TokenInfo struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type" example:"Bearer"`
	ExpiresIn    int       `json:"expires_in" example:"86400"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	User      UserInfo      `json:"user"`
	Workspace WorkspaceInfo `json:"workspace"`
	Tokens    TokenInfo     `json:"tokens"`
}

// MeResponse describes the authenticated principal
type MeResponse struct {
	User      UserInfo      `json:"user"`
	Workspace WorkspaceInfo `json:"workspace"`
}
