package dto

import (
	"time"

	"github.com/prperemyshlev/user-service/internal/domain"
)

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	IsNewUser    bool     `json:"is_new_user"`
	User         UserInfo `json:"user"`
}

// UserInfo represents user information in response
type UserInfo struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// NewAuthResponse converts an authentication result
func NewAuthResponse(result *domain.AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    result.ExpiresIn,
		IsNewUser:    result.IsNewUser,
		User: UserInfo{
			ID:    result.UserID,
			Email: result.Email,
			Roles: result.Roles,
		},
	}
}

// ProfileResponse represents a user profile
type ProfileResponse struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	Roles            []string `json:"roles"`
	AuthProviders    []string `json:"auth_providers"`
	Enabled          bool     `json:"enabled"`
	AccountNonLocked bool     `json:"account_non_locked"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// NewProfileResponse converts a user profile
func NewProfileResponse(profile *domain.UserProfile) ProfileResponse {
	return ProfileResponse{
		ID:               profile.ID,
		Email:            profile.Email,
		Roles:            profile.Roles,
		AuthProviders:    profile.AuthProviders,
		Enabled:          profile.Enabled,
		AccountNonLocked: profile.AccountNonLocked,
		CreatedAt:        profile.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        profile.UpdatedAt.Format(time.RFC3339),
	}
}

// MeResponse represents the authenticated caller
type MeResponse struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// StrategiesResponse lists the available authentication strategies
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

// TokenValidityResponse reports whether a reset token is usable
type TokenValidityResponse struct {
	Valid bool `json:"valid"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
