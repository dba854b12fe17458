package service

import (
	"context"
	"time"

	"github.com/prperemyshlev/user-service/internal/domain"
)

// PasswordHasher hashes and verifies local credentials
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Verify(raw, hash string) bool
}

// AccessTokenCodec builds and verifies signed access tokens
type AccessTokenCodec interface {
	IssueAccessToken(user *domain.User) (string, error)
	VerifyAccessToken(token string) (*domain.AccessClaims, error)
	AccessTokenExpiry() int
}

// IdentityProviderClient verifies a third-party identity token. Every rejection,
// including timeouts, is reported as domain.ErrIdentityVerificationFailed.
type IdentityProviderClient interface {
	Verify(ctx context.Context, identityToken string) (*domain.IdentityProfile, error)
}

// ResetNotifier delivers a password reset link to the account owner
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email string, link *domain.ResetLink) error
}

// SessionRevoker invalidates access tokens already issued to a user
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
	IsRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// AuthService defines methods for authentication operations
type AuthService interface {
	Login(ctx context.Context, email, password string) (*domain.AuthResult, error)
	Register(ctx context.Context, email, password string) (*domain.AuthResult, error)
	LoginWithFederatedProvider(ctx context.Context, identityToken string) (*domain.AuthResult, error)
	LoginWithLinkedIn(ctx context.Context, authorizationCode string) (*domain.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	// Logout never fails; an unknown or malformed token is ignored
	Logout(ctx context.Context, refreshToken string)
	ValidateAccessToken(ctx context.Context, token string) (*domain.AccessClaims, error)
	AvailableStrategies() []string
}

// AccountService defines account administration operations
type AccountService interface {
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	Activate(ctx context.Context, userID string) error
	Deactivate(ctx context.Context, userID string) error
	Lock(ctx context.Context, userID string) error
	Unlock(ctx context.Context, userID string) error
}

// PasswordResetService defines the password reset flow
type PasswordResetService interface {
	RequestPasswordReset(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, token, newPassword string) error
	IsResetTokenValid(ctx context.Context, token string) bool
}
