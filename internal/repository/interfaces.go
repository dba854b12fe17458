package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/user-service/internal/domain"
)

// UserRepository defines methods for user operations. Users are returned with their roles loaded.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *domain.User) error
	// LockByID takes a row lock on the user for the rest of the surrounding transaction
	LockByID(ctx context.Context, id string) error
	AssignRole(ctx context.Context, userID string, roleID int64) error
}

// RoleRepository defines lookups on role reference data
type RoleRepository interface {
	GetByAuthority(ctx context.Context, authority string) (*domain.Role, error)
}

// AuthProviderRepository defines lookups on identity provider reference data
type AuthProviderRepository interface {
	GetByName(ctx context.Context, name string) (*domain.AuthProvider, error)
}

// UserAuthenticationRepository defines methods for user to provider links
type UserAuthenticationRepository interface {
	Create(ctx context.Context, link *domain.UserAuthentication) error
	GetByProviderAndSubject(ctx context.Context, providerName, providerUserID string) (*domain.UserAuthentication, error)
	ExistsByUserAndProvider(ctx context.Context, userID, providerName string) (bool, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.UserAuthentication, error)
}

// RefreshTokenRepository defines methods for refresh token operations
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.RefreshToken, error)
	Delete(ctx context.Context, tokenID string) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PasswordResetTokenRepository defines methods for password reset token operations
type PasswordResetTokenRepository interface {
	Create(ctx context.Context, token *domain.PasswordResetToken) error
	// GetValidByTokenHash never returns a row whose expiry is not after now
	GetValidByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordResetToken, error)
	Delete(ctx context.Context, tokenID string) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Transactor runs a unit of work atomically. Repository calls made with the context
// passed to fn take part in the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
