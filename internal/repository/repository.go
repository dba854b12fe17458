package repository

import (
	"errors"

	"github.com/lib/pq"
	"github.com/prperemyshlev/user-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User               UserRepository
	Role               RoleRepository
	AuthProvider       AuthProviderRepository
	UserAuthentication UserAuthenticationRepository
	RefreshToken       RefreshTokenRepository
	PasswordResetToken PasswordResetTokenRepository
	Tx                 Transactor
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:               NewUserRepository(db),
		Role:               NewRoleRepository(db),
		AuthProvider:       NewAuthProviderRepository(db),
		UserAuthentication: NewUserAuthenticationRepository(db),
		RefreshToken:       NewRefreshTokenRepository(db),
		PasswordResetToken: NewPasswordResetTokenRepository(db),
		Tx:                 db,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
