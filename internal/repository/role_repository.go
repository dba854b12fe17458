package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/pkg/database"
)

type roleRepository struct {
	db *database.Postgres
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *database.Postgres) RoleRepository {
	return &roleRepository{db: db}
}

// GetByAuthority retrieves a role by its authority label
func (r *roleRepository) GetByAuthority(ctx context.Context, authority string) (*domain.Role, error) {
	query := `SELECT id, authority FROM roles WHERE authority = $1`

	role := &domain.Role{}
	err := r.db.Conn(ctx).QueryRowContext(ctx, query, authority).Scan(&role.ID, &role.Authority)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %s not found: %w", authority, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return role, nil
}

type authProviderRepository struct {
	db *database.Postgres
}

// NewAuthProviderRepository creates a new auth provider repository
func NewAuthProviderRepository(db *database.Postgres) AuthProviderRepository {
	return &authProviderRepository{db: db}
}

// GetByName retrieves an identity provider slot by name
func (r *authProviderRepository) GetByName(ctx context.Context, name string) (*domain.AuthProvider, error) {
	query := `SELECT id, name FROM auth_providers WHERE name = $1`

	provider := &domain.AuthProvider{}
	err := r.db.Conn(ctx).QueryRowContext(ctx, query, name).Scan(&provider.ID, &provider.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("auth provider %s not found: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get auth provider: %w", err)
	}

	return provider, nil
}
