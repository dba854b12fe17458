package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/pkg/database"
)

const userAuthenticationSelect = `
	SELECT ua.id, ua.user_id, ua.provider_id, ap.name, ua.provider_user_id, ua.created_at, ua.updated_at
	FROM user_authentications ua
	JOIN auth_providers ap ON ap.id = ua.provider_id
`

// userAuthenticationRepository implements UserAuthenticationRepository interface
type userAuthenticationRepository struct {
	db *database.Postgres
}

// NewUserAuthenticationRepository creates a new user authentication repository
func NewUserAuthenticationRepository(db *database.Postgres) UserAuthenticationRepository {
	return &userAuthenticationRepository{db: db}
}

// Create links a user to an identity provider
func (r *userAuthenticationRepository) Create(ctx context.Context, link *domain.UserAuthentication) error {
	query := `
		INSERT INTO user_authentications (id, user_id, provider_id, provider_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	// Generate UUID if not provided
	if link.ID == "" {
		link.ID = uuid.New().String()
	}

	now := time.Now()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = link.CreatedAt

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		link.ID,
		link.UserID,
		link.ProviderID,
		link.ProviderUserID,
		link.CreatedAt,
		link.UpdatedAt,
	)

	if err != nil {
		// Check for unique constraint violation on (user, provider) or (provider, subject)
		if isUniqueViolation(err) {
			return fmt.Errorf("provider %d link for user %s already exists: %w", link.ProviderID, link.UserID, ErrDuplicateAuthLink)
		}
		return fmt.Errorf("failed to create user authentication: %w", err)
	}

	return nil
}

// GetByProviderAndSubject retrieves a link by provider name and provider user ID
func (r *userAuthenticationRepository) GetByProviderAndSubject(ctx context.Context, providerName, providerUserID string) (*domain.UserAuthentication, error) {
	query := userAuthenticationSelect + `WHERE ap.name = $1 AND ua.provider_user_id = $2`

	link, err := scanUserAuthentication(r.db.Conn(ctx).QueryRowContext(ctx, query, providerName, providerUserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s link not found: %w", providerName, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user authentication: %w", err)
	}

	return link, nil
}

// ExistsByUserAndProvider checks whether the user is linked to the provider
func (r *userAuthenticationRepository) ExistsByUserAndProvider(ctx context.Context, userID, providerName string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM user_authentications ua
			JOIN auth_providers ap ON ap.id = ua.provider_id
			WHERE ua.user_id = $1 AND ap.name = $2
		)
	`

	var exists bool
	if err := r.db.Conn(ctx).QueryRowContext(ctx, query, userID, providerName).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user authentication: %w", err)
	}

	return exists, nil
}

// GetByUserID retrieves all provider links of a user
func (r *userAuthenticationRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.UserAuthentication, error) {
	query := userAuthenticationSelect + `WHERE ua.user_id = $1 ORDER BY ua.created_at`

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user authentications by user id: %w", err)
	}
	defer rows.Close()

	var links []*domain.UserAuthentication
	for rows.Next() {
		link, err := scanUserAuthentication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user authentication: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user authentications: %w", err)
	}

	return links, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserAuthentication(row rowScanner) (*domain.UserAuthentication, error) {
	link := &domain.UserAuthentication{}
	err := row.Scan(
		&link.ID,
		&link.UserID,
		&link.ProviderID,
		&link.ProviderName,
		&link.ProviderUserID,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return link, nil
}
