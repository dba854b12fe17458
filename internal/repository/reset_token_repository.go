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

// passwordResetTokenRepository implements PasswordResetTokenRepository interface
type passwordResetTokenRepository struct {
	db *database.Postgres
}

// NewPasswordResetTokenRepository creates a new password reset token repository
func NewPasswordResetTokenRepository(db *database.Postgres) PasswordResetTokenRepository {
	return &passwordResetTokenRepository{db: db}
}

// Create creates a new password reset token in the database
func (r *passwordResetTokenRepository) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reset token for user %s already exists: %w", token.UserID, ErrDuplicateToken)
		}
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	return nil
}

// GetValidByTokenHash retrieves an unexpired reset token by its hash
func (r *passwordResetTokenRepository) GetValidByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1 AND expires_at > $2
	`

	token := &domain.PasswordResetToken{}
	err := r.db.Conn(ctx).QueryRowContext(ctx, query, tokenHash, now).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reset token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return token, nil
}

// Delete deletes a reset token by ID
func (r *passwordResetTokenRepository) Delete(ctx context.Context, tokenID string) error {
	return deleteOne(ctx, r.db, `DELETE FROM password_reset_tokens WHERE id = $1`, tokenID, "reset token with id "+tokenID)
}

// DeleteByUserID deletes every reset token of a user
func (r *passwordResetTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	return deleteMany(ctx, r.db, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID)
}

// DeleteExpired deletes all reset tokens expired at now
func (r *passwordResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return deleteMany(ctx, r.db, `DELETE FROM password_reset_tokens WHERE expires_at <= $1`, now)
}
