package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/repository"
	"github.com/prperemyshlev/user-service/internal/utils"
)

// OpaqueTokenGenerator produces unguessable token values
type OpaqueTokenGenerator interface {
	NewOpaqueToken() (string, error)
}

// TokenManagerConfig holds token lifetimes and the reset link base
type TokenManagerConfig struct {
	RefreshTokenExpiry time.Duration
	ResetTokenExpiry   time.Duration
	ResetURL           string
}

// TokenManager owns the refresh and reset token lifecycle. At most one live token of each
// kind exists per user: issuance deletes the previous ones under the user's row lock.
type TokenManager struct {
	repos     *repository.Repositories
	generator OpaqueTokenGenerator
	cfg       TokenManagerConfig
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager(repos *repository.Repositories, generator OpaqueTokenGenerator, cfg TokenManagerConfig, metrics *Metrics, logger *zap.Logger) *TokenManager {
	return &TokenManager{
		repos:     repos,
		generator: generator,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger.Named("token_manager"),
		now:       time.Now,
	}
}

// RefreshTokenExpiry returns the refresh token lifetime in seconds
func (m *TokenManager) RefreshTokenExpiry() int {
	return int(m.cfg.RefreshTokenExpiry.Seconds())
}

// IssueRefreshToken replaces every refresh token of the user with a new one
func (m *TokenManager) IssueRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	var value string

	err := m.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		value, err = m.replaceRefreshToken(ctx, user)
		return err
	})
	if err != nil {
		return "", err
	}

	m.metrics.tokenIssued(ctx, "refresh")
	return value, nil
}

// replaceRefreshToken must run inside a transaction
func (m *TokenManager) replaceRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	value, err := m.generator.NewOpaqueToken()
	if err != nil {
		return "", err
	}

	if err := m.lockUser(ctx, user.ID); err != nil {
		return "", err
	}

	if _, err := m.repos.RefreshToken.DeleteByUserID(ctx, user.ID); err != nil {
		return "", fmt.Errorf("failed to rotate refresh tokens: %w", err)
	}

	token := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(value),
		ExpiresAt: m.now().Add(m.cfg.RefreshTokenExpiry),
	}
	if err := m.repos.RefreshToken.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to save refresh token: %w", err)
	}

	return value, nil
}

// ValidateRefreshToken reports whether value is a live refresh token owned by user.
// An expired record is deleted as a side effect.
func (m *TokenManager) ValidateRefreshToken(ctx context.Context, value string, user *domain.User) (bool, error) {
	valid := false

	err := m.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		token, err := m.repos.RefreshToken.GetByTokenHash(ctx, utils.HashToken(value))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("failed to get refresh token: %w", err)
		}

		if token.UserID != user.ID {
			return nil
		}

		if token.IsExpired(m.now()) {
			return m.deleteRefreshToken(ctx, token)
		}

		valid = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return valid, nil
}

// ResolveOwnerByRefreshToken returns the email of the refresh token owner
func (m *TokenManager) ResolveOwnerByRefreshToken(ctx context.Context, value string) (string, error) {
	var email string
	expired := false

	err := m.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		token, err := m.repos.RefreshToken.GetByTokenHash(ctx, utils.HashToken(value))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrTokenNotFound
			}
			return fmt.Errorf("failed to get refresh token: %w", err)
		}

		// the delete must commit, so expiry is reported after the transaction
		if token.IsExpired(m.now()) {
			expired = true
			return m.deleteRefreshToken(ctx, token)
		}

		owner, err := m.repos.User.GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("failed to get token owner: %w", err)
		}

		email = owner.Email
		return nil
	})
	if err != nil {
		return "", err
	}

	if expired {
		return "", domain.ErrTokenExpired
	}

	return email, nil
}

// RotateRefreshToken validates presented against user and, when valid, replaces it with a
// new token. Both steps run under the user's row lock, so a value can be rotated only once.
func (m *TokenManager) RotateRefreshToken(ctx context.Context, presented string, user *domain.User) (string, error) {
	var issued string

	err := m.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := m.lockUser(ctx, user.ID); err != nil {
			return err
		}

		valid, err := m.ValidateRefreshToken(ctx, presented, user)
		if err != nil || !valid {
			return err
		}

		issued, err = m.replaceRefreshToken(ctx, user)
		return err
	})
	if err != nil {
		return "", err
	}

	if issued == "" {
		return "", fmt.Errorf("refresh token rejected: %w", domain.ErrInvalidCredentials)
	}

	m.metrics.tokenIssued(ctx, "refresh")
	return issued, nil
}

// InvalidateRefreshToken deletes a refresh token; an absent token is not an error
func (m *TokenManager) InvalidateRefreshToken(ctx context.Context, value string) error {
	err := m.repos.RefreshToken.DeleteByTokenHash(ctx, utils.HashToken(value))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to invalidate refresh token: %w", err)
	}
	return nil
}

// IssueResetToken replaces every reset token of the user with a new one and builds the reset link
func (m *TokenManager) IssueResetToken(ctx context.Context, user *domain.User) (*domain.ResetLink, error) {
	value, err := m.generator.NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	expiresAt := m.now().Add(m.cfg.ResetTokenExpiry)

	err = m.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := m.lockUser(ctx, user.ID); err != nil {
			return err
		}

		if _, err := m.repos.PasswordResetToken.DeleteByUserID(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to rotate reset tokens: %w", err)
		}

		token := &domain.PasswordResetToken{
			UserID:    user.ID,
			TokenHash: utils.HashToken(value),
			ExpiresAt: expiresAt,
		}
		if err := m.repos.PasswordResetToken.Create(ctx, token); err != nil {
			return fmt.Errorf("failed to save reset token: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.metrics.tokenIssued(ctx, "password_reset")

	return &domain.ResetLink{
		Token:     value,
		Link:      m.cfg.ResetURL + "?token=" + url.QueryEscape(value),
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateResetToken returns the live reset token record for value
func (m *TokenManager) ValidateResetToken(ctx context.Context, value string) (*domain.PasswordResetToken, error) {
	if value == "" {
		return nil, domain.ErrTokenNotFound
	}

	token, err := m.repos.PasswordResetToken.GetValidByTokenHash(ctx, utils.HashToken(value), m.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return token, nil
}

// ConsumeResetToken deletes a reset token. Consuming an already consumed token fails, which
// rolls back a password change running in the same transaction.
func (m *TokenManager) ConsumeResetToken(ctx context.Context, token *domain.PasswordResetToken) error {
	if err := m.repos.PasswordResetToken.Delete(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrTokenNotFound
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	return nil
}

// SweepExpired deletes expired refresh and reset tokens
func (m *TokenManager) SweepExpired(ctx context.Context) (int64, int64, error) {
	now := m.now()

	refreshed, err := m.repos.RefreshToken.DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sweep refresh tokens: %w", err)
	}
	m.metrics.swept(ctx, "refresh", refreshed)

	reset, err := m.repos.PasswordResetToken.DeleteExpired(ctx, now)
	if err != nil {
		return refreshed, 0, fmt.Errorf("failed to sweep reset tokens: %w", err)
	}
	m.metrics.swept(ctx, "password_reset", reset)

	m.logger.Debug("expired tokens swept",
		zap.Int64("refresh_tokens", refreshed),
		zap.Int64("reset_tokens", reset),
	)

	return refreshed, reset, nil
}

func (m *TokenManager) lockUser(ctx context.Context, userID string) error {
	if err := m.repos.User.LockByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to lock user: %w", err)
	}
	return nil
}

// deleteRefreshToken removes an expired record; a concurrent delete of the same record is fine
func (m *TokenManager) deleteRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	err := m.repos.RefreshToken.Delete(ctx, token.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to delete expired refresh token: %w", err)
	}
	return nil
}
