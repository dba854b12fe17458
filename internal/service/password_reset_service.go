package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/repository"
)

// passwordResetService implements PasswordResetService interface
type passwordResetService struct {
	directory *AccountDirectory
	tokens    *TokenManager
	notifier  ResetNotifier
	tx        repository.Transactor
	metrics   *Metrics
	logger    *zap.Logger
}

// NewPasswordResetService creates a new password reset service
func NewPasswordResetService(
	directory *AccountDirectory,
	tokens *TokenManager,
	notifier ResetNotifier,
	tx repository.Transactor,
	metrics *Metrics,
	logger *zap.Logger,
) PasswordResetService {
	return &passwordResetService{
		directory: directory,
		tokens:    tokens,
		notifier:  notifier,
		tx:        tx,
		metrics:   metrics,
		logger:    logger.Named("password_reset"),
	}
}

// RequestPasswordReset issues a reset token and hands the link to the notifier. Unknown
// emails and accounts without a local password are ignored without an error.
func (s *passwordResetService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.metrics.resetRequested(ctx, "ignored")
			return nil
		}
		return err
	}

	hasLocal, err := s.directory.HasLocalAuth(ctx, user)
	if err != nil {
		return err
	}
	if !hasLocal {
		s.metrics.resetRequested(ctx, "ignored")
		s.logger.Debug("reset requested for account without local auth", zap.String("user_id", user.ID))
		return nil
	}

	link, err := s.tokens.IssueResetToken(ctx, user)
	if err != nil {
		return err
	}
	s.metrics.resetRequested(ctx, "issued")

	if err := s.notifier.NotifyPasswordReset(ctx, user.Email, link); err != nil {
		s.logger.Error("failed to deliver password reset link", zap.String("user_id", user.ID), zap.Error(err))
	}

	return nil
}

// ChangePassword applies a new password and consumes the reset token in one transaction
func (s *passwordResetService) ChangePassword(ctx context.Context, token, newPassword string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		record, err := s.tokens.ValidateResetToken(ctx, token)
		if err != nil {
			return err
		}

		user, err := s.directory.FindByID(ctx, record.UserID)
		if err != nil {
			return err
		}
		if !user.Enabled {
			return domain.ErrAccountDisabled
		}

		if err := s.directory.ChangePassword(ctx, user, newPassword); err != nil {
			return err
		}

		return s.tokens.ConsumeResetToken(ctx, record)
	})
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	return nil
}

// IsResetTokenValid reports whether token is a live reset token
func (s *passwordResetService) IsResetTokenValid(ctx context.Context, token string) bool {
	_, err := s.tokens.ValidateResetToken(ctx, token)
	if err != nil && !errors.Is(err, domain.ErrTokenNotFound) {
		s.logger.Error("failed to validate reset token", zap.Error(err))
	}
	return err == nil
}
