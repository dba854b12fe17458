package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/domain"
)

// authService implements AuthService interface
type authService struct {
	dispatcher *Dispatcher
	directory  *AccountDirectory
	tokens     *TokenManager
	codec      AccessTokenCodec
	revoker    SessionRevoker
	metrics    *Metrics
	logger     *zap.Logger
}

// NewAuthService creates a new auth service. revoker and metrics may be nil.
func NewAuthService(
	dispatcher *Dispatcher,
	directory *AccountDirectory,
	tokens *TokenManager,
	codec AccessTokenCodec,
	revoker SessionRevoker,
	metrics *Metrics,
	logger *zap.Logger,
) AuthService {
	return &authService{
		dispatcher: dispatcher,
		directory:  directory,
		tokens:     tokens,
		codec:      codec,
		revoker:    revoker,
		metrics:    metrics,
		logger:     logger.Named("auth_service"),
	}
}

// Login authenticates a user with email and password
func (s *authService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	outcome, err := s.authenticate(ctx, &PasswordLoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, outcome.User, false)
}

// Register registers a new local user
func (s *authService) Register(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	user, err := s.directory.CreateLocalUser(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user, true)
}

// LoginWithFederatedProvider authenticates a Google identity token
func (s *authService) LoginWithFederatedProvider(ctx context.Context, identityToken string) (*domain.AuthResult, error) {
	outcome, err := s.authenticate(ctx, &FederatedLoginRequest{Provider: domain.ProviderGoogle, IdentityToken: identityToken})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, outcome.User, outcome.IsNewUser)
}

// LoginWithLinkedIn authenticates a LinkedIn authorization code
func (s *authService) LoginWithLinkedIn(ctx context.Context, authorizationCode string) (*domain.AuthResult, error) {
	outcome, err := s.authenticate(ctx, &LinkedInLoginRequest{AuthorizationCode: authorizationCode})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, outcome.User, outcome.IsNewUser)
}

// Refresh exchanges a refresh token for a new access token and a rotated refresh token
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidCredentials
	}

	email, err := s.tokens.ResolveOwnerByRefreshToken(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenNotFound), errors.Is(err, domain.ErrTokenExpired):
			return nil, fmt.Errorf("refresh token rejected: %w", domain.ErrInvalidCredentials)
		default:
			return nil, err
		}
	}

	user, err := s.directory.FindActiveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.codec.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	rotated, err := s.tokens.RotateRefreshToken(ctx, refreshToken, user)
	if err != nil {
		return nil, err
	}

	return s.result(ctx, user, accessToken, rotated, false), nil
}

// Logout invalidates the refresh token; failures are logged and never returned
func (s *authService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	if err := s.tokens.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		s.logger.Warn("logout could not invalidate refresh token", zap.Error(err))
	}
}

// ValidateAccessToken verifies an access token and rejects tokens revoked by an account state change
func (s *authService) ValidateAccessToken(ctx context.Context, token string) (*domain.AccessClaims, error) {
	claims, err := s.codec.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.UserID, claims.IssuedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("access token revoked: %w", domain.ErrInvalidCredentials)
		}
	}

	return claims, nil
}

// AvailableStrategies lists the registered authentication strategies
func (s *authService) AvailableStrategies() []string {
	return s.dispatcher.AvailableStrategies()
}

func (s *authService) authenticate(ctx context.Context, req AuthRequest) (*domain.AuthOutcome, error) {
	outcome, err := s.dispatcher.Authenticate(ctx, req)
	s.metrics.authAttempt(ctx, s.dispatcher.strategyFor(req), err)

	if err != nil {
		s.logger.Debug("authentication failed",
			zap.String("strategy", s.dispatcher.strategyFor(req)),
			zap.Error(err),
		)
		return nil, err
	}

	return outcome, nil
}
