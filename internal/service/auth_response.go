package service

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/user-service/internal/domain"
)

// issueTokens mints an access token and a new refresh token for the user. The access token is
// built first so a persisted refresh token always reaches the caller.
func (s *authService) issueTokens(ctx context.Context, user *domain.User, isNewUser bool) (*domain.AuthResult, error) {
	accessToken, err := s.codec.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokens.IssueRefreshToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return s.result(ctx, user, accessToken, refreshToken, isNewUser), nil
}

func (s *authService) result(ctx context.Context, user *domain.User, accessToken, refreshToken string, isNewUser bool) *domain.AuthResult {
	s.metrics.tokenIssued(ctx, "access")

	return &domain.AuthResult{
		UserID:       user.ID,
		Email:        user.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Roles:        user.Authorities(),
		IsNewUser:    isNewUser,
		ExpiresIn:    s.codec.AccessTokenExpiry(),
	}
}
