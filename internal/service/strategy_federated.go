package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prperemyshlev/user-service/internal/domain"
)

// FederatedStrategy authenticates identity tokens of one third-party provider
type FederatedStrategy struct {
	strategyType string
	provider     string
	client       IdentityProviderClient
	directory    *AccountDirectory
}

// NewGoogleStrategy creates a federated strategy for Google identity tokens
func NewGoogleStrategy(client IdentityProviderClient, directory *AccountDirectory) *FederatedStrategy {
	return &FederatedStrategy{
		strategyType: StrategyGoogle,
		provider:     domain.ProviderGoogle,
		client:       client,
		directory:    directory,
	}
}

// Type returns the strategy type
func (s *FederatedStrategy) Type() string {
	return s.strategyType
}

// CanHandle reports whether req is a federated login for this provider
func (s *FederatedStrategy) CanHandle(req AuthRequest) bool {
	r, ok := req.(*FederatedLoginRequest)
	return ok && r != nil && r.Provider == s.provider
}

// Authenticate verifies the identity token and resolves or creates the local user
func (s *FederatedStrategy) Authenticate(ctx context.Context, req AuthRequest) (*domain.AuthOutcome, error) {
	r, ok := req.(*FederatedLoginRequest)
	if !ok || r == nil {
		return nil, domain.ErrUnsupportedAuthMethod
	}

	profile, err := s.client.Verify(ctx, r.IdentityToken)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityVerificationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrIdentityVerificationFailed, err)
	}

	if !profile.EmailVerified || profile.Email == "" || profile.SubjectID == "" {
		return nil, fmt.Errorf("%w: unverified identity", domain.ErrIdentityVerificationFailed)
	}

	user, isNew, err := s.directory.CreateOrUpdateFederatedUser(ctx, profile.Email, s.provider, profile.SubjectID)
	if err != nil {
		return nil, err
	}

	if !user.Enabled {
		return nil, domain.ErrAccountDisabled
	}
	if !user.AccountNonLocked {
		return nil, domain.ErrAccountLocked
	}

	return &domain.AuthOutcome{User: user, IsNewUser: isNew, Strategy: s.Type()}, nil
}
