package service

import (
	"context"

	"github.com/prperemyshlev/user-service/internal/domain"
)

// LinkedInStrategy recognizes LinkedIn requests but cannot authenticate them yet
type LinkedInStrategy struct{}

// NewLinkedInStrategy creates the LinkedIn strategy
func NewLinkedInStrategy() *LinkedInStrategy {
	return &LinkedInStrategy{}
}

func (s *LinkedInStrategy) Type() string {
	return StrategyLinkedIn
}

func (s *LinkedInStrategy) CanHandle(req AuthRequest) bool {
	r, ok := req.(*LinkedInLoginRequest)
	return ok && r != nil
}

// Authenticate always fails with ErrNotImplemented.
// TODO: exchange the authorization code at the LinkedIn token endpoint once client credentials are provisioned
func (s *LinkedInStrategy) Authenticate(ctx context.Context, req AuthRequest) (*domain.AuthOutcome, error) {
	return nil, domain.ErrNotImplemented
}
