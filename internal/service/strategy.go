package service

import (
	"context"

	"github.com/prperemyshlev/user-service/internal/domain"
)

// Strategy type names reported for discovery
const (
	StrategyTraditional = "TRADITIONAL"
	StrategyGoogle      = "GOOGLE"
	StrategyLinkedIn    = "LINKEDIN"
)

// AuthRequest is an inbound authentication request. The set of request shapes is closed.
type AuthRequest interface {
	authRequest()
}

// PasswordLoginRequest authenticates with email and password
type PasswordLoginRequest struct {
	Email    string
	Password string
}

// FederatedLoginRequest authenticates with an identity token issued by Provider
type FederatedLoginRequest struct {
	Provider      string
	IdentityToken string
}

// LinkedInLoginRequest authenticates with a LinkedIn authorization code
type LinkedInLoginRequest struct {
	AuthorizationCode string
}

func (*PasswordLoginRequest) authRequest()  {}
func (*FederatedLoginRequest) authRequest() {}
func (*LinkedInLoginRequest) authRequest()  {}

// Strategy is a pluggable authentication method selected by request shape
type Strategy interface {
	CanHandle(req AuthRequest) bool
	Authenticate(ctx context.Context, req AuthRequest) (*domain.AuthOutcome, error)
	Type() string
}
