package service

import (
	"context"
	"errors"
	"sync"

	"github.com/prperemyshlev/user-service/internal/domain"
)

const dummyPassword = "timing-equalizer-password"

// TraditionalStrategy authenticates email and password requests
type TraditionalStrategy struct {
	directory *AccountDirectory
	hasher    PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

// NewTraditionalStrategy creates a password strategy
func NewTraditionalStrategy(directory *AccountDirectory, hasher PasswordHasher) *TraditionalStrategy {
	return &TraditionalStrategy{
		directory: directory,
		hasher:    hasher,
	}
}

// Type returns the strategy type
func (s *TraditionalStrategy) Type() string {
	return StrategyTraditional
}

// CanHandle reports whether req is a password login
func (s *TraditionalStrategy) CanHandle(req AuthRequest) bool {
	r, ok := req.(*PasswordLoginRequest)
	return ok && r != nil
}

// Authenticate verifies the password of an active local account. Every rejection is
// ErrInvalidCredentials and costs one hash comparison, so responses do not reveal
// whether the email exists.
func (s *TraditionalStrategy) Authenticate(ctx context.Context, req AuthRequest) (*domain.AuthOutcome, error) {
	r, ok := req.(*PasswordLoginRequest)
	if !ok || r == nil {
		return nil, domain.ErrUnsupportedAuthMethod
	}

	user, err := s.directory.FindActiveByEmail(ctx, r.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(r.Password, s.dummy())
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.HasPassword() {
		s.hasher.Verify(r.Password, s.dummy())
		return nil, domain.ErrInvalidCredentials
	}

	if !s.hasher.Verify(r.Password, *user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	hasLocal, err := s.directory.HasLocalAuth(ctx, user)
	if err != nil {
		return nil, err
	}
	if !hasLocal {
		return nil, domain.ErrInvalidCredentials
	}

	return &domain.AuthOutcome{User: user, Strategy: s.Type()}, nil
}

// dummy returns a hash of the configured cost to compare against when no account matches
func (s *TraditionalStrategy) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
