// Package memory provides an in-process credential store with the same uniqueness
// and transaction semantics as the PostgreSQL repositories.
package memory

import (
	"context"
	"sync"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/repository"
)

type txKey struct{}

type state struct {
	users         map[string]domain.User
	userRoles     map[string][]int64
	links         map[string]domain.UserAuthentication
	refreshTokens map[string]domain.RefreshToken
	resetTokens   map[string]domain.PasswordResetToken
}

func (s state) clone() state {
	c := state{
		users:         make(map[string]domain.User, len(s.users)),
		userRoles:     make(map[string][]int64, len(s.userRoles)),
		links:         make(map[string]domain.UserAuthentication, len(s.links)),
		refreshTokens: make(map[string]domain.RefreshToken, len(s.refreshTokens)),
		resetTokens:   make(map[string]domain.PasswordResetToken, len(s.resetTokens)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.userRoles {
		c.userRoles[k] = append([]int64(nil), v...)
	}
	for k, v := range s.links {
		c.links[k] = v
	}
	for k, v := range s.refreshTokens {
		c.refreshTokens[k] = v
	}
	for k, v := range s.resetTokens {
		c.resetTokens[k] = v
	}
	return c
}

// Store holds all records. Transactions are serialized and roll back by restoring a snapshot.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	roles     []domain.Role
	providers []domain.AuthProvider
	data      state
}

// NewStore creates an empty store seeded with the standard roles and providers
func NewStore() *Store {
	return &Store{
		roles: []domain.Role{
			{ID: 1, Authority: domain.RoleUser},
			{ID: 2, Authority: domain.RoleAdmin},
		},
		providers: []domain.AuthProvider{
			{ID: 1, Name: domain.ProviderLocal},
			{ID: 2, Name: domain.ProviderGoogle},
			{ID: 3, Name: domain.ProviderLinkedIn},
		},
		data: state{}.clone(),
	}
}

// NewRepositories creates a store and exposes it through the repository interfaces
func NewRepositories() (*repository.Repositories, *Store) {
	s := NewStore()
	return &repository.Repositories{
		User:               &userRepository{s: s},
		Role:               &roleRepository{s: s},
		AuthProvider:       &authProviderRepository{s: s},
		UserAuthentication: &userAuthenticationRepository{s: s},
		RefreshToken:       &refreshTokenRepository{s: s},
		PasswordResetToken: &resetTokenRepository{s: s},
		Tx:                 s,
	}, s
}

// WithinTx runs fn atomically; a nested call joins the outer transaction
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}

	return nil
}

// RefreshTokenCount returns the number of stored refresh tokens of a user
func (s *Store) RefreshTokenCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.data.refreshTokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// ResetTokenCount returns the number of stored reset tokens of a user
func (s *Store) ResetTokenCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.data.resetTokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

func (s *Store) roleByID(id int64) (domain.Role, bool) {
	for _, r := range s.roles {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Role{}, false
}

func (s *Store) providerByName(name string) (domain.AuthProvider, bool) {
	for _, p := range s.providers {
		if p.Name == name {
			return p, true
		}
	}
	return domain.AuthProvider{}, false
}

func (s *Store) providerByID(id int64) (domain.AuthProvider, bool) {
	for _, p := range s.providers {
		if p.ID == id {
			return p, true
		}
	}
	return domain.AuthProvider{}, false
}
