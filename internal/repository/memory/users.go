package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/repository"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.data.users {
		if u.Email == user.Email {
			return fmt.Errorf("user with email %s already exists: %w", user.Email, repository.ErrDuplicateEmail)
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = user.CreatedAt

	stored := *user
	stored.Roles = nil
	r.s.data.users[user.ID] = stored
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.data.users {
		if u.Email == email {
			return r.withRoles(u), nil
		}
	}
	return nil, fmt.Errorf("user with email %s not found: %w", email, repository.ErrNotFound)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.data.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found: %w", id, repository.ErrNotFound)
	}
	return r.withRoles(u), nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.data.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.data.users[user.ID]
	if !ok {
		return fmt.Errorf("user with id %s not found: %w", user.ID, repository.ErrNotFound)
	}

	user.UpdatedAt = time.Now()
	stored.PasswordHash = user.PasswordHash
	stored.Enabled = user.Enabled
	stored.AccountNonLocked = user.AccountNonLocked
	stored.UpdatedAt = user.UpdatedAt
	r.s.data.users[user.ID] = stored
	return nil
}

// LockByID only checks existence; transactions are already serialized by the store
func (r *userRepository) LockByID(ctx context.Context, id string) error {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.data.users[id]; !ok {
		return fmt.Errorf("user with id %s not found: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *userRepository) AssignRole(ctx context.Context, userID string, roleID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.users[userID]; !ok {
		return fmt.Errorf("user with id %s not found: %w", userID, repository.ErrNotFound)
	}
	if _, ok := r.s.roleByID(roleID); !ok {
		return fmt.Errorf("role %d not found: %w", roleID, repository.ErrNotFound)
	}
	for _, id := range r.s.data.userRoles[userID] {
		if id == roleID {
			return nil
		}
	}
	r.s.data.userRoles[userID] = append(r.s.data.userRoles[userID], roleID)
	return nil
}

func (r *userRepository) withRoles(u domain.User) *domain.User {
	user := u
	user.Roles = nil
	for _, id := range r.s.data.userRoles[u.ID] {
		if role, ok := r.s.roleByID(id); ok {
			user.Roles = append(user.Roles, role)
		}
	}
	sort.Slice(user.Roles, func(i, j int) bool { return user.Roles[i].Authority < user.Roles[j].Authority })
	return &user
}

type roleRepository struct {
	s *Store
}

func (r *roleRepository) GetByAuthority(ctx context.Context, authority string) (*domain.Role, error) {
	for _, role := range r.s.roles {
		if role.Authority == authority {
			found := role
			return &found, nil
		}
	}
	return nil, fmt.Errorf("role %s not found: %w", authority, repository.ErrNotFound)
}

type authProviderRepository struct {
	s *Store
}

func (r *authProviderRepository) GetByName(ctx context.Context, name string) (*domain.AuthProvider, error) {
	if p, ok := r.s.providerByName(name); ok {
		return &p, nil
	}
	return nil, fmt.Errorf("auth provider %s not found: %w", name, repository.ErrNotFound)
}

type userAuthenticationRepository struct {
	s *Store
}

func (r *userAuthenticationRepository) Create(ctx context.Context, link *domain.UserAuthentication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	provider, ok := r.s.providerByID(link.ProviderID)
	if !ok {
		return fmt.Errorf("auth provider %d not found: %w", link.ProviderID, repository.ErrNotFound)
	}
	if _, ok := r.s.data.users[link.UserID]; !ok {
		return fmt.Errorf("user with id %s not found: %w", link.UserID, repository.ErrNotFound)
	}
	for _, l := range r.s.data.links {
		if l.ProviderID == link.ProviderID && (l.UserID == link.UserID || l.ProviderUserID == link.ProviderUserID) {
			return fmt.Errorf("provider %d link for user %s already exists: %w", link.ProviderID, link.UserID, repository.ErrDuplicateAuthLink)
		}
	}

	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	link.UpdatedAt = link.CreatedAt
	link.ProviderName = provider.Name

	r.s.data.links[link.ID] = *link
	return nil
}

func (r *userAuthenticationRepository) GetByProviderAndSubject(ctx context.Context, providerName, providerUserID string) (*domain.UserAuthentication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, l := range r.s.data.links {
		if l.ProviderName == providerName && l.ProviderUserID == providerUserID {
			found := l
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%s link not found: %w", providerName, repository.ErrNotFound)
}

func (r *userAuthenticationRepository) ExistsByUserAndProvider(ctx context.Context, userID, providerName string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, l := range r.s.data.links {
		if l.UserID == userID && l.ProviderName == providerName {
			return true, nil
		}
	}
	return false, nil
}

func (r *userAuthenticationRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.UserAuthentication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var links []*domain.UserAuthentication
	for _, l := range r.s.data.links {
		if l.UserID == userID {
			found := l
			links = append(links, &found)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ProviderID < links[j].ProviderID })
	return links, nil
}
