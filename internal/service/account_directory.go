package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/repository"
	"github.com/prperemyshlev/user-service/internal/utils"
)

// federatedCreateRetries bounds re-resolution after losing a first-login race
const federatedCreateRetries = 2

// AccountDirectory owns users, their roles and provider links, and account state transitions
type AccountDirectory struct {
	repos       *repository.Repositories
	hasher      PasswordHasher
	revoker     SessionRevoker
	defaultRole string
	logger      *zap.Logger
}

// NewAccountDirectory creates a new account directory. revoker may be nil.
func NewAccountDirectory(repos *repository.Repositories, hasher PasswordHasher, revoker SessionRevoker, defaultRole string, logger *zap.Logger) *AccountDirectory {
	if defaultRole == "" {
		defaultRole = domain.RoleUser
	}
	return &AccountDirectory{
		repos:       repos,
		hasher:      hasher,
		revoker:     revoker,
		defaultRole: defaultRole,
		logger:      logger.Named("account_directory"),
	}
}

// FindByEmail retrieves a user by email
func (d *AccountDirectory) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := d.repos.User.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindActiveByEmail retrieves a user that is enabled and not locked
func (d *AccountDirectory) FindActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := d.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// FindByID retrieves a user by ID
func (d *AccountDirectory) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := d.repos.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ExistsByEmail checks if a user with the email exists
func (d *AccountDirectory) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	exists, err := d.repos.User.ExistsByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// CreateLocalUser registers a password account with the default role and a LOCAL link
func (d *AccountDirectory) CreateLocalUser(ctx context.Context, email, rawPassword string) (*domain.User, error) {
	email = utils.SanitizeEmail(email)

	if !utils.ValidateEmail(email) {
		return nil, fmt.Errorf("invalid email format: %w", domain.ErrInvalidArgument)
	}
	if !utils.ValidatePassword(rawPassword) {
		return nil, fmt.Errorf("password does not meet the policy: %w", domain.ErrInvalidArgument)
	}

	var user *domain.User
	err := d.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := d.repos.User.ExistsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to check user existence: %w", err)
		}
		if exists {
			return fmt.Errorf("user with email %s: %w", email, domain.ErrAlreadyExists)
		}

		passwordHash, err := d.hasher.Hash(rawPassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user = &domain.User{
			Email:            email,
			PasswordHash:     &passwordHash,
			Enabled:          true,
			AccountNonLocked: true,
		}
		if err := d.createWithDefaultRole(ctx, user); err != nil {
			return err
		}

		return d.link(ctx, user, domain.ProviderLocal, email)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fmt.Errorf("user with email %s: %w", email, domain.ErrAlreadyExists)
		}
		return nil, err
	}

	d.logger.Info("local user created", zap.String("user_id", user.ID))
	return user, nil
}

// CreateOrUpdateFederatedUser resolves the local user for a provider identity, linking or
// creating the account as needed. The second result reports whether the user is new.
func (d *AccountDirectory) CreateOrUpdateFederatedUser(ctx context.Context, email, providerName, subjectID string) (*domain.User, bool, error) {
	email = utils.SanitizeEmail(email)

	var (
		user  *domain.User
		isNew bool
	)

	// a concurrent first login for the same identity surfaces as a duplicate; resolving again
	// then finds the winner's records
	backoff := retry.WithMaxRetries(federatedCreateRetries, retry.NewConstant(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		user, isNew, err = d.resolveFederatedUser(ctx, email, providerName, subjectID)
		if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateAuthLink) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if isNew {
		d.logger.Info("federated user created",
			zap.String("user_id", user.ID),
			zap.String("provider", providerName),
		)
	}

	return user, isNew, nil
}

func (d *AccountDirectory) resolveFederatedUser(ctx context.Context, email, providerName, subjectID string) (*domain.User, bool, error) {
	var (
		user  *domain.User
		isNew bool
	)

	err := d.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		link, err := d.repos.UserAuthentication.GetByProviderAndSubject(ctx, providerName, subjectID)
		switch {
		case err == nil:
			user, err = d.FindByID(ctx, link.UserID)
			return err
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("failed to get provider link: %w", err)
		}

		existing, err := d.repos.User.GetByEmail(ctx, email)
		switch {
		case err == nil:
			user = existing
			linked, err := d.repos.UserAuthentication.ExistsByUserAndProvider(ctx, user.ID, providerName)
			if err != nil {
				return fmt.Errorf("failed to check provider link: %w", err)
			}
			if linked {
				return nil
			}
			return d.link(ctx, user, providerName, subjectID)
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("failed to get user: %w", err)
		}

		user = &domain.User{
			Email:            email,
			Enabled:          true,
			AccountNonLocked: true,
		}
		if err := d.createWithDefaultRole(ctx, user); err != nil {
			return err
		}
		isNew = true

		return d.link(ctx, user, providerName, subjectID)
	})
	if err != nil {
		return nil, false, err
	}

	return user, isNew, nil
}

// HasLocalAuth reports whether the user has a LOCAL provider link
func (d *AccountDirectory) HasLocalAuth(ctx context.Context, user *domain.User) (bool, error) {
	linked, err := d.repos.UserAuthentication.ExistsByUserAndProvider(ctx, user.ID, domain.ProviderLocal)
	if err != nil {
		return false, fmt.Errorf("failed to check local authentication: %w", err)
	}
	return linked, nil
}

// Activate enables the account
func (d *AccountDirectory) Activate(ctx context.Context, userID string) error {
	return d.transition(ctx, userID, "activate", func(u *domain.User) bool {
		if u.Enabled {
			return false
		}
		u.Enabled = true
		return true
	})
}

// Deactivate disables the account and revokes its access tokens
func (d *AccountDirectory) Deactivate(ctx context.Context, userID string) error {
	return d.transition(ctx, userID, "deactivate", func(u *domain.User) bool {
		if !u.Enabled {
			return false
		}
		u.Enabled = false
		return true
	})
}

// Lock locks the account and revokes its access tokens
func (d *AccountDirectory) Lock(ctx context.Context, userID string) error {
	return d.transition(ctx, userID, "lock", func(u *domain.User) bool {
		if !u.AccountNonLocked {
			return false
		}
		u.AccountNonLocked = false
		return true
	})
}

// Unlock unlocks the account
func (d *AccountDirectory) Unlock(ctx context.Context, userID string) error {
	return d.transition(ctx, userID, "unlock", func(u *domain.User) bool {
		if u.AccountNonLocked {
			return false
		}
		u.AccountNonLocked = true
		return true
	})
}

// transition applies a state change; apply returns false when the state is already set
func (d *AccountDirectory) transition(ctx context.Context, userID, name string, apply func(*domain.User) bool) error {
	var changed, revoke bool

	err := d.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := d.repos.User.LockByID(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("failed to lock user: %w", err)
		}

		user, err := d.FindByID(ctx, userID)
		if err != nil {
			return err
		}

		wasActive := user.IsActive()
		if changed = apply(user); !changed {
			return nil
		}
		revoke = wasActive && !user.IsActive()

		if err := d.repos.User.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to %s user: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !changed {
		d.logger.Warn("account state already set", zap.String("user_id", userID), zap.String("transition", name))
		return nil
	}

	d.logger.Info("account state changed", zap.String("user_id", userID), zap.String("transition", name))

	if revoke && d.revoker != nil {
		if err := d.revoker.RevokeUser(ctx, userID); err != nil {
			d.logger.Error("failed to revoke access tokens", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return nil
}

// ChangePassword validates the policy and stores the new password hash
func (d *AccountDirectory) ChangePassword(ctx context.Context, user *domain.User, newRawPassword string) error {
	if !utils.ValidatePassword(newRawPassword) {
		return fmt.Errorf("password does not meet the policy: %w", domain.ErrInvalidArgument)
	}

	passwordHash, err := d.hasher.Hash(newRawPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = &passwordHash
	if err := d.repos.User.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to change password: %w", err)
	}

	d.logger.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

// GetProfile returns the user with its roles and linked providers
func (d *AccountDirectory) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	user, err := d.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	links, err := d.repos.UserAuthentication.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider links: %w", err)
	}

	providers := make([]string, 0, len(links))
	for _, link := range links {
		providers = append(providers, link.ProviderName)
	}

	return &domain.UserProfile{
		ID:               user.ID,
		Email:            user.Email,
		Roles:            user.Authorities(),
		AuthProviders:    providers,
		Enabled:          user.Enabled,
		AccountNonLocked: user.AccountNonLocked,
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}, nil
}

func (d *AccountDirectory) createWithDefaultRole(ctx context.Context, user *domain.User) error {
	if err := d.repos.User.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	role, err := d.repos.Role.GetByAuthority(ctx, d.defaultRole)
	if err != nil {
		return fmt.Errorf("failed to get default role: %w", err)
	}

	if err := d.repos.User.AssignRole(ctx, user.ID, role.ID); err != nil {
		return fmt.Errorf("failed to assign default role: %w", err)
	}
	user.Roles = append(user.Roles, *role)

	return nil
}

func (d *AccountDirectory) link(ctx context.Context, user *domain.User, providerName, subjectID string) error {
	provider, err := d.repos.AuthProvider.GetByName(ctx, providerName)
	if err != nil {
		return fmt.Errorf("failed to get auth provider: %w", err)
	}

	link := &domain.UserAuthentication{
		UserID:         user.ID,
		ProviderID:     provider.ID,
		ProviderName:   provider.Name,
		ProviderUserID: subjectID,
	}
	if err := d.repos.UserAuthentication.Create(ctx, link); err != nil {
		return fmt.Errorf("failed to link %s provider: %w", providerName, err)
	}

	return nil
}
