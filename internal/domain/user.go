package domain

import (
	"sort"
	"time"
)

// Well-known role authorities
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Well-known identity provider slots
const (
	ProviderLocal    = "LOCAL"
	ProviderGoogle   = "GOOGLE"
	ProviderLinkedIn = "LINKEDIN"
)

// AuditInfo carries creation and modification timestamps, maintained by the store on write
type AuditInfo struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// User represents an account in the system
type User struct {
	ID               string  `json:"id" db:"id"`
	Email            string  `json:"email" db:"email"`
	PasswordHash     *string `json:"-" db:"password_hash"` // nil for provider-only accounts
	Roles            []Role  `json:"roles"`
	Enabled          bool    `json:"enabled" db:"enabled"`
	AccountNonLocked bool    `json:"account_non_locked" db:"account_non_locked"`
	AuditInfo
}

// IsActive reports whether the account may authenticate
func (u *User) IsActive() bool {
	return u.Enabled && u.AccountNonLocked
}

// HasPassword reports whether a local credential is stored
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Authorities returns the role labels of the user, sorted
func (u *User) Authorities() []string {
	authorities := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		authorities = append(authorities, role.Authority)
	}
	sort.Strings(authorities)
	return authorities
}

// Role is an authority label such as ROLE_USER
type Role struct {
	ID        int64  `json:"id" db:"id"`
	Authority string `json:"authority" db:"authority"`
}

// AuthProvider is a named identity-provider slot
type AuthProvider struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// UserAuthentication links a user to an identity provider.
// At most one link exists per (user, provider) and per (provider, provider user id).
type UserAuthentication struct {
	ID             string `json:"id" db:"id"`
	UserID         string `json:"user_id" db:"user_id"`
	ProviderID     int64  `json:"provider_id" db:"provider_id"`
	ProviderName   string `json:"provider_name" db:"provider_name"`
	ProviderUserID string `json:"provider_user_id" db:"provider_user_id"`
	AuditInfo
}

// UserProfile is a read model of a user with its linked providers
type UserProfile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Roles            []string  `json:"roles"`
	AuthProviders    []string  `json:"auth_providers"`
	Enabled          bool      `json:"enabled"`
	AccountNonLocked bool      `json:"account_non_locked"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
