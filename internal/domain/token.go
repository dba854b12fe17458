package domain

import "time"

// RefreshToken is a persisted, opaque, long-lived credential. Only the digest of the
// value is stored.
type RefreshToken struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsExpired checks if the token is expired at the given instant
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// PasswordResetToken is a single-use credential authorizing one password change
type PasswordResetToken struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsExpired checks if the token is expired at the given instant
func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// AccessClaims are the verified contents of an access token
type AccessClaims struct {
	Email     string    `json:"email"`
	UserID    string    `json:"user_id"`
	Roles     []string  `json:"roles"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ResetLink is the value/link pair produced when a reset token is issued
type ResetLink struct {
	Token     string
	Link      string
	ExpiresAt time.Time
}

// IdentityProfile is the normalized result of verifying a third-party identity token
type IdentityProfile struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	Audience      string
	Expiry        time.Time
	DisplayName   string
	GivenName     string
	FamilyName    string
	Picture       string
}

// AuthOutcome is what an authentication strategy produces on success
type AuthOutcome struct {
	User      *User
	IsNewUser bool
	Strategy  string
}

// AuthResult is the normalized outcome returned to callers after tokens are minted
type AuthResult struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	Roles        []string
	IsNewUser    bool
	ExpiresIn    int // access token lifetime in seconds
}
