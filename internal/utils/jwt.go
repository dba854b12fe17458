package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prperemyshlev/user-service/internal/domain"
)

// opaqueTokenBytes is the amount of entropy in refresh and reset token values
const opaqueTokenBytes = 32

// accessClaims is the JWT payload of an access token; the subject carries the email.
// iatMs repeats the issue time in milliseconds since iat is whole seconds.
type accessClaims struct {
	UserID         string   `json:"userId"`
	Roles          []string `json:"roles"`
	IssuedAtMillis int64    `json:"iatMs,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec builds and verifies signed access tokens and generates opaque token values
type TokenCodec struct {
	secret            []byte
	issuer            string
	accessTokenExpiry time.Duration
	now               func() time.Time
}

// NewTokenCodec creates a new token codec signing with HS256
func NewTokenCodec(secret, issuer string, accessTokenExpiry time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:            []byte(secret),
		issuer:            issuer,
		accessTokenExpiry: accessTokenExpiry,
		now:               time.Now,
	}
}

// WithClock replaces the time source, used by tests
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// IssueAccessToken generates a new access token for the user
func (c *TokenCodec) IssueAccessToken(user *domain.User) (string, error) {
	if user == nil || user.Email == "" {
		return "", fmt.Errorf("cannot issue access token without subject: %w", domain.ErrInvalidArgument)
	}

	now := c.now()
	claims := accessClaims{
		UserID:         user.ID,
		Roles:          user.Authorities(),
		IssuedAtMillis: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// VerifyAccessToken validates an access token and returns its claims.
// Signature and expiry are checked before any claim is trusted.
func (c *TokenCodec) VerifyAccessToken(tokenString string) (*domain.AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, options...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("failed to verify token: %w", domain.ErrTokenExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("failed to verify token: %w", domain.ErrTokenSignatureInvalid)
		default:
			return nil, fmt.Errorf("failed to parse token: %w", domain.ErrTokenMalformed)
		}
	}

	if claims.Subject == "" || claims.UserID == "" {
		return nil, fmt.Errorf("token is missing subject claims: %w", domain.ErrTokenMalformed)
	}

	result := &domain.AccessClaims{
		Email:     claims.Subject,
		UserID:    claims.UserID,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	switch {
	case claims.IssuedAtMillis > 0:
		result.IssuedAt = time.UnixMilli(claims.IssuedAtMillis)
	case claims.IssuedAt != nil:
		result.IssuedAt = claims.IssuedAt.Time
	}

	return result, nil
}

// AccessTokenExpiry returns the access token expiry duration in seconds
func (c *TokenCodec) AccessTokenExpiry() int {
	return int(c.accessTokenExpiry.Seconds())
}

// NewOpaqueToken generates an unguessable URL-safe token value
func (c *TokenCodec) NewOpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the storage digest of an opaque token value
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
