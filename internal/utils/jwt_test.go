package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prperemyshlev/user-service/internal/domain"
)

const testSecret = "test-secret-key-that-is-at-least-32-chars"

func testUser() *domain.User {
	return &domain.User{
		ID:    "4b1c5a2e-6f0d-4c1b-9a57-1e2f3d4c5b6a",
		Email: "a@x.com",
		Roles: []domain.Role{{ID: 2, Authority: domain.RoleAdmin}, {ID: 1, Authority: domain.RoleUser}},
	}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	codec := NewTokenCodec(testSecret, "user-service", time.Hour).WithClock(func() time.Time { return now })

	token, err := codec.IssueAccessToken(testUser())
	require.NoError(t, err)

	claims, err := codec.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "4b1c5a2e-6f0d-4c1b-9a57-1e2f3d4c5b6a", claims.UserID)
	assert.ElementsMatch(t, []string{domain.RoleUser, domain.RoleAdmin}, claims.Roles)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, 3600, codec.AccessTokenExpiry())
}

func TestTokenCodec_IssuedAtKeepsMilliseconds(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 450*int(time.Millisecond), time.UTC)
	codec := NewTokenCodec(testSecret, "user-service", time.Hour).WithClock(func() time.Time { return now })

	token, err := codec.IssueAccessToken(testUser())
	require.NoError(t, err)

	claims, err := codec.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), claims.IssuedAt.UnixMilli())
}

func TestTokenCodec_RejectsOtherIssuer(t *testing.T) {
	other := NewTokenCodec(testSecret, "another-service", time.Hour)
	token, err := other.IssueAccessToken(testUser())
	require.NoError(t, err)

	codec := NewTokenCodec(testSecret, "user-service", time.Hour)
	_, err = codec.VerifyAccessToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenMalformed)

	unscoped := NewTokenCodec(testSecret, "", time.Hour)
	_, err = unscoped.VerifyAccessToken(token)
	assert.NoError(t, err)
}

func TestTokenCodec_Expired(t *testing.T) {
	now := time.Now()
	codec := NewTokenCodec(testSecret, "user-service", time.Minute).WithClock(func() time.Time { return now })

	token, err := codec.IssueAccessToken(testUser())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = codec.VerifyAccessToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestTokenCodec_Tampered(t *testing.T) {
	codec := NewTokenCodec(testSecret, "user-service", time.Hour)

	token, err := codec.IssueAccessToken(testUser())
	require.NoError(t, err)

	other := NewTokenCodec("another-secret-key-that-is-at-least-32-chars", "user-service", time.Hour)
	_, err = other.VerifyAccessToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenSignatureInvalid)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "evil@x.com", "userId": "other", "exp": time.Now().Add(time.Hour).Unix(),
	})
	forgedString, err := forged.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	forgedParts := strings.Split(forgedString, ".")
	tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

	_, err = codec.VerifyAccessToken(tampered)
	assert.ErrorIs(t, err, domain.ErrTokenSignatureInvalid)
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec := NewTokenCodec(testSecret, "user-service", time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "a@x.com", "userId": "1", "exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.VerifyAccessToken(tokenString)
	assert.Error(t, err)
}

func TestTokenCodec_Malformed(t *testing.T) {
	codec := NewTokenCodec(testSecret, "user-service", time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.VerifyAccessToken(token)
		assert.ErrorIs(t, err, domain.ErrTokenMalformed, "token %q", token)
	}
}

func TestTokenCodec_IssueRequiresEmail(t *testing.T) {
	codec := NewTokenCodec(testSecret, "user-service", time.Hour)

	_, err := codec.IssueAccessToken(&domain.User{ID: "1"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestNewOpaqueToken(t *testing.T) {
	codec := NewTokenCodec(testSecret, "user-service", time.Hour)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := codec.NewOpaqueToken()
		require.NoError(t, err)
		assert.Len(t, token, 43)
		_, dup := seen[token]
		assert.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("value"), HashToken("value"))
	assert.NotEqual(t, HashToken("value"), HashToken("other"))
	assert.Len(t, HashToken("value"), 64)
}
