package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/repository"
	"github.com/prperemyshlev/user-service/internal/repository/memory"
	"github.com/prperemyshlev/user-service/internal/utils"
	"github.com/prperemyshlev/user-service/pkg/database"
)

const (
	testSecret   = "test-secret-key-that-is-at-least-32-chars"
	testPassword = "Aa1!aaaa"
	resetURL     = "http://localhost:3000/reset-password"
)

type mockIdentityClient struct {
	mock.Mock
}

func (m *mockIdentityClient) Verify(ctx context.Context, identityToken string) (*domain.IdentityProfile, error) {
	args := m.Called(ctx, identityToken)
	profile, _ := args.Get(0).(*domain.IdentityProfile)
	return profile, args.Error(1)
}

type recordingNotifier struct {
	mu    sync.Mutex
	links map[string]*domain.ResetLink
	err   error
}

func (n *recordingNotifier) NotifyPasswordReset(ctx context.Context, email string, link *domain.ResetLink) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.links == nil {
		n.links = make(map[string]*domain.ResetLink)
	}
	n.links[email] = link
	return n.err
}

func (n *recordingNotifier) linkFor(email string) *domain.ResetLink {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.links[email]
}

// clock is a settable time source shared by the components under test
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	repos     *repository.Repositories
	store     *memory.Store
	clock     *clock
	codec     *utils.TokenCodec
	hasher    *utils.BcryptHasher
	directory *AccountDirectory
	tokens    *TokenManager
	identity  *mockIdentityClient
	notifier  *recordingNotifier
	auth      AuthService
	reset     PasswordResetService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithRevoker(t, nil)
}

func newFixtureWithRevoker(t *testing.T, revoker SessionRevoker) *fixture {
	t.Helper()

	logger := zap.NewNop()
	repos, store := memory.NewRepositories()
	clk := &clock{now: time.Now()}

	codec := utils.NewTokenCodec(testSecret, "user-service", 24*time.Hour).WithClock(clk.Now)
	hasher := utils.NewBcryptHasher(bcrypt.MinCost)
	metrics, err := NewMetrics()
	require.NoError(t, err)

	directory := NewAccountDirectory(repos, hasher, revoker, domain.RoleUser, logger)
	tokens := NewTokenManager(repos, codec, TokenManagerConfig{
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		ResetTokenExpiry:   time.Hour,
		ResetURL:           resetURL,
	}, metrics, logger)
	tokens.now = clk.Now

	identity := &mockIdentityClient{}
	notifier := &recordingNotifier{}

	dispatcher := NewDispatcher(
		NewTraditionalStrategy(directory, hasher),
		NewGoogleStrategy(identity, directory),
		NewLinkedInStrategy(),
	)

	return &fixture{
		repos:     repos,
		store:     store,
		clock:     clk,
		codec:     codec,
		hasher:    hasher,
		directory: directory,
		tokens:    tokens,
		identity:  identity,
		notifier:  notifier,
		auth:      NewAuthService(dispatcher, directory, tokens, codec, revoker, metrics, logger),
		reset:     NewPasswordResetService(directory, tokens, notifier, repos.Tx, metrics, logger),
	}
}

func (f *fixture) register(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := f.directory.CreateLocalUser(context.Background(), email, testPassword)
	require.NoError(t, err)
	return user
}

func googleProfile(sub, email string) *domain.IdentityProfile {
	return &domain.IdentityProfile{
		SubjectID:     sub,
		Email:         email,
		EmailVerified: true,
		Audience:      "client-id",
		Expiry:        time.Now().Add(time.Hour),
	}
}

func newTestRedis(t *testing.T) (*database.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &database.Redis{Client: client}, mr
}
