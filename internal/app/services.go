package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/config"
	"github.com/prperemyshlev/user-service/internal/identity"
	"github.com/prperemyshlev/user-service/internal/repository"
	"github.com/prperemyshlev/user-service/internal/service"
	"github.com/prperemyshlev/user-service/internal/utils"
	"github.com/prperemyshlev/user-service/pkg/database"
)

// Services is the wired service graph shared by the HTTP server and authctl
type Services struct {
	Auth          service.AuthService
	Accounts      *service.AccountDirectory
	PasswordReset service.PasswordResetService
	Tokens        *service.TokenManager
	RateLimiter   *service.RateLimiter
}

// NewServices wires repositories, codecs and Redis-backed collaborators into the service layer
func NewServices(cfg *config.Config, repos *repository.Repositories, redis *database.Redis, logger *zap.Logger) (*Services, error) {
	metrics, err := service.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create service metrics: %w", err)
	}

	codec := utils.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry.Duration)
	hasher := utils.NewBcryptHasher(cfg.Security.BCryptCost)

	// revocation markers must outlive every access token issued before them
	revoker := service.NewRedisSessionRevoker(redis, cfg.JWT.AccessTokenExpiry.Duration)

	tokens := service.NewTokenManager(repos, codec, service.TokenManagerConfig{
		RefreshTokenExpiry: cfg.JWT.RefreshTokenExpiry.Duration,
		ResetTokenExpiry:   cfg.PasswordReset.TokenExpiry.Duration,
		ResetURL:           cfg.PasswordReset.URL,
	}, metrics, logger)

	directory := service.NewAccountDirectory(repos, hasher, revoker, cfg.Account.DefaultRole, logger)

	google := identity.NewGoogleClient(cfg.Google.TokenInfoURL, cfg.Google.ClientID, cfg.Google.Timeout.Duration, logger)

	dispatcher := service.NewDispatcher(
		service.NewTraditionalStrategy(directory, hasher),
		service.NewGoogleStrategy(google, directory),
		service.NewLinkedInStrategy(),
	)

	var notifier service.ResetNotifier = service.NewLogNotifier(logger)
	if cfg.PasswordReset.EventsChannel != "" {
		notifier = service.NewRedisNotifier(redis, cfg.PasswordReset.EventsChannel)
	}

	return &Services{
		Auth:          service.NewAuthService(dispatcher, directory, tokens, codec, revoker, metrics, logger),
		Accounts:      directory,
		PasswordReset: service.NewPasswordResetService(directory, tokens, notifier, repos.Tx, metrics, logger),
		Tokens:        tokens,
		RateLimiter:   service.NewRateLimiter(redis),
	}, nil
}
