package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prperemyshlev/user-service/internal/config"
	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/handler"
	"github.com/prperemyshlev/user-service/internal/repository"
	"github.com/prperemyshlev/user-service/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra    Infrastructure
	config   *config.Config
	services *Services
	router   *gin.Engine
	server   *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	services, err := NewServices(cfg, repos, infra.Redis(), infra.Logger())
	if err != nil {
		return nil, err
	}

	router := NewRouter(cfg, services, NewHealthChecker(infra), infra.MetricsHandler(), infra.Logger())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:    infra,
		config:   cfg,
		services: services,
		router:   router,
		server:   srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// NewRouter builds the gin engine with middleware and all routes
func NewRouter(cfg *config.Config, services *Services, health *HealthChecker, metricsHandler http.Handler, logger *zap.Logger) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("user-service"))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	authHandler := handler.NewAuthHandler(
		services.Auth,
		int(cfg.JWT.RefreshTokenExpiry.Seconds()),
		cfg.Server.SecureCookies,
		logger,
	)
	passwordHandler := handler.NewPasswordHandler(services.PasswordReset, logger)
	userHandler := handler.NewUserHandler(services.Accounts, logger)

	rateLimit := handler.RateLimitMiddleware(
		services.RateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey,
		logger,
	)
	authenticated := handler.AuthMiddleware(services.Auth)

	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	if health != nil {
		router.GET("/health", health.Handler)
	}

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", rateLimit, authHandler.Register)
			auth.POST("/login", rateLimit, authHandler.Login)
			auth.POST("/google", rateLimit, authHandler.LoginWithGoogle)
			auth.POST("/linkedin", rateLimit, authHandler.LoginWithLinkedIn)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/strategies", authHandler.Strategies)
			auth.GET("/me", authenticated, authHandler.GetMe)

			password := auth.Group("/password")
			{
				password.POST("/reset-request", rateLimit, passwordHandler.RequestReset)
				password.POST("/change", rateLimit, passwordHandler.ChangePassword)
				password.GET("/validate-token", passwordHandler.ValidateToken)
			}
		}

		users := api.Group("/users/:id", authenticated)
		{
			users.GET("/profile", userHandler.GetProfile)

			admin := users.Group("", handler.RequireRole(domain.RoleAdmin))
			admin.POST("/activate", userHandler.Activate)
			admin.POST("/deactivate", userHandler.Deactivate)
			admin.POST("/lock", userHandler.Lock)
			admin.POST("/unlock", userHandler.Unlock)
		}
	}

	return router
}

// Run serves HTTP and sweeps expired tokens until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	logger := a.infra.Logger()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.sweepExpiredTokens(gctx, a.config.Maintenance.TokenSweepInterval.Duration)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Application stopping")
		return a.Shutdown()
	})

	return g.Wait()
}

func (a *App) sweepExpiredTokens(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh, reset, err := a.services.Tokens.SweepExpired(ctx)
			if err != nil {
				a.infra.Logger().Error("token sweep failed", zap.Error(err))
				continue
			}
			a.infra.Logger().Debug("token sweep finished",
				zap.Int64("refresh_tokens", refresh),
				zap.Int64("reset_tokens", reset),
			)
		}
	}
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Shutdown(gctx) })

	err := errors.Join(g.Wait(), a.infra.Shutdown(ctx))
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
