package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/config"
	"github.com/prperemyshlev/user-service/pkg/database"
	"github.com/prperemyshlev/user-service/pkg/observability"
)

type Infrastructure interface {
	Postgres() *database.Postgres
	Redis() *database.Redis
	Logger() *zap.Logger
	MetricsHandler() http.Handler

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	postgres  *database.Postgres
	redis     *database.Redis
	logger    *zap.Logger
	telemetry *observability.Telemetry
}

var _ Infrastructure = &infrastructure{}

// NewInfrastructure connects to PostgreSQL and Redis, applies pending migrations when enabled
// and installs telemetry. Anything already opened is closed on failure.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (_ *infrastructure, err error) {
	i := &infrastructure{}

	i.logger, err = observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = i.close()
		}
	}()

	i.postgres, err = database.NewPostgres(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if cfg.Postgres.AutoMigrate {
		if err = database.MigrateUp(i.postgres.DB); err != nil {
			return nil, err
		}
		i.logger.Info("database migrations applied")
	}

	i.redis, err = database.NewRedis(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	i.telemetry, err = observability.InitTelemetry("user-service")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	return i, nil
}

func (i *infrastructure) Postgres() *database.Postgres {
	return i.postgres
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	if i.telemetry == nil {
		return nil
	}
	return i.telemetry.Handler
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	err := errors.Join(i.telemetry.Shutdown(ctx), i.close())
	_ = i.logger.Sync()
	return err
}

func (i *infrastructure) close() error {
	var errs []error
	if i.postgres != nil {
		errs = append(errs, i.postgres.Close())
	}
	if i.redis != nil {
		errs = append(errs, i.redis.Close())
	}
	return errors.Join(errs...)
}
