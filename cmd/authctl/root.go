package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/app"
	"github.com/prperemyshlev/user-service/internal/config"
	"github.com/prperemyshlev/user-service/internal/repository"
	"github.com/prperemyshlev/user-service/pkg/database"
	"github.com/prperemyshlev/user-service/pkg/observability"
)

// runtime is what a subcommand needs to act on the credential store
type runtime struct {
	Services *app.Services
	Postgres *database.Postgres
	Close    func() error
}

// connector opens the backing stores for a subcommand
type connector func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtime, error)

// NewRootCmd creates the authctl command tree
func NewRootCmd(connect connector) *cobra.Command {
	var (
		cfg    *config.Config
		logger *zap.Logger
	)

	open := func(cmd *cobra.Command) (*runtime, error) {
		return connect(cmd.Context(), cfg, logger)
	}

	cmd := &cobra.Command{
		Use:          "authctl",
		Short:        "Administer the user service credential store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if cfg, err = config.Load(cmd.Context()); err != nil {
				return err
			}
			logger, err = observability.InitLogger(cfg.Env)
			return err
		},
	}

	cmd.AddCommand(newMigrateCmd(open))
	cmd.AddCommand(newUserCmd(open))
	cmd.AddCommand(newTokensCmd(open))

	return cmd
}

func connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	postgres, err := database.NewPostgres(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	redis, err := database.NewRedis(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = postgres.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	services, err := app.NewServices(cfg, repository.NewRepositories(postgres), redis, logger)
	if err != nil {
		_ = postgres.Close()
		_ = redis.Close()
		return nil, err
	}

	return &runtime{
		Services: services,
		Postgres: postgres,
		Close: func() error {
			_ = logger.Sync()
			_ = redis.Close()
			return postgres.Close()
		},
	}, nil
}
