package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server        ServerConfig        `env:",prefix=SERVER_"`
	Postgres      PostgresConfig      `env:",prefix=POSTGRES_"`
	Redis         RedisConfig         `env:",prefix=REDIS_"`
	JWT           JWTConfig           `env:",prefix=JWT_"`
	PasswordReset PasswordResetConfig `env:",prefix=PASSWORD_RESET_"`
	Google        GoogleConfig        `env:",prefix=GOOGLE_"`
	Account       AccountConfig       `env:",prefix=ACCOUNT_"`
	Maintenance   MaintenanceConfig   `env:",prefix=MAINTENANCE_"`
	Security      SecurityConfig      `env:",prefix="`
	CORS          CORSConfig          `env:",prefix=CORS_"`
	Env           string              `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port          string   `env:"PORT,default=8080"`
	Host          string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout   Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout  Duration `env:"WRITE_TIMEOUT,default=15s"`
	SecureCookies bool     `env:"SECURE_COOKIES,default=true"`
}

type PostgresConfig struct {
	Host        string `env:"HOST,default=localhost"`
	Port        string `env:"PORT,default=5432"`
	User        string `env:"USER,default=user_service"`
	Password    string `env:"PASSWORD,default=user_service_password"`
	DBName      string `env:"DB,default=user_service_db"`
	SSLMode     string `env:"SSLMODE,default=disable"`
	AutoMigrate bool   `env:"AUTO_MIGRATE,default=true"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret             string   `env:"SECRET,required"`
	Issuer             string   `env:"ISSUER,default=user-service"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=24h"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=7d"`
}

type PasswordResetConfig struct {
	TokenExpiry Duration `env:"TOKEN_EXPIRY,default=1h"`
	URL         string   `env:"URL,default=http://localhost:3000/reset-password"`
	// Empty keeps reset links in the service log instead of publishing them
	EventsChannel string `env:"EVENTS_CHANNEL,default=user-service.password-reset"`
}

type GoogleConfig struct {
	ClientID     string   `env:"CLIENT_ID,default="`
	TokenInfoURL string   `env:"TOKENINFO_URL,default=https://oauth2.googleapis.com/tokeninfo"`
	Timeout      Duration `env:"TIMEOUT,default=5s"`
}

type AccountConfig struct {
	DefaultRole string `env:"DEFAULT_ROLE,default=ROLE_USER"`
}

type MaintenanceConfig struct {
	TokenSweepInterval Duration `env:"TOKEN_SWEEP_INTERVAL,default=1h"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var config Config

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	var errs []error

	if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters long"))
	}
	if c.JWT.AccessTokenExpiry.Duration <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TOKEN_EXPIRY must be positive"))
	}
	if c.JWT.RefreshTokenExpiry.Duration <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_TOKEN_EXPIRY must be positive"))
	}
	if c.PasswordReset.TokenExpiry.Duration <= 0 {
		errs = append(errs, errors.New("PASSWORD_RESET_TOKEN_EXPIRY must be positive"))
	}
	if c.Account.DefaultRole == "" {
		errs = append(errs, errors.New("ACCOUNT_DEFAULT_ROLE must not be empty"))
	}

	return errors.Join(errs...)
}
