package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	EnvProduction = "production"

	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	minProductionSecretBytes = 32
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS"`

	Auth      AuthConfig
	Store     StoreConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
}

type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTTTL        time.Duration `env:"JWT_TTL,                default=48h"`
	JWTIssuer     string        `env:"JWT_ISSUER,             default=commerce-api"`
	BcryptCost    int           `env:"BCRYPT_COST,            default=10"`
	DefaultRole   string        `env:"AUTH_DEFAULT_ROLE,      default=CUSTOMER"`
	SeedRoles     bool          `env:"AUTH_SEED_ROLES,        default=true"`
	Roles         []string      `env:"AUTH_ROLES,             default=CUSTOMER,ADMIN"`
	PasswordMin   int           `env:"PASSWORD_MIN_LENGTH,    default=8"`
	PasswordMixed bool          `env:"PASSWORD_REQUIRE_MIXED, default=true"`
}

type StoreConfig struct {
	Driver      string `env:"STORE_DRIVER, default=mongo"`
	MongoURI    string `env:"MONGO_URI,    default=mongodb://localhost:27017"`
	MongoDB     string `env:"MONGO_DB,     default=commerce"`
	SQLitePath  string `env:"SQLITE_PATH,  default=commerce.db"`
	PostgresURL string `env:"POSTGRES_URL, default=postgres://localhost:5432/commerce?sslmode=disable"`
}

type RedisConfig struct {
	// Addr empty disables the role cache.
	Addr         string        `env:"REDIS_ADDR"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB,       default=0"`
	RoleCacheTTL time.Duration `env:"ROLE_CACHE_TTL, default=10m"`
}

type TelemetryConfig struct {
	// Endpoint empty disables trace export.
	Endpoint    string `env:"OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME, default=commerce-api"`
}

// Load reads configuration from the process environment and validates it.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through lookuper and validates it.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// Validate rejects configurations the process must not start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.Auth.JWTSecret) < minProductionSecretBytes {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretBytes))
	}
	if c.Auth.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if strings.TrimSpace(c.Auth.DefaultRole) == "" {
		errs = append(errs, errors.New("AUTH_DEFAULT_ROLE is required"))
	}
	if c.Auth.PasswordMin < 6 || c.Auth.PasswordMin > 72 {
		errs = append(errs, fmt.Errorf("PASSWORD_MIN_LENGTH must be between 6 and 72, got %d", c.Auth.PasswordMin))
	}

	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDB == "" {
			errs = append(errs, errors.New("MONGO_URI and MONGO_DB are required for the mongo store"))
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	case DriverPostgres:
		if c.Store.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of mongo, sqlite, postgres, got %q", c.Store.Driver))
	}

	if c.Redis.Addr != "" && c.Redis.RoleCacheTTL <= 0 {
		errs = append(errs, errors.New("ROLE_CACHE_TTL must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
