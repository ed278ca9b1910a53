package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	GinMode         string        `envconfig:"GIN_MODE" default:"debug"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	DBDriver   string `envconfig:"DB_DRIVER" default:"mysql"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"3306"`
	DBUser     string `envconfig:"DB_USER" default:"taskuser"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"taskpassword"`
	DBName     string `envconfig:"DB_NAME" default:"team_tasks"`
	DBLogLevel string `envconfig:"DB_LOG_LEVEL" default:"warn"`

	JWTSecret          string        `envconfig:"JWT_SECRET"`
	JWTRefreshSecret   string        `envconfig:"JWT_REFRESH_SECRET"`
	AccessTokenTTL     time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL    time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`
	MaxSessionsPerUser int           `envconfig:"MAX_SESSIONS_PER_USER" default:"10"`

	SessionSecret string `envconfig:"SESSION_SECRET" default:"default-secret-key-change-me"`
	SessionStore  string `envconfig:"SESSION_STORE" default:"cookie"`
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
	CookieSecure  bool   `envconfig:"COOKIE_SECURE" default:"true"`

	BcryptCost       int  `envconfig:"BCRYPT_COST" default:"12"`
	AllowAdminSignup bool `envconfig:"ALLOW_ADMIN_SIGNUP" default:"false"`

	AdminUsername string `envconfig:"ADMIN_USERNAME"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	LogLevel  string        `envconfig:"LOG_LEVEL" default:"info"`
	LogDev    bool          `envconfig:"LOG_DEV" default:"false"`
	LogFile   string        `envconfig:"LOG_FILE"`
	LogMaxAge time.Duration `envconfig:"LOG_MAX_AGE" default:"168h"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" || c.JWTRefreshSecret == "" {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET are required")
	}
	if c.JWTSecret == c.JWTRefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.SessionStore {
	case "cookie", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.MaxSessionsPerUser < 1 {
		return errors.New("MAX_SESSIONS_PER_USER must be at least 1")
	}
	return nil
}

// BootstrapAdmin reports whether an initial admin account is configured.
func (c *Config) BootstrapAdmin() bool {
	return c.AdminUsername != "" && c.AdminEmail != "" && c.AdminPassword != ""
}
