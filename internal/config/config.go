package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	ServerPort              string        `env:"SERVER_PORT" envDefault:"3000"`
	ServerReadHeaderTimeout time.Duration `env:"SERVER_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ServerWriteTimeout      time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ServerIdleTimeout       time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	RequestTimeout          time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	APIPrefix               string        `env:"API_PREFIX" envDefault:"/api"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns    int32  `env:"DB_MIN_CONNS" envDefault:"1"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`

	CORSOrigins       []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	RefreshCookieName string   `env:"REFRESH_COOKIE_NAME" envDefault:"refreshToken"`
	CookieSecure      bool     `env:"COOKIE_SECURE" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"pretty"`
}

// Load reads envFiles (".env" when none are given) into the process
// environment, then parses and validates the configuration. Missing dotenv
// files are not an error.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type databaseOnly struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
}

// LoadDatabaseURL reads only DATABASE_URL, for commands that talk to the
// database without serving traffic.
func LoadDatabaseURL(envFiles ...string) (string, error) {
	_ = godotenv.Load(envFiles...)

	cfg, err := env.ParseAs[databaseOnly]()
	if err != nil {
		return "", fmt.Errorf("parse environment: %w", err)
	}
	return cfg.DatabaseURL, nil
}

func (c *Config) normalize() {
	c.AccessTokenSecret = strings.TrimSpace(c.AccessTokenSecret)
	c.RefreshTokenSecret = strings.TrimSpace(c.RefreshTokenSecret)
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.APIPrefix = "/" + strings.Trim(strings.TrimSpace(c.APIPrefix), "/")

	origins := make([]string, 0, len(c.CORSOrigins))
	for _, origin := range c.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.CORSOrigins = origins
}

func (c *Config) Validate() error {
	var errs []error

	if c.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET is required"))
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTL > 0 && c.AccessTokenTTL >= c.RefreshTokenTTL {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL"))
	}

	if c.ServerPort == "" {
		errs = append(errs, errors.New("SERVER_PORT cannot be empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if strings.TrimSpace(c.RefreshCookieName) == "" {
		errs = append(errs, errors.New("REFRESH_COOKIE_NAME cannot be empty"))
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
		if c.DBMaxConns <= 0 {
			errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
		}
		if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			errs = append(errs, errors.New("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver))
	}

	return errors.Join(errs...)
}
