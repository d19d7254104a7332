// Package config loads application configuration from environment variables,
// optionally seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// MinSessionSecretLen is the shortest SESSION_SECRET accepted at startup.
const MinSessionSecretLen = 32

// knownDefaultSecrets are placeholder values found in tutorials and sample
// configs. A deployment must never sign cookies with one of them.
var knownDefaultSecrets = []string{
	"changeme",
	"secret",
	"development",
	"a-very-secret-key",
	"your-secret-key-here",
	"please-change-this-session-secret",
	"change-me-to-a-random-32-byte-value",
}

// Config holds all runtime configuration values.
type Config struct {
	Env  string `env:"APP_ENV" env-default:"dev"`
	Host string `env:"APP_HOST" env-default:"0.0.0.0"`
	Port string `env:"APP_PORT" env-default:"8111"`

	DB        DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	AMQP      AMQPConfig
	Log       LogConfig

	// BcryptCost is the work factor for newly hashed passwords.
	BcryptCost int `env:"BCRYPT_COST" env-default:"12"`
}

// DatabaseConfig selects the SQL driver and the pool limits. DSN wins over
// the individual parts when set.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" env-default:"postgres"`
	DSN    string `env:"DB_DSN"`
	User   string `env:"DB_USER" env-default:"postgres"`
	Pass   string `env:"DB_PASS"`
	Host   string `env:"DB_HOST" env-default:"localhost"`
	Port   string `env:"DB_PORT"`
	Name   string `env:"DB_NAME" env-default:"proj1part2"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"25"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`

	// AcquireTimeout bounds how long a request waits for a pooled connection.
	AcquireTimeout time.Duration `env:"DB_ACQUIRE_TIMEOUT" env-default:"5s"`
	// QueryTimeout bounds every statement a handler runs.
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" env-default:"5s"`

	// Migrate applies the embedded migrations on startup.
	Migrate bool `env:"DB_MIGRATE" env-default:"false"`
}

// SessionConfig controls the login session cookie and its server-side record.
type SessionConfig struct {
	Secret string `env:"SESSION_SECRET" env-required:"true"`
	// EncryptionKey optionally encrypts the cookie value; 16, 24 or 32 bytes.
	EncryptionKey string        `env:"SESSION_ENCRYPTION_KEY"`
	CookieName    string        `env:"SESSION_COOKIE_NAME" env-default:"moviedb_session"`
	MaxAge        time.Duration `env:"SESSION_MAX_AGE" env-default:"24h"`
	Secure        bool          `env:"SESSION_SECURE" env-default:"false"`
	KeyPrefix     string        `env:"SESSION_KEY_PREFIX" env-default:"session"`
}

type AMQPConfig struct {
	// URL enables domain events when set.
	URL string `env:"RABBITMQ_URL"`
	// Consume starts the audit consumer inside the server process.
	Consume  bool   `env:"RABBITMQ_CONSUME" env-default:"false"`
	AuditDir string `env:"AUDIT_LOG_DIR" env-default:"logs"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"json"`
}

// Load reads the optional .env file, parses the environment and validates
// the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return net.JoinHostPort(c.Host, c.Port) }

func (c *Config) normalize() {
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	if c.DB.Driver == "postgresql" || c.DB.Driver == "pgx" {
		c.DB.Driver = "postgres"
	}
	if c.DB.Port == "" {
		c.DB.Port = "5432"
		if c.DB.Driver == "mysql" {
			c.DB.Port = "3306"
		}
	}
	c.Cache.normalize()
	c.RateLimit.normalize()
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("DB_DRIVER %q: want postgres or mysql", c.DB.Driver)
	}
	if c.DB.AcquireTimeout <= 0 || c.DB.QueryTimeout <= 0 {
		return errors.New("DB_ACQUIRE_TIMEOUT and DB_QUERY_TIMEOUT must be positive")
	}
	if err := validateSecret(c.Session.Secret); err != nil {
		return err
	}
	switch len(c.Session.EncryptionKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("SESSION_ENCRYPTION_KEY must be 16, 24 or 32 bytes, got %d", len(c.Session.EncryptionKey))
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("SESSION_MAX_AGE must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST %d out of range 4..31", c.BcryptCost)
	}
	return nil
}

func validateSecret(secret string) error {
	if len(secret) < MinSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLen)
	}
	for _, d := range knownDefaultSecrets {
		if strings.EqualFold(secret, d) {
			return errors.New("SESSION_SECRET is a known default value; generate one with: openssl rand -base64 48")
		}
	}
	if strings.Count(secret, secret[:1]) == len(secret) {
		return errors.New("SESSION_SECRET must not be a single repeated character")
	}
	return nil
}

// DataSourceName returns the driver-specific connection string.
func (d DatabaseConfig) DataSourceName() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == "mysql" {
		auth := d.User
		if d.Pass != "" {
			auth = fmt.Sprintf("%s:%s", d.User, d.Pass)
		}
		// parseTime=true maps DATETIME to time.Time; multiStatements lets
		// migration files carry more than one statement.
		return fmt.Sprintf("%s@tcp(%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=true",
			auth, net.JoinHostPort(d.Host, d.Port), d.Name)
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	if d.Pass != "" {
		u.User = url.UserPassword(d.User, d.Pass)
	} else {
		u.User = url.User(d.User)
	}
	return u.String()
}
