// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL of this backend.
	BaseURL string

	// FrontendURL is the SPA origin, used for CORS and post-logout redirects.
	FrontendURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Keycloak holds identity-provider settings.
	Keycloak KeycloakConfig

	// Encryption holds field-level encryption settings.
	Encryption EncryptionConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so container
// orchestrators can manage each independently. If DATABASE_URL is set, it
// takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "spendloop").
	User string

	// Password is the MariaDB password (default: "spendloop").
	Password string

	// Name is the database name (default: "spendloop").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AdminCredentials holds the identity provider's administrative account.
// Injected explicitly wherever admin API access is needed so tests can
// substitute fakes -- never read from a singleton.
type AdminCredentials struct {
	// Username is the master-realm admin account name.
	Username string

	// Password is the master-realm admin account password.
	Password string
}

// KeycloakConfig holds everything needed to talk to the identity provider.
type KeycloakConfig struct {
	// BaseURL is the Keycloak server URL (e.g., "http://localhost:8081").
	BaseURL string

	// Realm is the application realm (default: "spendloop").
	Realm string

	// ClientID is the confidential client used for the password grant.
	ClientID string

	// ClientSecret authenticates the confidential client. Optional for
	// public clients; sent only when non-empty.
	ClientSecret string

	// Admin is the administrative credential for the master-realm admin-cli
	// client, used for user creation and session termination.
	Admin AdminCredentials

	// RequestTimeout bounds every HTTP call to the provider. A slow provider
	// stalls the serving request for at most this long.
	RequestTimeout time.Duration
}

// EncryptionConfig holds field-level at-rest encryption settings.
type EncryptionConfig struct {
	// MasterKey is the secret the AES-256 field key is derived from.
	MasterKey string
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing in production.
func Load() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("ENV", "development"),
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "spendloop"),
			Password:        getEnv("DB_PASSWORD", "spendloop"),
			Name:            getEnv("DB_NAME", "spendloop"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Keycloak: KeycloakConfig{
			BaseURL:      getEnv("KEYCLOAK_URL", "http://localhost:8081"),
			Realm:        getEnv("KEYCLOAK_REALM", "spendloop"),
			ClientID:     getEnv("KEYCLOAK_CLIENT_ID", "spendloop-backend"),
			ClientSecret: getEnv("KEYCLOAK_CLIENT_SECRET", ""),
			Admin: AdminCredentials{
				Username: getEnv("KEYCLOAK_ADMIN_USER", "admin"),
				Password: getEnv("KEYCLOAK_ADMIN_PASSWORD", "admin"),
			},
			RequestTimeout: getEnvDuration("KEYCLOAK_TIMEOUT", 10*time.Second),
		},

		Encryption: EncryptionConfig{
			MasterKey: getEnv("ENCRYPTION_MASTER_KEY", ""),
		},
	}

	// Validate required secrets in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Keycloak.ClientSecret == "" {
			return nil, fmt.Errorf("KEYCLOAK_CLIENT_SECRET is required in production")
		}
		if cfg.Encryption.MasterKey == "" {
			return nil, fmt.Errorf("ENCRYPTION_MASTER_KEY is required in production")
		}
		if len(cfg.Encryption.MasterKey) < 32 {
			return nil, fmt.Errorf("ENCRYPTION_MASTER_KEY must be at least 32 characters in production")
		}
	}

	// Provide a dev-only default so local dev works without .env.
	if cfg.Encryption.MasterKey == "" {
		cfg.Encryption.MasterKey = "dev-master-key-do-not-use-in-production!!"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "10s") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
