// Package config provides functionality for managing configuration options
// for the application using command-line flags, a config file and
// environment variables.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage backends accepted by StorageOptions.Backend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options holds the configuration values for the server.
type Options struct {
	// Addr is the server's listening address (ip:port).
	Addr string `json:"server_address" yaml:"server_address" env:"SERVER_ADDRESS"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" yaml:"tls_cert" env:"TLS_CERT"`
	TLSKey  string `json:"tls_key" yaml:"tls_key" env:"TLS_KEY"`

	// Storage selects and configures the key-value backend.
	Storage StorageOptions `json:"storage" yaml:"storage"`

	// JWTSecret signs session tokens.
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret" env:"JWT_SECRET"`

	// SessionTTL is the lifetime of a login session.
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl" env:"SESSION_TTL"`

	// CleanerInterval is how often expired sessions are purged.
	CleanerInterval time.Duration `json:"cleaner_interval" yaml:"cleaner_interval" env:"CLEANER_INTERVAL"`

	// BcryptCost is the cost used for new password hashes.
	BcryptCost int `json:"bcrypt_cost" yaml:"bcrypt_cost" env:"BCRYPT_COST"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level" env:"LOG_LEVEL"`

	// CORSOrigins lists the origins allowed to call the API; empty allows any.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:","`

	// Seed populates empty collections with demo data on start.
	Seed bool `json:"seed" yaml:"seed" env:"SEED"`

	// Config is the path to the config file.
	Config string `json:"-" yaml:"-"`
}

// StorageOptions configures the key-value store.
type StorageOptions struct {
	Backend string `json:"backend" yaml:"backend" env:"STORAGE_BACKEND"`

	// Path is the data file of the file backend.
	Path string `json:"path" yaml:"path" env:"STORAGE_PATH"`

	RedisAddr     string `json:"redis_addr" yaml:"redis_addr" env:"REDIS_ADDRESS"`
	RedisPassword string `json:"redis_password" yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db" env:"REDIS_DB"`
	RedisPrefix   string `json:"redis_prefix" yaml:"redis_prefix" env:"REDIS_PREFIX"`

	// DatabaseDSN holds the Postgres connection string.
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn" env:"DATABASE_DSN"`
	// DatabaseDriver is the database/sql driver name: "postgres" (lib/pq) or "pgx".
	DatabaseDriver string `json:"database_driver" yaml:"database_driver" env:"DATABASE_DRIVER"`
	// Migrate applies the embedded schema migrations before serving.
	Migrate bool `json:"migrate" yaml:"migrate" env:"DATABASE_MIGRATE"`
}

// Parse parses the command-line flags, the config file and environment
// variables, exiting the process on error.
func Parse() *Options {
	options, err := Load(os.Args[1:])
	if err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	return options
}

// Load builds Options from args. Values are applied in order: flag defaults
// and flags, then the config file (JSON, YAML or TOML by extension), then
// environment variables. A .env file in the working directory is loaded into
// the environment first if present.
func Load(args []string) (*Options, error) {
	options := &Options{}
	fs := flag.NewFlagSet("hackbridge", flag.ContinueOnError)
	fs.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "path to TLS certificate")
	fs.StringVar(&options.TLSKey, "tls-key", "", "path to TLS key")
	fs.StringVar(&options.Storage.Backend, "storage", BackendFile, "storage backend: memory | file | redis | postgres")
	fs.StringVar(&options.Storage.Path, "data", "hackbridge.json", "data file for the file backend")
	fs.StringVar(&options.Storage.RedisAddr, "redis", "localhost:6379", "redis address")
	fs.StringVar(&options.Storage.RedisPrefix, "redis-prefix", "hackbridge:", "redis key namespace")
	fs.StringVar(&options.Storage.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Storage.DatabaseDriver, "db-driver", "postgres", "database/sql driver: postgres | pgx")
	fs.BoolVar(&options.Storage.Migrate, "migrate", false, "apply schema migrations on start")
	fs.StringVar(&options.JWTSecret, "jwt-secret", "", "session token signing secret")
	fs.DurationVar(&options.SessionTTL, "session-ttl", 72*time.Hour, "session lifetime")
	fs.DurationVar(&options.CleanerInterval, "cleaner-interval", time.Hour, "expired session purge interval")
	fs.IntVar(&options.BcryptCost, "bcrypt-cost", 10, "bcrypt cost for password hashes")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.BoolVar(&options.Seed, "seed", true, "seed empty collections with demo data")
	fs.StringVar(&options.Config, "config", "config.yaml", "path to config file")
	fs.StringVar(&options.Config, "c", "config.yaml", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse flags")
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if _, err := os.Stat(options.Config); err == nil {
		if err := cleanenv.ReadConfig(options.Config, options); err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
	} else if err := cleanenv.ReadEnv(options); err != nil {
		return nil, errors.Wrap(err, "read env")
	}

	if err := options.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return options, nil
}

// Validate validates the configuration.
func (o *Options) Validate() error {
	switch o.Storage.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	case BackendPostgres:
		if o.Storage.DatabaseDSN == "" {
			return errors.New("database DSN is required for the postgres backend")
		}
		if o.Storage.DatabaseDriver != "postgres" && o.Storage.DatabaseDriver != "pgx" {
			return errors.Errorf("unsupported database driver: %q", o.Storage.DatabaseDriver)
		}
	default:
		return errors.Errorf("unsupported storage backend: %q", o.Storage.Backend)
	}
	if o.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if o.SessionTTL <= 0 {
		return errors.Errorf("invalid session ttl: %s", o.SessionTTL)
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("tls cert and key must be set together")
	}
	return nil
}
