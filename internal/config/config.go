// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/luizasposito/sheep-management-system/internal/revocation"
	"github.com/luizasposito/sheep-management-system/internal/utils"
)

// ErrMissingEnv is wrapped by every error about a required variable.
var ErrMissingEnv = errors.New("missing required env var")

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	DBAutoMigrate bool   // create missing tables at startup

	JWTSecret    string // secret used to sign JWTs, required
	JWTAlgorithm string // HS256, HS384 or HS512
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing

	IdentityLookupTimeout time.Duration // upper bound for one identity store query

	RevocationBackend string // "memory", "redis" or "mysql"
	RevocationPrefix  string // key prefix for the redis backend

	PrincipalCache PrincipalCacheConfig
	Redis          RedisConfig

	AMQPURL string // RabbitMQ URL; empty disables event publishing

	OTLPEndpoint string // OTLP gRPC collector; empty disables tracing
	OTLPInsecure bool
}

// TokenConfig returns the signing parameters for utils.IssueToken and
// utils.DecodeToken.
func (c Config) TokenConfig() utils.TokenConfig {
	return utils.TokenConfig{
		Secret:    []byte(c.JWTSecret),
		Algorithm: c.JWTAlgorithm,
		TTL:       time.Duration(c.AccessTTLMin) * time.Minute,
	}
}

// Load pre-loads the given .env files (or ./.env when none are given and
// it exists), then reads the environment.  Any configuration error is
// fatal: the process must not start serving without a signing secret.
func Load(envFiles ...string) Config {
	LoadEnvFiles(envFiles...)
	cfg, err := Parse(os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// LoadEnvFiles copies the given .env files, or ./.env when none are given,
// into the process environment.  A named file that cannot be read is fatal.
func LoadEnvFiles(envFiles ...string) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			log.Fatalf("load env files %v: %v", envFiles, err)
		}
		return
	}
	_ = godotenv.Load()
}

// AMQPURL returns RABBITMQ_URL, falling back to AMQP_URL.  Empty means no
// broker is configured.
func AMQPURL(lookup func(string) (string, bool)) string {
	r := &reader{lookup: lookup}
	return r.str("RABBITMQ_URL", r.str("AMQP_URL", ""))
}

// Parse builds a Config from lookup, which has the signature of
// os.LookupEnv.  All problems are reported together.
func Parse(lookup func(string) (string, bool)) (Config, error) {
	r := &reader{lookup: lookup}
	cfg := Config{
		Env:           r.str("APP_ENV", "dev"),
		Port:          r.str("APP_PORT", "8080"),
		DBUser:        r.must("DB_USER"),
		DBPass:        r.str("DB_PASS", ""),
		DBHost:        r.must("DB_HOST"),
		DBPort:        r.str("DB_PORT", "3306"),
		DBName:        r.must("DB_NAME"),
		DBAutoMigrate: r.boolean("DB_AUTO_MIGRATE", false),

		JWTSecret:    r.must("JWT_SECRET"),
		JWTAlgorithm: strings.ToUpper(r.str("JWT_ALGORITHM", "HS256")),
		AccessTTLMin: r.integer("ACCESS_TOKEN_TTL_MIN", 300),
		BcryptCost:   r.integer("BCRYPT_COST", bcrypt.DefaultCost),

		IdentityLookupTimeout: r.duration("IDENTITY_LOOKUP_TIMEOUT", 5*time.Second),

		RevocationBackend: strings.ToLower(r.str("REVOCATION_BACKEND", revocation.BackendMemory)),
		RevocationPrefix:  r.str("REVOCATION_PREFIX", "revoked"),

		PrincipalCache: loadPrincipalCache(r),
		Redis:          loadRedis(r),

		AMQPURL: AMQPURL(lookup),

		OTLPEndpoint: r.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure: r.boolean("OTEL_EXPORTER_OTLP_INSECURE", true),
	}

	if _, err := utils.SigningMethod(cfg.JWTAlgorithm); err != nil {
		r.fail(fmt.Errorf("JWT_ALGORITHM: %w", err))
	}
	if cfg.AccessTTLMin <= 0 {
		r.fail(fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive, got %d", cfg.AccessTTLMin))
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		r.fail(fmt.Errorf("BCRYPT_COST must be within [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost))
	}
	if cfg.IdentityLookupTimeout <= 0 {
		r.fail(errors.New("IDENTITY_LOOKUP_TIMEOUT must be positive"))
	}
	switch cfg.RevocationBackend {
	case revocation.BackendMemory, revocation.BackendRedis, revocation.BackendMySQL:
	default:
		r.fail(fmt.Errorf("REVOCATION_BACKEND must be %q, %q or %q, got %q",
			revocation.BackendMemory, revocation.BackendRedis, revocation.BackendMySQL, cfg.RevocationBackend))
	}
	return cfg, errors.Join(r.errs...)
}

// reader collects errors while reading variables so that every problem is
// reported at once instead of one per restart.
type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) fail(err error) { r.errs = append(r.errs, err) }

// must retrieves the value of a required variable.  Unset and empty are
// both treated as missing.
func (r *reader) must(key string) string {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		r.fail(fmt.Errorf("%w: %s", ErrMissingEnv, key))
		return ""
	}
	return v
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	s := r.str(key, "")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.fail(fmt.Errorf("invalid int for %s: %q", key, s))
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	s := r.str(key, "")
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		r.fail(fmt.Errorf("invalid bool for %s: %q", key, s))
		return def
	}
	return b
}

// duration accepts Go duration strings ("5s", "250ms") and bare integers,
// which are read as seconds.
func (r *reader) duration(key string, def time.Duration) time.Duration {
	s := r.str(key, "")
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		r.fail(fmt.Errorf("invalid duration for %s: %q", key, s))
		return def
	}
	return d
}
