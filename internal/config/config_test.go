package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"DB_USER":    "farm",
		"DB_HOST":    "127.0.0.1",
		"DB_NAME":    "sheep",
		"JWT_SECRET": "s3cret",
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(lookupFrom(baseEnv()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "8080" || cfg.DBPort != "3306" {
		t.Fatalf("unexpected defaults: port=%s dbport=%s", cfg.Port, cfg.DBPort)
	}
	if cfg.AccessTTLMin != 300 {
		t.Fatalf("expected 300 minute ttl, got %d", cfg.AccessTTLMin)
	}
	if cfg.JWTAlgorithm != "HS256" {
		t.Fatalf("expected HS256, got %s", cfg.JWTAlgorithm)
	}
	if cfg.IdentityLookupTimeout != 5*time.Second {
		t.Fatalf("expected 5s lookup timeout, got %v", cfg.IdentityLookupTimeout)
	}
	if cfg.RevocationBackend != "memory" {
		t.Fatalf("expected memory backend, got %s", cfg.RevocationBackend)
	}
	if cfg.PrincipalCache.Enabled() {
		t.Fatal("expected principal cache to be disabled by default")
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis addr %s", cfg.Redis.Addr)
	}

	tc := cfg.TokenConfig()
	if string(tc.Secret) != "s3cret" || tc.TTL != 300*time.Minute {
		t.Fatalf("unexpected token config %+v", tc)
	}
}

func TestParseMissingSecret(t *testing.T) {
	env := baseEnv()
	delete(env, "JWT_SECRET")
	_, err := Parse(lookupFrom(env))
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("expected ErrMissingEnv, got %v", err)
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected error to name JWT_SECRET, got %v", err)
	}
}

func TestParseBlankSecretIsMissing(t *testing.T) {
	env := baseEnv()
	env["JWT_SECRET"] = "   "
	if _, err := Parse(lookupFrom(env)); !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("expected ErrMissingEnv, got %v", err)
	}
}

func TestParseReportsAllProblems(t *testing.T) {
	env := map[string]string{
		"JWT_ALGORITHM":      "RS256",
		"REVOCATION_BACKEND": "etcd",
		"BCRYPT_COST":        "abc",
	}
	_, err := Parse(lookupFrom(env))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"DB_USER", "DB_HOST", "DB_NAME", "JWT_SECRET", "JWT_ALGORITHM", "REVOCATION_BACKEND", "BCRYPT_COST"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestParseOverrides(t *testing.T) {
	env := baseEnv()
	env["JWT_ALGORITHM"] = "hs512"
	env["ACCESS_TOKEN_TTL_MIN"] = "15"
	env["IDENTITY_LOOKUP_TIMEOUT"] = "750ms"
	env["REVOCATION_BACKEND"] = "Redis"
	env["PRINCIPAL_CACHE_TTL"] = "30"
	env["REDIS_HOST"] = "cache"
	env["REDIS_PORT"] = "6380"
	env["REDIS_TLS"] = "1"
	env["AMQP_URL"] = "amqp://guest:guest@mq:5672/"
	env["DB_AUTO_MIGRATE"] = "true"

	cfg, err := Parse(lookupFrom(env))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.JWTAlgorithm != "HS512" || cfg.AccessTTLMin != 15 {
		t.Fatalf("unexpected token settings %s/%d", cfg.JWTAlgorithm, cfg.AccessTTLMin)
	}
	if cfg.IdentityLookupTimeout != 750*time.Millisecond {
		t.Fatalf("unexpected timeout %v", cfg.IdentityLookupTimeout)
	}
	if cfg.RevocationBackend != "redis" {
		t.Fatalf("unexpected backend %s", cfg.RevocationBackend)
	}
	if !cfg.PrincipalCache.Enabled() || cfg.PrincipalCache.TTL != 30*time.Second {
		t.Fatalf("unexpected cache config %+v", cfg.PrincipalCache)
	}
	if cfg.Redis.Addr != "cache:6380" || !cfg.Redis.TLS {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
	if cfg.AMQPURL != "amqp://guest:guest@mq:5672/" || !cfg.DBAutoMigrate {
		t.Fatalf("unexpected amqp/migrate settings %q %v", cfg.AMQPURL, cfg.DBAutoMigrate)
	}
}

func TestParseRabbitURLWinsOverAMQP(t *testing.T) {
	env := baseEnv()
	env["RABBITMQ_URL"] = "amqp://a/"
	env["AMQP_URL"] = "amqp://b/"
	cfg, err := Parse(lookupFrom(env))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.AMQPURL != "amqp://a/" {
		t.Fatalf("expected RABBITMQ_URL, got %s", cfg.AMQPURL)
	}
}

func TestParseAcceptsMySQLRevocation(t *testing.T) {
	env := baseEnv()
	env["REVOCATION_BACKEND"] = "MySQL"

	cfg, err := Parse(lookupFrom(env))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.RevocationBackend != "mysql" {
		t.Fatalf("unexpected backend %s", cfg.RevocationBackend)
	}
}

func TestAMQPURLPrefersRabbitMQURL(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{}, ""},
		{map[string]string{"AMQP_URL": "amqp://b/"}, "amqp://b/"},
		{map[string]string{"AMQP_URL": "amqp://b/", "RABBITMQ_URL": "amqp://a/"}, "amqp://a/"},
		{map[string]string{"AMQP_URL": "amqp://b/", "RABBITMQ_URL": ""}, "amqp://b/"},
	}
	for _, tc := range cases {
		if got := AMQPURL(lookupFrom(tc.env)); got != tc.want {
			t.Errorf("AMQPURL(%v) = %q, want %q", tc.env, got, tc.want)
		}
	}
}
