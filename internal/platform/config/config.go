// Package config builds per-binary configuration from environment variables
// so the mains stay lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Registry configures the registry node binary.
type Registry struct {
	Addr          string
	Owner         string
	JWTSigningKey string
	// PostgresURL is the journal DSN. Empty runs an in-memory journal,
	// which loses the ledger on restart; fine for development only.
	PostgresURL  string
	KafkaBrokers []string
	KafkaTopic   string
	AuditBuffer  int
}

// Bridge configures the verification bridge binary.
type Bridge struct {
	Addr            string
	RegistryURL     string
	Principal       string
	JWTSigningKey   string
	VerifyBaseURL   string
	PingTimeout     time.Duration
	DefaultValidity time.Duration
	CacheTTL        time.Duration
	Redis           RedisConfig
}

// Migrate configures the one-shot migration binary.
type Migrate struct {
	RegistryURL   string
	Principal     string
	JWTSigningKey string
	LegacyDSN     string
	Validity      time.Duration
}

// RedisConfig captures Redis connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RegistryFromEnv builds the registry node config.
func RegistryFromEnv() Registry {
	return Registry{
		Addr:          envOr("ATTESTOR_REGISTRY_ADDR", ":8080"),
		Owner:         envOr("ATTESTOR_OWNER", "did:gov:root"),
		JWTSigningKey: signingKey(),
		PostgresURL:   os.Getenv("ATTESTOR_POSTGRES_URL"),
		KafkaBrokers:  splitList(os.Getenv("ATTESTOR_KAFKA_BROKERS")),
		KafkaTopic:    envOr("ATTESTOR_KAFKA_TOPIC", "attestor.audit"),
		AuditBuffer:   intEnv("ATTESTOR_AUDIT_BUFFER", 256),
	}
}

// BridgeFromEnv builds the verification bridge config.
func BridgeFromEnv() Bridge {
	return Bridge{
		Addr:            envOr("ATTESTOR_BRIDGE_ADDR", ":8081"),
		RegistryURL:     envOr("ATTESTOR_REGISTRY_URL", "http://localhost:8080"),
		Principal:       envOr("ATTESTOR_BRIDGE_PRINCIPAL", "did:gov:bridge"),
		JWTSigningKey:   signingKey(),
		VerifyBaseURL:   envOr("ATTESTOR_VERIFY_BASE_URL", "http://localhost:8081"),
		PingTimeout:     durationEnv("ATTESTOR_PING_TIMEOUT", 5*time.Second),
		DefaultValidity: durationEnv("ATTESTOR_DEFAULT_VALIDITY", 365*24*time.Hour),
		CacheTTL:        durationEnv("ATTESTOR_VERIFY_CACHE_TTL", 30*time.Second),
		Redis:           redisFromEnv(),
	}
}

// MigrateFromEnv builds the migration tool config.
func MigrateFromEnv() Migrate {
	return Migrate{
		RegistryURL:   envOr("ATTESTOR_REGISTRY_URL", "http://localhost:8080"),
		Principal:     envOr("ATTESTOR_MIGRATE_PRINCIPAL", "did:gov:migrator"),
		JWTSigningKey: signingKey(),
		LegacyDSN:     os.Getenv("ATTESTOR_LEGACY_POSTGRES_URL"),
		Validity:      durationEnv("ATTESTOR_DEFAULT_VALIDITY", 365*24*time.Hour),
	}
}

func redisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("ATTESTOR_REDIS_URL"),
		PoolSize:     intEnv("ATTESTOR_REDIS_POOL_SIZE", 10),
		MinIdleConns: intEnv("ATTESTOR_REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  durationEnv("ATTESTOR_REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  durationEnv("ATTESTOR_REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: durationEnv("ATTESTOR_REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func signingKey() string {
	if key := os.Getenv("ATTESTOR_JWT_SIGNING_KEY"); key != "" {
		return key
	}
	// Use a default for development - should be overridden in production
	return "dev-secret-key-change-in-production"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
