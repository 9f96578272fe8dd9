// Package config loads the environment-variable surface this service
// recognizes into one typed struct, the way every component in this
// repository expects its dependencies handed to it explicitly rather
// than reading os.Getenv itself.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is every recognized environment key, parsed and defaulted.
type Config struct {
	APIAuthToken string
	BaseDomain   string
	ACMEEmail    string

	DockerNetwork string
	ServerPort    int

	RabbitMQHost     string
	RabbitMQPort     int
	RabbitMQUser     string
	RabbitMQPassword string

	RedisHost string
	RedisPort int

	CFDNSAPIToken       string
	TraefikCertResolver string
	SSLEnabled          bool

	AllowedOrigins []string

	DefaultEngineVersion string

	InstanceMemLimit       int64
	InstanceMemReservation int64
	InstanceCPUShares      int64

	ReadinessMaxAttempts  int
	ReadinessPollInterval time.Duration
	SSLWaitSeconds        int

	CleanupMaxAgeDays      int
	CleanupIntervalSeconds int

	JobTTL        time.Duration
	JobCleanupTTL time.Duration

	SSEMaxDuration time.Duration

	DefaultTimezone string

	LogLevel      string
	Env           string
	EtcdEndpoints []string
}

// Load reads .env (if present, silently ignored if not) then the
// process environment, and returns a fully defaulted Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIAuthToken: os.Getenv("API_AUTH_TOKEN"),
		BaseDomain:   os.Getenv("BASE_DOMAIN"),
		ACMEEmail:    os.Getenv("ACME_EMAIL"),

		DockerNetwork: getString("DOCKER_NETWORK", "enginefleet"),
		ServerPort:    getInt("SERVER_PORT", 8000),

		RabbitMQHost:     getString("RABBITMQ_HOST", "rabbitmq"),
		RabbitMQPort:     getInt("RABBITMQ_PORT", 5672),
		RabbitMQUser:     getString("RABBITMQ_USER", "guest"),
		RabbitMQPassword: getString("RABBITMQ_PASSWORD", "guest"),

		RedisHost: getString("REDIS_HOST", "redis"),
		RedisPort: getInt("REDIS_PORT", 6379),

		CFDNSAPIToken:       os.Getenv("CF_DNS_API_TOKEN"),
		TraefikCertResolver: getString("TRAEFIK_CERT_RESOLVER", "cloudflare"),
		SSLEnabled:          getBool("SSL_ENABLED", true),

		AllowedOrigins: getList("ALLOWED_ORIGINS", nil),

		DefaultEngineVersion: getString("DEFAULT_N8N_VERSION", "latest"),

		InstanceMemLimit:       getInt64("INSTANCE_MEM_LIMIT", 512*1024*1024),
		InstanceMemReservation: getInt64("INSTANCE_MEM_RESERVATION", 256*1024*1024),
		InstanceCPUShares:      getInt64("INSTANCE_CPU_SHARES", 512),

		ReadinessMaxAttempts:  getInt("READINESS_MAX_ATTEMPTS", 90),
		ReadinessPollInterval: getDuration("READINESS_POLL_INTERVAL", 2*time.Second),
		SSLWaitSeconds:        getInt("SSL_WAIT_SECONDS", 5),

		CleanupMaxAgeDays:      getInt("CLEANUP_MAX_AGE_DAYS", 30),
		CleanupIntervalSeconds: getInt("CLEANUP_INTERVAL_SECONDS", 3600),

		JobTTL:        getDuration("JOB_TTL", time.Hour),
		JobCleanupTTL: getDuration("JOB_CLEANUP_TTL", 5*time.Minute),

		SSEMaxDuration: getDuration("SSE_MAX_DURATION", 10*time.Minute),

		DefaultTimezone: getString("DEFAULT_TIMEZONE", "UTC"),

		LogLevel:      getString("LOG_LEVEL", "info"),
		Env:           getString("ENV", "production"),
		EtcdEndpoints: getList("ETCD_ENDPOINTS", nil),
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RedisAddr returns host:port for a go-redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// RabbitMQURL returns the amqp:// connection string.
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.RabbitMQUser, c.RabbitMQPassword, c.RabbitMQHost, c.RabbitMQPort)
}
