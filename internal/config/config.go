package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string

	// PostgresDSN selects the pgx-backed stores when set; the in-memory
	// stores are used otherwise (dev and tests).
	PostgresDSN string
	// RedisAddr enables the terminal-status cache when set.
	RedisAddr string
	// KafkaBrokers enables the Kafka event publisher when set; the
	// in-process bus is used otherwise.
	KafkaBrokers []string

	JWTSecret string

	Gateway GatewayConfig
	Sweep   SweepConfig
}

// GatewayConfig is the single process-wide payment gateway configuration,
// constructed once at startup and passed explicitly to the adapter.
type GatewayConfig struct {
	BaseURL   string
	SecretKey string
	Currency  string
	Timeout   time.Duration
	// Fake short-circuits the provider and returns a canned client secret.
	Fake bool
}

type SweepConfig struct {
	// Cutoff is the grace period a Pending order may live before the
	// sweeper cancels it.
	Cutoff time.Duration
	// Interval is the timer-driven sweep period; the sweep also runs
	// before every order read.
	Interval time.Duration
}

func Load() Config {
	return Config{
		ServiceName:  getenv("SERVICE_NAME", "shopcore"),
		Env:          getenv("ENV", "dev"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		JWTSecret:    getenv("JWT_SECRET", "shopcore-dev-secret"),
		Gateway: GatewayConfig{
			BaseURL:   getenv("GATEWAY_URL", "https://api.stripe.com"),
			SecretKey: os.Getenv("GATEWAY_SECRET_KEY"),
			Currency:  getenv("GATEWAY_CURRENCY", "sek"),
			Timeout:   getduration("GATEWAY_TIMEOUT", 5*time.Second),
			Fake:      getbool("GATEWAY_FAKE", false),
		},
		Sweep: SweepConfig{
			Cutoff:   getduration("SWEEP_CUTOFF", 24*time.Hour),
			Interval: getduration("SWEEP_INTERVAL", time.Minute),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
