package app

import (
	"strings"
	"time"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// If true, the client IP for rate limiting is taken from X-Forwarded-For.
	// Only enable behind a proxy that strips the header from client requests.
	TrustProxy bool

	RateLimit  int
	RateWindow time.Duration

	BreakerFailures      int
	BreakerHalfOpenAfter time.Duration
	BreakerCooldown      time.Duration

	RetryAttempts int
	RetryBase     time.Duration
	RetryMax      time.Duration

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("DALKAK_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("DALKAK_LOG_LEVEL", "info"),
		LogFormat: EnvString("DALKAK_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("DALKAK_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("DALKAK_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("DALKAK_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("DALKAK_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("DALKAK_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("DALKAK_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("DALKAK_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("DALKAK_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("DALKAK_READINESS_REQUIRE_DB", false),

		TrustProxy: EnvBool("DALKAK_TRUST_PROXY", false),

		RateLimit:  EnvInt("DALKAK_RATE_LIMIT", 60),
		RateWindow: EnvDuration("DALKAK_RATE_WINDOW", time.Minute),

		BreakerFailures:      EnvInt("DALKAK_BREAKER_FAILURES", 5),
		BreakerHalfOpenAfter: EnvDuration("DALKAK_BREAKER_HALF_OPEN_AFTER", 30*time.Second),
		BreakerCooldown:      EnvDuration("DALKAK_BREAKER_COOLDOWN", time.Minute),

		RetryAttempts: EnvInt("DALKAK_RETRY_ATTEMPTS", 3),
		RetryBase:     EnvDuration("DALKAK_RETRY_BASE", 200*time.Millisecond),
		RetryMax:      EnvDuration("DALKAK_RETRY_MAX", 2*time.Second),

		CORSAllowedOrigins:   splitCSV(EnvString("DALKAK_CORS_ALLOWED_ORIGINS", "")),
		CORSAllowCredentials: EnvBool("DALKAK_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("DALKAK_CORS_MAX_AGE_SECONDS", 600),
	}
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
