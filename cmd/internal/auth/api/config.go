// Package authapi wires HTTP admin-auth endpoints to the session token
// manager and exposes the gate all privileged routes pass through.
package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// CookieName is the session cookie carrying the signed admin token. The name
// is part of the external contract with the dashboard frontend.
const CookieName = "auth"

// Config controls auth API behavior and security defaults.
type Config struct {
	// AdminPasswordHash is the Argon2id encoding of the admin password.
	// Login is disabled (503) when empty.
	AdminPasswordHash string

	// AdminOTP, when set, is a second factor required at login.
	AdminOTP string

	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	MaxBodyBytes int64
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		AdminPasswordHash: strings.TrimSpace(os.Getenv("DALKAK_ADMIN_PASSWORD_HASH")),
		AdminOTP:          strings.TrimSpace(os.Getenv("DALKAK_ADMIN_OTP")),
		CookiePath:        "/",
		CookieSecure:      envBool("DALKAK_COOKIE_SECURE", true),
		CookieSameSite:    http.SameSiteLaxMode,
		MaxBodyBytes:      envInt64("DALKAK_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
