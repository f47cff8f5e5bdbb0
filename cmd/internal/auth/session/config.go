package session

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const minSecretBytes = 32

// Config controls token issuance.
type Config struct {
	// Secret is the HMAC-SHA256 signing key.
	Secret []byte

	// TTL is the session token lifetime.
	TTL time.Duration
}

// LoadConfigFromEnv resolves the signing secret from DALKAK_JWT_SECRET, then
// DALKAK_SESSION_SECRET. There is no default secret: a missing or short value
// is a startup error, since any guessable signing key mints admin sessions.
func LoadConfigFromEnv() (Config, error) {
	secret := strings.TrimSpace(os.Getenv("DALKAK_JWT_SECRET"))
	if secret == "" {
		secret = strings.TrimSpace(os.Getenv("DALKAK_SESSION_SECRET"))
	}
	if secret == "" {
		return Config{}, fmt.Errorf("%w: DALKAK_JWT_SECRET or DALKAK_SESSION_SECRET is required", ErrConfig)
	}
	if len(secret) < minSecretBytes {
		return Config{}, fmt.Errorf("%w: session secret must be at least %d bytes", ErrConfig, minSecretBytes)
	}

	ttl := time.Hour
	if v := strings.TrimSpace(os.Getenv("DALKAK_SESSION_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%w: bad DALKAK_SESSION_TTL %q", ErrConfig, v)
		}
		ttl = d
	}

	return Config{Secret: []byte(secret), TTL: ttl}, nil
}
