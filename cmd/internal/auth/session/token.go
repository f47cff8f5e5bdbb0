package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SubjectAdmin is the sub claim value required for privileged routes.
const SubjectAdmin = "admin"

// Claims is the minimal identity envelope carried by a session token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager signs and verifies session tokens with a single HMAC key.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager constructs a Manager from config.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrConfig
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{secret: cfg.Secret, ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Sign issues a token for subject valid for the configured TTL from now.
func (m *Manager) Sign(subject string, now time.Time) (string, time.Time, error) {
	return m.SignWithTTL(subject, now, m.ttl)
}

// SignWithTTL issues a token with an explicit lifetime. A non-positive ttl
// produces an already-expired token; that is intentional and used by tests.
func (m *Manager) SignWithTTL(subject string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	// JWT numeric dates carry whole seconds; truncating here keeps the
	// returned expiry identical to what Verify reads back.
	now = now.Truncate(time.Second)
	exp := now.Add(ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates token at time "now". Every failure mode maps to
// ErrInvalidToken so callers cannot accidentally branch on internals.
func (m *Manager) Verify(token string, now time.Time) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	var rc jwt.RegisteredClaims
	parsed, err := parser.ParseWithClaims(token, &rc, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid || rc.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	c := Claims{Subject: rc.Subject}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}
