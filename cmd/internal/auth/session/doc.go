// Package session issues and verifies the short-lived admin session token
// carried in the Dalkak auth cookie.
//
// Tokens are HMAC-SHA256 JWTs with sub/iat/exp claims. Verification fails
// closed: any malformed token, signature mismatch, or past expiry yields
// ErrInvalidToken, which callers treat as "unauthenticated", never as an
// exceptional condition.
package session
