package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dalkak/cmd/internal/auth/password"
	"dalkak/cmd/internal/auth/session"
)

// Handler wires HTTP admin-auth endpoints to the session token manager.
type Handler struct {
	log    *slog.Logger
	cfg    Config
	tokens *session.Manager

	// dummyHash keeps login timing uniform when no admin hash is configured
	// or the stored hash is malformed.
	dummyHash string

	now func() time.Time
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, tokens *session.Manager) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if tokens == nil {
		return nil, errors.New("authapi: nil token manager")
	}

	h := &Handler{log: log, cfg: cfg, tokens: tokens, now: time.Now}

	if dummy, err := password.Hash("dummy-password-for-timing-only", password.DefaultParams()); err == nil {
		h.dummyHash = dummy
	}

	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /admin/login", h.handleLogin)
	mux.HandleFunc("POST /admin/logout", h.handleLogout)
	mux.HandleFunc("GET /admin/session", h.handleSession)
}

// RequireAdmin authorizes a privileged request. On failure it writes the 401
// contract body and returns false; handlers must return immediately.
func (h *Handler) RequireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if _, err := h.adminClaims(r); err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	return true
}

// adminClaims verifies the auth cookie and requires sub == "admin". A nil
// error is the only authenticated outcome; every failure collapses to
// session.ErrInvalidToken so callers cannot leak why a token was rejected.
func (h *Handler) adminClaims(r *http.Request) (session.Claims, error) {
	token := authCookieToken(r)
	if token == "" {
		return session.Claims{}, session.ErrInvalidToken
	}
	claims, err := h.tokens.Verify(token, h.now().UTC())
	if err != nil {
		return session.Claims{}, session.ErrInvalidToken
	}
	if claims.Subject != session.SubjectAdmin {
		return session.Claims{}, session.ErrInvalidToken
	}
	return claims, nil
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pw := strings.TrimSpace(req.Password)
	if pw == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	if h.cfg.AdminPasswordHash == "" {
		// Burn the same work as a real check before refusing.
		if h.dummyHash != "" {
			_, _ = password.Verify(h.dummyHash, pw)
		}
		writeError(w, http.StatusServiceUnavailable, "admin login is not configured")
		return
	}

	ok, err := password.Verify(h.cfg.AdminPasswordHash, pw)
	if err != nil {
		h.log.Error("auth.login.verify.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "admin login is not configured")
		return
	}
	if !ok {
		h.log.Info("auth.login.rejected", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if h.cfg.AdminOTP != "" && !secureStringEqual(strings.TrimSpace(req.OTP), h.cfg.AdminOTP) {
		h.log.Info("auth.login.otp_rejected", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	now := h.now().UTC()
	token, exp, err := h.tokens.Sign(session.SubjectAdmin, now)
	if err != nil {
		h.log.Error("auth.login.sign.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.setAuthCookie(w, token, exp)
	h.log.Info("auth.login.ok", "remote", r.RemoteAddr, "expires_at", exp)
	writeJSON(w, http.StatusOK, loginResponse{OK: true, ExpiresAt: exp})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Logout is deliberately gate-free: clearing an absent session is a no-op
	// and an expired cookie should still be clearable.
	h.clearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	claims, err := h.adminClaims(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	})
}
