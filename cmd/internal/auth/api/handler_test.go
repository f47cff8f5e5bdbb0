package authapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dalkak/cmd/internal/auth/password"
	"dalkak/cmd/internal/auth/session"
)

func testHandler(t *testing.T, cfg Config) *Handler {
	t.Helper()

	tokens, err := session.NewManager(session.Config{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		TTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	h, err := NewHandler(nil, cfg, tokens)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h
}

func adminHash(t *testing.T) string {
	t.Helper()
	enc, err := password.Hash("hunter2-hunter2", password.Params{
		MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return enc
}

func TestRequireAdmin_NoCookie(t *testing.T) {
	t.Parallel()

	h := testHandler(t, Config{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)

	if h.RequireAdmin(rr, req) {
		t.Fatalf("expected gate to reject request without cookie")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", rr.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.Error != "Unauthorized" {
		t.Fatalf("error=%q want Unauthorized", body.Error)
	}
}

func TestRequireAdmin_WrongSubject(t *testing.T) {
	t.Parallel()

	h := testHandler(t, Config{})
	token, _, err := h.tokens.Sign("customer", time.Now().UTC())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	if h.RequireAdmin(rr, req) {
		t.Fatalf("expected gate to reject sub != admin")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", rr.Code)
	}
}

func TestRequireAdmin_ValidAdminToken(t *testing.T) {
	t.Parallel()

	h := testHandler(t, Config{})
	token, _, err := h.tokens.Sign(session.SubjectAdmin, time.Now().UTC())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	if !h.RequireAdmin(rr, req) {
		t.Fatalf("expected gate to admit a valid admin token")
	}
}

func TestLogin_SetsAuthCookie(t *testing.T) {
	t.Parallel()

	h := testHandler(t, Config{AdminPasswordHash: adminHash(t)})
	mux := http.NewServeMux()
	h.Register(mux)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"password":"hunter2-hunter2"}`))
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200: %s", rr.Code, rr.Body.String())
	}

	var authCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			authCookie = c
		}
	}
	if authCookie == nil || authCookie.Value == "" {
		t.Fatalf("expected %s cookie to be set", CookieName)
	}
	if !authCookie.HttpOnly {
		t.Fatalf("auth cookie must be httpOnly")
	}

	// The issued cookie passes the gate.
	gateRR := httptest.NewRecorder()
	gateReq := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	gateReq.AddCookie(&http.Cookie{Name: CookieName, Value: authCookie.Value})
	if !h.RequireAdmin(gateRR, gateReq) {
		t.Fatalf("login cookie rejected by gate")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	h := testHandler(t, Config{AdminPasswordHash: adminHash(t)})
	mux := http.NewServeMux()
	h.Register(mux)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"password":"nope"}`))
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", rr.Code)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("no cookie may be set on failed login")
	}
}

func TestLogin_OTPRequired(t *testing.T) {
	t.Parallel()

	h := testHandler(t, Config{AdminPasswordHash: adminHash(t), AdminOTP: "424242"})
	mux := http.NewServeMux()
	h.Register(mux)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"password":"hunter2-hunter2"}`))
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing otp: status=%d want 401", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"password":"hunter2-hunter2","otp":"424242"}`))
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("with otp: status=%d want 200", rr.Code)
	}
}

func TestLogin_Unconfigured(t *testing.T) {
	t.Parallel()

	h := testHandler(t, Config{})
	mux := http.NewServeMux()
	h.Register(mux)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"password":"whatever"}`))
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
}

func TestLogout_ExpiresCookie(t *testing.T) {
	t.Parallel()

	h := testHandler(t, Config{})
	mux := http.NewServeMux()
	h.Register(mux)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d want 204", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName {
		t.Fatalf("expected a single %s cookie, got %v", CookieName, cookies)
	}
	if cookies[0].MaxAge != -1 {
		t.Fatalf("expected cookie expiry, MaxAge=%d", cookies[0].MaxAge)
	}
}

func TestSession_ReturnsClaims(t *testing.T) {
	t.Parallel()

	h := testHandler(t, Config{})
	mux := http.NewServeMux()
	h.Register(mux)

	token, exp, err := h.tokens.Sign(session.SubjectAdmin, time.Now().UTC())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/session", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	var resp sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.Subject != session.SubjectAdmin {
		t.Fatalf("sub=%q want admin", resp.Subject)
	}
	if !resp.ExpiresAt.Equal(exp) {
		t.Fatalf("expires_at=%v want %v", resp.ExpiresAt, exp)
	}
}
