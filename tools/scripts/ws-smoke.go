// Package main provides a CI-friendly smoke test for the Dalkak admin event
// stream.
//
// It validates:
//   - admin login and the auth cookie round-trip
//   - WebSocket handshake on /admin/events with the cookie attached
//   - order create -> cancel over HTTP
//   - the order.cancelled event arriving on the stream
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type event struct {
	Type    string    `json:"type"`
	OrderID string    `json:"order_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		origin   = flag.String("origin", "http://localhost", "Origin header for the WS handshake")
		password = flag.String("password", "", "Admin password (required)")
		otp      = flag.String("otp", "", "Admin OTP, if configured")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if strings.TrimSpace(*password) == "" {
		fatalf("-password is required")
	}
	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		fatalf("cookie jar: %v", err)
	}
	httpClient := &http.Client{Jar: jar, Timeout: *timeout}

	root := context.Background()

	mustLogin(root, httpClient, *baseURL, *password, *otp, *timeout)
	if *verbose {
		fmt.Println("logged in")
	}

	conn := mustSubscribe(root, httpClient, *baseURL, *origin, *timeout)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	order := mustCreateOrder(root, httpClient, *baseURL, *timeout)
	if *verbose {
		fmt.Printf("created order %s\n", order.ID)
	}

	mustPatchStatus(root, httpClient, *baseURL, order.ID, "cancelled", *timeout)

	ev := mustReadEvent(root, conn, *timeout)
	if ev.Type != "order.cancelled" {
		fatalf("event type mismatch: got=%q want=order.cancelled", ev.Type)
	}
	if ev.OrderID != order.ID {
		fatalf("event order_id mismatch: got=%q want=%q", ev.OrderID, order.ID)
	}
	if ev.Status != "cancelled" {
		fatalf("event status mismatch: got=%q", ev.Status)
	}
	if ev.At.IsZero() {
		fatalf("event missing timestamp")
	}

	fmt.Printf("OK: order_id=%s event=%s\n", order.ID, ev.Type)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func mustLogin(parent context.Context, client *http.Client, baseURL, password, otp string, stepTimeout time.Duration) {
	body := map[string]string{"password": password}
	if otp != "" {
		body["otp"] = otp
	}
	resp := mustPostJSON(parent, client, baseURL+"/admin/login", body, stepTimeout)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fatalf("login: status=%d", resp.StatusCode)
	}

	u, _ := url.Parse(baseURL)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == "auth" && c.Value != "" {
			return
		}
	}
	fatalf("login: auth cookie not set")
}

func mustSubscribe(parent context.Context, client *http.Client, baseURL, origin string, stepTimeout time.Duration) *websocket.Conn {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/admin/events"

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPClient: client,
		HTTPHeader: h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("subscribe: %v", err)
	}
	return conn
}

func mustCreateOrder(parent context.Context, client *http.Client, baseURL string, stepTimeout time.Duration) orderResponse {
	resp := mustPostJSON(parent, client, baseURL+"/admin/orders", map[string]any{
		"customer_name": "smoke-test",
		"amount_cents":  1000,
	}, stepTimeout)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		fatalf("create order: status=%d", resp.StatusCode)
	}

	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fatalf("create order: decode: %v", err)
	}
	if out.ID == "" || out.Status != "pending" {
		fatalf("create order: unexpected response %+v", out)
	}
	return out
}

func mustPatchStatus(parent context.Context, client *http.Client, baseURL, orderID, status string, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, _ := json.Marshal(map[string]string{"status": status})
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		baseURL+"/admin/orders/"+orderID, bytes.NewReader(b))
	if err != nil {
		fatalf("patch order: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		fatalf("patch order: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fatalf("patch order: status=%d", resp.StatusCode)
	}
}

func mustReadEvent(parent context.Context, conn *websocket.Conn, stepTimeout time.Duration) event {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	var ev event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		fatalf("read event: %v", err)
	}
	return ev
}

// mustPostJSON relies on the client's own timeout; a per-step context would be
// canceled before the caller reads the body.
func mustPostJSON(_ context.Context, client *http.Client, url string, body any, _ time.Duration) *http.Response {
	b, err := json.Marshal(body)
	if err != nil {
		fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		fatalf("post %s: %v", url, err)
	}
	return resp
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
