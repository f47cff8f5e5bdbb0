package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dalkak/cmd/internal/notify"
)

type gateFunc func(w http.ResponseWriter, r *http.Request) bool

func (f gateFunc) RequireAdmin(w http.ResponseWriter, r *http.Request) bool { return f(w, r) }

func allowAll() AdminGate {
	return gateFunc(func(http.ResponseWriter, *http.Request) bool { return true })
}

func denyAll() AdminGate {
	return gateFunc(func(w http.ResponseWriter, _ *http.Request) bool {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	})
}

type recordingNotifier struct {
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) error {
	n.events = append(n.events, ev)
	return n.err
}

func newTestHandler(t *testing.T, gate AdminGate, opts ...HandlerOption) (*Handler, *MemoryStore, *http.ServeMux) {
	t.Helper()

	store := NewMemoryStore()
	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), store, gate, opts...)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	h.now = func() time.Time { return time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC) }

	mux := http.NewServeMux()
	h.Register(mux)
	return h, store, mux
}

func seedOrder(t *testing.T, store *MemoryStore) Order {
	t.Helper()

	o, err := store.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Han Seoyeon",
		AmountCents:  129_000,
		Now:          time.Date(2026, 2, 13, 11, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestOrdersAPIRequiresAdmin(t *testing.T) {
	t.Parallel()

	_, store, mux := newTestHandler(t, denyAll())
	o := seedOrder(t, store)

	paths := []struct{ method, path, body string }{
		{http.MethodGet, "/admin/orders", ""},
		{http.MethodPost, "/admin/orders", `{"customer_name":"A","amount_cents":100}`},
		{http.MethodGet, "/admin/orders/" + o.ID, ""},
		{http.MethodPatch, "/admin/orders/" + o.ID, `{"status":"paid"}`},
		{http.MethodPatch, "/admin/orders/" + o.ID + "/fulfillment", `{"status":"confirmed"}`},
	}
	for _, tc := range paths {
		w := doJSON(t, mux, tc.method, tc.path, tc.body)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status = %d, want 401", tc.method, tc.path, w.Code)
		}
		if got := strings.TrimSpace(w.Body.String()); got != `{"error":"Unauthorized"}` {
			t.Fatalf("%s %s: body = %s", tc.method, tc.path, got)
		}
	}

	cur, err := store.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if cur.Status != StatusPending {
		t.Fatalf("status after denied requests = %s, want pending", cur.Status)
	}
}

func TestOrdersAPICreate(t *testing.T) {
	t.Parallel()

	_, _, mux := newTestHandler(t, allowAll())

	w := doJSON(t, mux, http.MethodPost, "/admin/orders",
		`{"customer_name":"Han Seoyeon","customer_email":"seoyeon@example.com","amount_cents":129000}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var got Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID == "" || got.Status != StatusPending || got.Currency != "KRW" {
		t.Fatalf("created order = %+v", got)
	}
}

func TestOrdersAPICreateRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, _, mux := newTestHandler(t, allowAll())

	cases := []string{
		`{"customer_name":"A","amount_cents":0}`,
		`{"amount_cents":100}`,
		`not json`,
		`{"customer_name":"A","amount_cents":100,"surprise":true}`,
	}
	for _, body := range cases {
		w := doJSON(t, mux, http.MethodPost, "/admin/orders", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestOrdersAPIGetAndList(t *testing.T) {
	t.Parallel()

	_, store, mux := newTestHandler(t, allowAll())
	o := seedOrder(t, store)

	w := doJSON(t, mux, http.MethodGet, "/admin/orders/"+o.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d: %s", w.Code, w.Body.String())
	}
	if cc := w.Header().Get("Cache-Control"); cc == "" {
		t.Fatal("get: expected a Cache-Control header")
	}

	var got Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if got.ID != o.ID {
		t.Fatalf("got.ID = %s, want %s", got.ID, o.ID)
	}

	w = doJSON(t, mux, http.MethodGet, "/admin/orders", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: status = %d: %s", w.Code, w.Body.String())
	}
	var list struct {
		Orders []Order `json:"orders"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Orders) != 1 || list.Orders[0].ID != o.ID {
		t.Fatalf("list = %+v", list.Orders)
	}

	w = doJSON(t, mux, http.MethodGet, "/admin/orders/01ARZ3NDEKTSV4RRFFQ69G5FAV", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing order: status = %d, want 404", w.Code)
	}
}

func TestOrdersAPIUpdateStatusDirect(t *testing.T) {
	t.Parallel()

	_, store, mux := newTestHandler(t, allowAll())
	o := seedOrder(t, store)

	w := doJSON(t, mux, http.MethodPatch, "/admin/orders/"+o.ID, `{"status":"paid"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != StatusPaid {
		t.Fatalf("status = %s, want paid", got.Status)
	}

	// Illegal edge comes back 400 and the stored status stands.
	w = doJSON(t, mux, http.MethodPatch, "/admin/orders/"+o.ID, `{"status":"pending"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("illegal edge: status = %d, want 400", w.Code)
	}
	cur, err := store.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if cur.Status != StatusPaid {
		t.Fatalf("stored status = %s, want paid", cur.Status)
	}
}

func TestOrdersAPIUpdateStatusBodyShape(t *testing.T) {
	t.Parallel()

	_, store, mux := newTestHandler(t, allowAll())
	o := seedOrder(t, store)

	cases := []string{
		`{}`,
		`{"status":"paid","command":"pay"}`,
		`{"status":"shipped"}`,
		`{"command":"approve"}`,
	}
	for _, body := range cases {
		w := doJSON(t, mux, http.MethodPatch, "/admin/orders/"+o.ID, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, w.Code)
		}
	}

	w := doJSON(t, mux, http.MethodPatch, "/admin/orders/01ARZ3NDEKTSV4RRFFQ69G5FAV", `{"status":"paid"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing order: status = %d, want 404", w.Code)
	}
}

func TestOrdersAPIUpdateStatusByCommand(t *testing.T) {
	t.Parallel()

	rec := &recordingNotifier{}
	_, store, mux := newTestHandler(t, allowAll(), WithNotifier(rec))
	o := seedOrder(t, store)

	w := doJSON(t, mux, http.MethodPatch, "/admin/orders/"+o.ID, `{"command":"cancel"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}

	if len(rec.events) != 1 {
		t.Fatalf("notifications = %d, want 1", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Type != "order.cancelled" || ev.OrderID != o.ID || ev.Status != "cancelled" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestOrdersAPICustomResolver(t *testing.T) {
	t.Parallel()

	resolver := ResolverFunc(func(_ context.Context, command string, current Status) (Status, error) {
		if command != "please mark this one as paid" {
			t.Fatalf("resolver got command %q", command)
		}
		return StatusPaid, nil
	})
	_, store, mux := newTestHandler(t, allowAll(), WithResolver(resolver))
	o := seedOrder(t, store)

	w := doJSON(t, mux, http.MethodPatch, "/admin/orders/"+o.ID,
		`{"command":"please mark this one as paid"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	cur, err := store.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if cur.Status != StatusPaid {
		t.Fatalf("status = %s, want paid", cur.Status)
	}
}

func TestOrdersAPINotifyFailureDoesNotRollBack(t *testing.T) {
	t.Parallel()

	rec := &recordingNotifier{err: errors.New("smtp down")}
	_, store, mux := newTestHandler(t, allowAll(), WithNotifier(rec))
	o := seedOrder(t, store)

	w := doJSON(t, mux, http.MethodPatch, "/admin/orders/"+o.ID, `{"status":"cancelled"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	cur, err := store.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if cur.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled despite notify failure", cur.Status)
	}
}

func TestOrdersAPINoNotifyOnPaid(t *testing.T) {
	t.Parallel()

	rec := &recordingNotifier{}
	_, store, mux := newTestHandler(t, allowAll(), WithNotifier(rec))
	o := seedOrder(t, store)

	w := doJSON(t, mux, http.MethodPatch, "/admin/orders/"+o.ID, `{"status":"paid"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if len(rec.events) != 0 {
		t.Fatalf("notifications = %d, want 0 for paid", len(rec.events))
	}
}

func TestOrdersAPIUpdateFulfillment(t *testing.T) {
	t.Parallel()

	_, store, mux := newTestHandler(t, allowAll())
	o := seedOrder(t, store)

	w := doJSON(t, mux, http.MethodPatch, "/admin/orders/"+o.ID+"/fulfillment", `{"status":"confirmed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Fulfillment != FulfillConfirmed {
		t.Fatalf("fulfillment = %s, want confirmed", got.Fulfillment)
	}
	if got.Status != StatusPending {
		t.Fatalf("payment status = %s, want pending", got.Status)
	}

	// Skipping a warehouse step is rejected.
	w = doJSON(t, mux, http.MethodPatch, "/admin/orders/"+o.ID+"/fulfillment", `{"status":"shipping"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("skip step: status = %d, want 400", w.Code)
	}

	w = doJSON(t, mux, http.MethodPatch, "/admin/orders/"+o.ID+"/fulfillment", `{"status":"boxed"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: status = %d, want 400", w.Code)
	}
}

func TestOrdersAPIMutationsAreNeverCached(t *testing.T) {
	t.Parallel()

	_, store, mux := newTestHandler(t, allowAll())
	o := seedOrder(t, store)

	w := doJSON(t, mux, http.MethodPatch, "/admin/orders/"+o.ID, `{"status":"paid"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store, no-cache, must-revalidate" {
		t.Fatalf("mutation Cache-Control = %q", cc)
	}

	w = doJSON(t, mux, http.MethodPost, "/admin/orders", `{"customer_name":"A","amount_cents":100}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store, no-cache, must-revalidate" {
		t.Fatalf("create Cache-Control = %q", cc)
	}
}
