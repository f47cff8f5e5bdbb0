package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"dalkak/cmd/internal/guard"
	"dalkak/cmd/internal/notify"
)

// AdminGate authorizes privileged requests. On failure it has already written
// the 401 response; the handler just returns.
type AdminGate interface {
	RequireAdmin(w http.ResponseWriter, r *http.Request) bool
}

// CommandResolver maps a free-text command onto a target payment status given
// the current one. The deterministic ResolveCommand is the baseline; the
// assist resolver layers an LLM call on top with the same contract.
type CommandResolver interface {
	Resolve(ctx context.Context, command string, current Status) (Status, error)
}

// ResolverFunc adapts a function to CommandResolver.
type ResolverFunc func(ctx context.Context, command string, current Status) (Status, error)

// Resolve implements CommandResolver.
func (f ResolverFunc) Resolve(ctx context.Context, command string, current Status) (Status, error) {
	return f(ctx, command, current)
}

// Handler wires the admin order endpoints to the store.
type Handler struct {
	log      *slog.Logger
	store    Store
	gate     AdminGate
	advisor  *guard.Advisor
	notifier notify.Notifier
	resolver CommandResolver

	maxBodyBytes int64
	now          func() time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithNotifier sets the lifecycle notifier (default: structured log).
func WithNotifier(n notify.Notifier) HandlerOption {
	return func(h *Handler) {
		if n != nil {
			h.notifier = n
		}
	}
}

// WithResolver overrides the deterministic command resolver.
func WithResolver(r CommandResolver) HandlerOption {
	return func(h *Handler) {
		if r != nil {
			h.resolver = r
		}
	}
}

// WithAdvisor sets the cache advisor applied to GET routes.
func WithAdvisor(a *guard.Advisor) HandlerOption {
	return func(h *Handler) {
		if a != nil {
			h.advisor = a
		}
	}
}

// NewHandler constructs an order API handler.
func NewHandler(log *slog.Logger, store Store, gate AdminGate, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("orders: nil store")
	}
	if gate == nil {
		return nil, errors.New("orders: nil admin gate")
	}

	h := &Handler{
		log:          log,
		store:        store,
		gate:         gate,
		advisor:      guard.NewAdvisor(nil),
		notifier:     notify.LogNotifier{Log: log},
		resolver:     ResolverFunc(deterministicResolve),
		maxBodyBytes: 1 << 20,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

func deterministicResolve(_ context.Context, command string, current Status) (Status, error) {
	return ResolveCommand(command, current)
}

// Register wires order routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("GET /admin/orders", h.handleList)
	mux.HandleFunc("POST /admin/orders", h.handleCreate)
	mux.HandleFunc("GET /admin/orders/{id}", h.handleGet)
	mux.HandleFunc("PATCH /admin/orders/{id}", h.handleUpdateStatus)
	mux.HandleFunc("PATCH /admin/orders/{id}/fulfillment", h.handleUpdateFulfillment)
}

// ---- handlers ----

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if !h.gate.RequireAdmin(w, r) {
		return
	}

	var list []Order
	advice, err := h.advisor.Measure("orders.list", r.Method, func() error {
		var err error
		list, err = h.store.ListOrders(r.Context(), defaultListLimit)
		return err
	})
	if err != nil {
		h.log.Error("orders.list.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Cache-Control", advice.CacheControl)
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	if !h.gate.RequireAdmin(w, r) {
		return
	}
	id := r.PathValue("id")

	var order Order
	advice, err := h.advisor.Measure("orders.get", r.Method, func() error {
		var err error
		order, err = h.store.GetOrder(r.Context(), id)
		return err
	})
	if err != nil {
		if IsNotFound(err) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.log.Error("orders.get.fail", "err", err, "order_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Cache-Control", advice.CacheControl)
	writeJSON(w, http.StatusOK, order)
}

type createRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !h.gate.RequireAdmin(w, r) {
		return
	}
	w.Header().Set("Cache-Control", guard.CacheNever)

	var req createRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.store.CreateOrder(r.Context(), CreateOrderInput{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
		Now:           h.now().UTC(),
	})
	if err != nil {
		if IsInvalidInput(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("orders.create.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.log.Info("orders.created", "order_id", order.ID, "amount_cents", order.AmountCents)
	writeJSON(w, http.StatusCreated, order)
}

type updateStatusRequest struct {
	Status  string `json:"status,omitempty"`
	Command string `json:"command,omitempty"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !h.gate.RequireAdmin(w, r) {
		return
	}
	w.Header().Set("Cache-Control", guard.CacheNever)
	id := r.PathValue("id")

	var req updateStatusRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if (req.Status == "") == (req.Command == "") {
		writeError(w, http.StatusBadRequest, "exactly one of status or command is required")
		return
	}

	current, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if IsNotFound(err) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.log.Error("orders.update.load.fail", "err", err, "order_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	target, err := h.resolveTarget(r.Context(), req, current.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The store revalidates the edge under its own lock; the stored status
	// may have moved since the read above.
	updated, err := h.store.UpdateOrderStatus(r.Context(), id, target, h.now().UTC())
	if err != nil {
		switch {
		case IsNotFound(err):
			writeError(w, http.StatusNotFound, "order not found")
		case IsIllegalTransition(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error("orders.update.fail", "err", err, "order_id", id)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.log.Info("orders.status.updated", "order_id", id, "from", current.Status, "to", updated.Status)
	h.notifyTransition(r.Context(), updated)
	writeJSON(w, http.StatusOK, updated)
}

type updateFulfillmentRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateFulfillment(w http.ResponseWriter, r *http.Request) {
	if !h.gate.RequireAdmin(w, r) {
		return
	}
	w.Header().Set("Cache-Control", guard.CacheNever)
	id := r.PathValue("id")

	var req updateFulfillmentRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target, err := ParseFulfillmentStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.store.UpdateFulfillment(r.Context(), id, target, h.now().UTC())
	if err != nil {
		switch {
		case IsNotFound(err):
			writeError(w, http.StatusNotFound, "order not found")
		case IsIllegalTransition(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error("orders.fulfillment.fail", "err", err, "order_id", id)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.log.Info("orders.fulfillment.updated", "order_id", id, "to", updated.Fulfillment)
	writeJSON(w, http.StatusOK, updated)
}

// ---- helpers ----

func (h *Handler) resolveTarget(ctx context.Context, req updateStatusRequest, current Status) (Status, error) {
	if req.Status != "" {
		return ParseStatus(req.Status)
	}
	return h.resolver.Resolve(ctx, req.Command, current)
}

// notifyTransition emits the cancelled/refunded notification. Best-effort by
// contract: a notify failure is logged and the committed status update stands.
func (h *Handler) notifyTransition(ctx context.Context, o Order) {
	if !o.Status.NotifiesOnEntry() {
		return
	}
	ev := notify.Event{
		Type:    "order." + string(o.Status),
		OrderID: o.ID,
		Status:  string(o.Status),
		Message: "order " + o.ID + " is now " + string(o.Status),
		At:      h.now().UTC(),
	}
	if err := h.notifier.Notify(ctx, ev); err != nil {
		h.log.Error("orders.notify.fail", "err", err, "order_id", o.ID)
	}
}
