package notify

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	wsDefaultSendQueueSize = 256
	wsWriteTimeout         = 5 * time.Second

	// Only localhost is allowed by default (secure-by-default for dev).
	wsDefaultAllowedOrigins = "http://localhost,http://127.0.0.1"
)

// Gateway is the WebSocket entrypoint for the admin event feed.
//
// Authorize gates the upgrade: the feed carries customer identifiers, so it
// sits behind the same admin cookie as the REST surface.
type Gateway struct {
	log *slog.Logger
	hub *Hub

	// Authorize writes its own error response and returns false to deny.
	authorize func(http.ResponseWriter, *http.Request) bool

	originPatterns []string
	queueSize      int
}

// NewGateway constructs a Gateway with secure defaults. authorize may be nil
// in tests, which leaves the feed open.
func NewGateway(log *slog.Logger, hub *Hub, authorize func(http.ResponseWriter, *http.Request) bool) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	if hub == nil {
		hub = NewHub(log)
	}

	origins := strings.TrimSpace(os.Getenv("DALKAK_WS_ALLOWED_ORIGINS"))
	if origins == "" {
		origins = wsDefaultAllowedOrigins
	}

	return &Gateway{
		log:            log,
		hub:            hub,
		authorize:      authorize,
		originPatterns: originPatternsFrom(origins),
		queueSize:      wsDefaultSendQueueSize,
	}
}

// HandleEvents upgrades the connection and streams order events until the
// client disconnects or the server shuts down.
func (g *Gateway) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if g.authorize != nil && !g.authorize(w, r) {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Info("notify.ws.accept.fail", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "event feed closed")

	// CloseRead surfaces client disconnects through the returned context;
	// the feed is write-only from the server side.
	ctx := conn.CloseRead(r.Context())

	client := NewClient(g.queueSize)
	g.hub.Subscribe(client)
	defer g.hub.Unsubscribe(client)

	g.log.Info("notify.ws.connected", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "bye")
			return
		case <-client.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev := <-client.Send:
			wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				g.log.Info("notify.ws.write.fail", "err", err)
				return
			}
		}
	}
}

// originPatternsFrom derives websocket.Accept host patterns from a CSV of
// allowed origins ("http://localhost,https://admin.example.com").
func originPatternsFrom(csv string) []string {
	var patterns []string
	for _, origin := range strings.Split(csv, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		host := origin
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		host = strings.TrimSuffix(host, "/")
		if host != "" {
			patterns = append(patterns, host)
		}
	}
	return patterns
}
