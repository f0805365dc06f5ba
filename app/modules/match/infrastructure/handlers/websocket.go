package matchhandlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	matchservice "github.com/scuffedaim/matchview/app/modules/match/application"
	"github.com/scuffedaim/matchview/app/observability/attr"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// HandleWebSocket upgrades the request and pushes the match view after every
// committed refresh until either side goes away.
func (h *MatchHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	matchID := matchIDParam(r)
	if err := matchservice.ValidateMatchID(matchID); err != nil {
		h.writeJSONError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
			attr.MatchID("match_id", matchID),
			attr.Error(err),
		)
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	ctx, cancel := context.WithCancel(attr.WithCorrelationID(r.Context(), clientID))
	defer cancel()

	logger := h.logger.With(attr.String("client_id", clientID), attr.MatchID("match_id", matchID))
	logger.InfoContext(ctx, "WebSocket client connected")
	defer logger.InfoContext(ctx, "WebSocket client disconnected")

	updates, err := h.service.Subscribe(ctx, matchID)
	if err != nil {
		status := h.logFailure(r, err)
		closeCode := websocket.CloseInternalServerErr
		if status == http.StatusServiceUnavailable {
			closeCode = websocket.CloseTryAgainLater
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeCode, publicMessage(status)),
			time.Now().Add(writeWait))
		return
	}

	go readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case payload, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream ended"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.DebugContext(ctx, "WebSocket write failed", attr.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so control messages are processed, and
// cancels the stream when the connection drops.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// checkOrigin accepts same-host pages and the configured origins.
func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := origins[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
