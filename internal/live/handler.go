package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/taskflow/internal/dashboard"
	"github.com/ashureev/taskflow/internal/identity"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// writeTimeout bounds a single frame write to a slow client.
const writeTimeout = 10 * time.Second

// PageHandler upgrades GET /ws/page to a WebSocket serving one live page.
type PageHandler struct {
	tasks          dashboard.TaskStore
	sm             *SessionManager
	cfg            PageConfig
	allowedOrigins []string
	isDev          bool
}

// NewPageHandler creates a new page handler.
func NewPageHandler(tasks dashboard.TaskStore, sm *SessionManager, cfg PageConfig, allowedOrigins []string, isDev bool) *PageHandler {
	return &PageHandler{
		tasks:          tasks,
		sm:             sm,
		cfg:            cfg,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	auth := identity.FromContext(r.Context())
	if !auth.Authenticated() {
		http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
		return
	}
	userID := auth.UserID()
	slog.Info("Live page connection request", "user_id", userID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "page closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	pageID := uuid.NewString()
	h.sm.Register(userID, pageID, ws)
	defer h.sm.Unregister(userID, pageID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	page := NewPage(pageID, *auth.User, h.tasks, h.cfg)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		h.writeLoop(ctx, ws, page, userID)
	}()

	page.Start(ctx)
	h.readLoop(ctx, ws, page, userID)

	cancel()
	page.Shutdown()
	<-writerDone
	slog.Info("Live page ended", "user_id", userID, "page_id", pageID)
}

func (h *PageHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *PageHandler) readLoop(ctx context.Context, ws *websocket.Conn, page *Page, userID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			page.sendError(errors.New("invalid message"))
			continue
		}
		page.Handle(ctx, msg)
	}
}

func (h *PageHandler) writeLoop(ctx context.Context, ws *websocket.Conn, page *Page, userID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-page.Done():
			return
		case msg := <-page.Outbox():
			if err := writeJSON(ctx, ws, msg); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "error", err, "user_id", userID)
				}
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
