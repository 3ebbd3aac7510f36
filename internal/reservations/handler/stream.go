package handler

import (
	"net/http"
	"time"

	"helipad/internal/notifier"
	"helipad/pkg/logger"
	"helipad/pkg/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// StreamHandler upgrades observers to a websocket and registers them with the
// hub for the lifetime of the connection.
type StreamHandler struct {
	hub          *notifier.Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	log          *logger.Logger
}

func NewStreamHandler(hub *notifier.Hub, writeTimeout time.Duration, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Access control happens in the identity middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
		log:          log.Component("stream"),
	}
}

func (h *StreamHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/stream", h.Stream)
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := middleware.PrincipalFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "request_id", middleware.RequestIDFromContext(r.Context()), "error", err)
		return
	}

	observer := notifier.NewWebsocketObserver(conn, h.writeTimeout)
	id := uuid.NewString()
	if err := h.hub.Subscribe(id, observer); err != nil {
		h.log.Warn("Failed to register observer", "connection_id", id, "error", err)
		_ = observer.Close()
		return
	}
	defer h.hub.Unsubscribe(id)

	h.log.Info("Observer connected", "connection_id", id, "principal_id", principal.ID, "observers", h.hub.Count())

	done := make(chan struct{})
	go h.keepAlive(id, observer, done)

	err = observer.ReadUntilClosed()
	close(done)

	h.log.Info("Observer disconnected", "connection_id", id, "reason", err)
}

func (h *StreamHandler) keepAlive(id string, observer *notifier.WebsocketObserver, done <-chan struct{}) {
	ticker := time.NewTicker(notifier.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := observer.Ping(); err != nil {
				h.log.Debug("Ping failed, dropping observer", "connection_id", id, "error", err)
				h.hub.Unsubscribe(id)
				return
			}
		case <-done:
			return
		}
	}
}
