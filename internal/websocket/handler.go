package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"livepoll/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// All origins accepted; the poll room is open by design (no
		// authentication, see coordinator role model).
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// EventSink receives decoded inbound events and disconnect notices. The poll
// coordinator implements it; the indirection keeps the transport free of
// poll semantics.
type EventSink interface {
	HandleEvent(connectionID string, envelope *types.Envelope) error
	HandleDisconnect(connectionID string)
}

// Handler upgrades HTTP requests to WebSocket connections and runs their
// read pumps.
type Handler struct {
	gateway      *Gateway
	sink         EventSink
	logger       *zap.Logger
	pingInterval time.Duration
	readTimeout  time.Duration
}

// NewHandler creates a WebSocket handler.
func NewHandler(gateway *Gateway, sink EventSink, pingInterval, readTimeout time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		gateway:      gateway,
		sink:         sink,
		logger:       logger,
		pingInterval: pingInterval,
		readTimeout:  readTimeout,
	}
}

// HandleWebSocket upgrades the request and registers the connection. Unlike
// role-gated systems there is no join-time validation: a connection is
// anonymous until it sends joinAsStudent or joinAsTeacher.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := NewConnection(uuid.New().String(), ws)

	if err := h.gateway.Register(conn); err != nil {
		h.logger.Error("failed to register connection", zap.Error(err))
		_ = conn.Close()
		return
	}

	h.logger.Info("client connected", zap.String("connection_id", conn.ID()))

	go h.handleConnection(conn, ws)
}

// handleConnection runs heartbeat monitoring and the read pump, then reports
// the disconnect to the coordinator on exit.
func (h *Handler) handleConnection(conn *Connection, ws *websocket.Conn) {
	defer func() {
		h.gateway.Unregister(conn)
		_ = conn.Close()
		h.sink.HandleDisconnect(conn.ID())
		h.logger.Info("client disconnected", zap.String("connection_id", conn.ID()))
	}()

	if err := ws.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
		h.logger.Warn("failed to set read deadline", zap.Error(err))
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-conn.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.String("connection_id", conn.ID()), zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var envelope types.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Event == "" {
			h.gateway.Unicast(conn.ID(), types.EventError, types.ErrorPayload{Message: "Malformed request"})
			continue
		}

		if err := h.sink.HandleEvent(conn.ID(), &envelope); err != nil {
			h.logger.Warn("event dropped",
				zap.String("connection_id", conn.ID()),
				zap.String("event", envelope.Event),
				zap.Error(err))
		}
	}
}
