package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"livepoll/pkg/types"
)

// Gateway tracks live connections and implements the coordinator's broadcast
// and unicast primitives. Pure connection management: no poll state lives
// here. Delivery failures are logged, never surfaced to the coordinator.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	logger      *zap.Logger
}

// NewGateway creates an empty gateway.
func NewGateway(logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		connections: make(map[string]*Connection),
		logger:      logger,
	}
}

// Register adds a connection.
func (g *Gateway) Register(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Connection ids are server-generated UUIDs, so a collision means a
	// programming error; replace and close the old connection regardless.
	if existing, ok := g.connections[conn.ID()]; ok {
		go func() {
			if err := existing.Close(); err != nil {
				g.logger.Warn("failed to close replaced connection", zap.Error(err))
			}
		}()
	}

	g.connections[conn.ID()] = conn
	return nil
}

// Unregister removes a connection. Only the registered instance is removed,
// so a late cleanup of an old connection never evicts its replacement.
func (g *Gateway) Unregister(conn *Connection) {
	if conn == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if registered, ok := g.connections[conn.ID()]; ok && registered == conn {
		delete(g.connections, conn.ID())
	}
}

// Get returns the connection for an id.
func (g *Gateway) Get(connectionID string) (*Connection, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	conn, ok := g.connections[connectionID]
	return conn, ok
}

// Count returns the number of live connections.
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}

// Broadcast delivers an event to every connection. The envelope is marshaled
// once and fanned out; a failed delivery to one connection does not affect
// the others.
func (g *Gateway) Broadcast(event string, payload interface{}) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		g.logger.Error("failed to marshal broadcast", zap.String("event", event), zap.Error(err))
		return
	}

	g.mu.RLock()
	conns := make([]*Connection, 0, len(g.connections))
	for _, conn := range g.connections {
		conns = append(conns, conn)
	}
	g.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.Write(data); err != nil {
			g.logger.Warn("broadcast delivery failed",
				zap.String("event", event),
				zap.String("connection_id", conn.ID()),
				zap.Error(err))
		}
	}
}

// Unicast delivers an event to a single connection. Unknown ids are ignored;
// the client may have disconnected between the coordinator's decision and
// delivery.
func (g *Gateway) Unicast(connectionID string, event string, payload interface{}) {
	conn, ok := g.Get(connectionID)
	if !ok {
		return
	}

	data, err := marshalEnvelope(event, payload)
	if err != nil {
		g.logger.Error("failed to marshal unicast", zap.String("event", event), zap.Error(err))
		return
	}

	if err := conn.Write(data); err != nil {
		g.logger.Warn("unicast delivery failed",
			zap.String("event", event),
			zap.String("connection_id", connectionID),
			zap.Error(err))
	}
}

// CloseAfter closes a connection after a grace delay so queued writes (the
// kicked notification) can flush first.
func (g *Gateway) CloseAfter(connectionID string, delay time.Duration) {
	conn, ok := g.Get(connectionID)
	if !ok {
		return
	}

	go func() {
		select {
		case <-time.After(delay):
		case <-conn.Done():
			return
		}
		if err := conn.Close(); err != nil {
			g.logger.Warn("failed to close connection",
				zap.String("connection_id", connectionID),
				zap.Error(err))
		}
	}()
}

func marshalEnvelope(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(types.Envelope{Event: event, Data: data})
}
