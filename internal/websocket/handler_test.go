package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepoll/pkg/types"
)

// recordingSink captures events and disconnects forwarded by the handler.
type recordingSink struct {
	mu          sync.Mutex
	events      []sinkEvent
	disconnects []string
}

type sinkEvent struct {
	connectionID string
	envelope     types.Envelope
}

func (s *recordingSink) HandleEvent(connectionID string, envelope *types.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{connectionID: connectionID, envelope: *envelope})
	return nil
}

func (s *recordingSink) HandleDisconnect(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects = append(s.disconnects, connectionID)
}

func (s *recordingSink) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *recordingSink) lastEvent() (sinkEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return sinkEvent{}, false
	}
	return s.events[len(s.events)-1], true
}

func (s *recordingSink) disconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.disconnects)
}

// newTestServer wires a gateway and handler behind an httptest server and
// returns a connected client.
func newTestServer(t *testing.T, sink EventSink) (*Gateway, *websocket.Conn) {
	t.Helper()

	gateway := NewGateway(nil)
	handler := NewHandler(gateway, sink, 50*time.Millisecond, time.Second, nil)

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.Eventually(t, func() bool {
		return gateway.Count() == 1
	}, 2*time.Second, 5*time.Millisecond)

	return gateway, client
}

func TestHandler_ForwardsInboundEvents(t *testing.T) {
	sink := &recordingSink{}
	_, client := newTestServer(t, sink)

	payload := `{"event":"joinAsStudent","data":{"studentName":"Ada"}}`
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(payload)))

	require.Eventually(t, func() bool {
		return sink.eventCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	ev, ok := sink.lastEvent()
	require.True(t, ok)
	assert.Equal(t, types.EventJoinAsStudent, ev.envelope.Event)
	assert.NotEmpty(t, ev.connectionID)
	assert.JSONEq(t, `{"studentName":"Ada"}`, string(ev.envelope.Data))
}

func TestHandler_MalformedPayloadGetsErrorNotForwarded(t *testing.T) {
	sink := &recordingSink{}
	_, client := newTestServer(t, sink)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("{not json")))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var envelope types.Envelope
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, types.EventError, envelope.Event)
	assert.Equal(t, 0, sink.eventCount())
}

func TestHandler_MissingEventNameRejected(t *testing.T) {
	sink := &recordingSink{}
	_, client := newTestServer(t, sink)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"data":{}}`)))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var envelope types.Envelope
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, types.EventError, envelope.Event)
}

func TestHandler_DisconnectUnregistersAndNotifiesSink(t *testing.T) {
	sink := &recordingSink{}
	gateway, client := newTestServer(t, sink)

	require.NoError(t, client.Close())

	require.Eventually(t, func() bool {
		return gateway.Count() == 0 && sink.disconnectCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestGateway_BroadcastReachesAllClients(t *testing.T) {
	sink := &recordingSink{}
	gateway := NewGateway(nil)
	handler := NewHandler(gateway, sink, 50*time.Millisecond, time.Second, nil)

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	var clients []*websocket.Conn
	for i := 0; i < 3; i++ {
		client, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		clients = append(clients, client)
	}

	require.Eventually(t, func() bool {
		return gateway.Count() == 3
	}, 2*time.Second, 5*time.Millisecond)

	gateway.Broadcast(types.EventTimerUpdate, types.TimerUpdatePayload{TimeRemaining: 42})

	for _, client := range clients {
		require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := client.ReadMessage()
		require.NoError(t, err)

		var envelope types.Envelope
		require.NoError(t, json.Unmarshal(data, &envelope))
		assert.Equal(t, types.EventTimerUpdate, envelope.Event)
		assert.JSONEq(t, `{"timeRemaining":42}`, string(envelope.Data))
	}
}

func TestGateway_UnicastTargetsOneClient(t *testing.T) {
	sink := &recordingSink{}
	gateway, client := newTestServer(t, sink)

	// Discover the server-side id by sending one event through the sink.
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"event":"getResults"}`)))
	require.Eventually(t, func() bool {
		return sink.eventCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
	ev, _ := sink.lastEvent()

	gateway.Unicast(ev.connectionID, types.EventKicked, types.KickedPayload{Message: "bye"})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var envelope types.Envelope
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, types.EventKicked, envelope.Event)

	// Unknown targets are silently ignored.
	gateway.Unicast("ghost", types.EventKicked, types.KickedPayload{Message: "bye"})
}

func TestGateway_CloseAfterDelaysTeardown(t *testing.T) {
	sink := &recordingSink{}
	gateway, client := newTestServer(t, sink)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"event":"getResults"}`)))
	require.Eventually(t, func() bool {
		return sink.eventCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
	ev, _ := sink.lastEvent()

	conn, ok := gateway.Get(ev.connectionID)
	require.True(t, ok)

	gateway.CloseAfter(ev.connectionID, 50*time.Millisecond)

	select {
	case <-conn.Done():
		t.Fatal("connection closed before the grace delay")
	case <-time.After(10 * time.Millisecond):
	}

	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection never closed")
	}
}

func TestRegistration_SameInstanceGuard(t *testing.T) {
	gateway := NewGateway(nil)

	first := NewConnection("c1", nil)
	second := NewConnection("c1", nil)
	t.Cleanup(func() { _ = first.Close(); _ = second.Close() })

	require.NoError(t, gateway.Register(first))
	require.NoError(t, gateway.Register(second))
	require.Equal(t, 1, gateway.Count())

	// A late cleanup of the replaced connection must not evict its
	// replacement.
	gateway.Unregister(first)
	assert.Equal(t, 1, gateway.Count())

	gateway.Unregister(second)
	assert.Equal(t, 0, gateway.Count())
}

func TestRegister_NilConnection(t *testing.T) {
	gateway := NewGateway(nil)
	assert.ErrorIs(t, gateway.Register(nil), ErrNilConnection)
}
