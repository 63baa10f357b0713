package interfaces

import "time"

// Gateway fans state-change notifications out to connections. Deliveries are
// fire-and-forget from the coordinator's perspective: the gateway owns all
// transport-level error handling and never blocks the caller on network I/O.
type Gateway interface {
	// Broadcast delivers an event to every connected client.
	Broadcast(event string, payload interface{})

	// Unicast delivers an event to a single connection. Unknown connection
	// ids are ignored (the client may have disconnected concurrently).
	Unicast(connectionID string, event string, payload interface{})

	// CloseAfter closes a connection after a grace delay, giving any queued
	// writes (e.g. a kicked notification) time to flush. The coordinator's
	// state change is effective immediately; the delay is presentation only.
	CloseAfter(connectionID string, delay time.Duration)
}
