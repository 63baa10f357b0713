// Package chat is the messaging side-channel: a pure fan-out with an
// in-memory transcript, no state machine.
package chat

import (
	"sync"

	"livepoll/pkg/types"
)

// Log is the in-memory chat transcript for the current process lifetime.
type Log struct {
	mu       sync.RWMutex
	messages []types.ChatMessage
}

// NewLog creates an empty chat log.
func NewLog() *Log {
	return &Log{}
}

// Append records a message.
func (l *Log) Append(message types.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, message)
}

// All returns the transcript, oldest first.
func (l *Log) All() []types.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of recorded messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
