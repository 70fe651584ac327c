package notification

import (
	"context"
	"sync"
)

// MockNotifier records messages instead of sending them
type MockNotifier struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// FailWith makes subsequent Send calls return err. Pass nil to recover.
func (m *MockNotifier) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockNotifier) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages
func (m *MockNotifier) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent delivered message
func (m *MockNotifier) Last() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return Message{}, false
	}
	return m.sent[len(m.sent)-1], true
}
