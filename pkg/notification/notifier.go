package notification

import (
	"context"
	"errors"
)

// ErrMissingRecipient is returned when a Message has no To address
var ErrMissingRecipient = errors.New("notification requires 'To' address")

// Message is a fully rendered outbound message
type Message struct {
	To      string // Recipient address
	Subject string
	HTML    string
	Text    string // Optional plain text alternative
}

// Notifier sends rendered messages
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
