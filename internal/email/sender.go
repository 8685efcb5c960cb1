package email

import "context"

// Envelope addresses one Message. An empty From falls back to the sender's default.
type Envelope struct {
	From    string
	To      string
	ReplyTo string
	Message
}

type Sender interface {
	Send(ctx context.Context, env Envelope) error
}
