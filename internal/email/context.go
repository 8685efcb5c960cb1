package email

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNoSender    = errors.New("email sender is not configured")
	ErrNoRecipient = errors.New("email recipient is required")
	ErrNoContent   = errors.New("email subject and body are required")
)

// Deliver sends env on a context that ignores ctx's cancellation but is bounded by
// timeout, so a finished request does not abort its notification.
func Deliver(ctx context.Context, sender Sender, env Envelope, timeout time.Duration) error {
	if sender == nil {
		return ErrNoSender
	}
	env.To = strings.TrimSpace(env.To)
	if env.To == "" {
		return ErrNoRecipient
	}
	if env.Subject == "" || env.Body == "" {
		return ErrNoContent
	}

	if ctx == nil {
		ctx = context.Background()
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return sender.Send(sendCtx, env)
}
