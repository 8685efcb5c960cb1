// Package sms delivers SMS and WhatsApp messages through Twilio.
package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/codr1/Spinergy/internal/phone"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Sender delivers a text body to an E.164 number.
type Sender interface {
	SendSMS(ctx context.Context, to, body string) error
	SendWhatsApp(ctx context.Context, to, body string) error
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	SMSFrom      string
	WhatsAppFrom string
}

// TwilioClient sends messages through the Twilio Messages API.
type TwilioClient struct {
	api          messageCreator
	smsFrom      string
	whatsAppFrom string
}

func NewTwilioClient(cfg TwilioConfig) (*TwilioClient, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio credentials are required")
	}
	if cfg.SMSFrom == "" && cfg.WhatsAppFrom == "" {
		return nil, errors.New("twilio sender number is required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioClient{
		api:          client.Api,
		smsFrom:      cfg.SMSFrom,
		whatsAppFrom: cfg.WhatsAppFrom,
	}, nil
}

func (c *TwilioClient) SendSMS(ctx context.Context, to, body string) error {
	if c.smsFrom == "" {
		return errors.New("sms sender number not configured")
	}
	return c.send(ctx, ChannelSMS, to, c.smsFrom, body)
}

func (c *TwilioClient) SendWhatsApp(ctx context.Context, to, body string) error {
	if c.whatsAppFrom == "" {
		return errors.New("whatsapp sender number not configured")
	}
	return c.send(ctx, ChannelWhatsApp, phone.WhatsApp(to), phone.WhatsApp(c.whatsAppFrom), body)
}

type sendResult struct {
	sid string
	err error
}

// send runs the blocking Twilio call in a goroutine so ctx bounds how long the caller waits.
func (c *TwilioClient) send(ctx context.Context, channel Channel, to, from, body string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("recipient is required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("message body is required")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	done := make(chan sendResult, 1)
	go func() {
		resp, err := c.api.CreateMessage(params)
		res := sendResult{err: err}
		if err == nil && resp != nil && resp.Sid != nil {
			res.sid = *resp.Sid
		}
		done <- res
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("send %s: %w", channel, ctx.Err())
	case res := <-done:
		if res.err != nil {
			log.Ctx(ctx).Error().
				Err(res.err).
				Str("channel", string(channel)).
				Str("recipient", to).
				Msg("Failed to send Twilio message")
			return fmt.Errorf("send %s: %w", channel, res.err)
		}
		log.Ctx(ctx).Debug().
			Str("channel", string(channel)).
			Str("message_sid", res.sid).
			Msg("Twilio message accepted")
		return nil
	}
}
