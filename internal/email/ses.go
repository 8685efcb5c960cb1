package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"
)

const charset = "UTF-8"

type SESConfig struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	From             string
	ReplyTo          string
	ConfigurationSet string
}

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES sends plain-text mail through Amazon SES v2 with static credentials.
type SES struct {
	api       sesAPI
	from      string
	replyTo   string
	configSet string
}

func NewSES(ctx context.Context, cfg SESConfig) (*SES, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Region == "" {
		return nil, errors.New("ses credentials and region are required")
	}
	if cfg.From == "" {
		return nil, errors.New("ses sender is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSES(sesv2.NewFromConfig(awsCfg), cfg), nil
}

func newSES(api sesAPI, cfg SESConfig) *SES {
	return &SES{api: api, from: cfg.From, replyTo: cfg.ReplyTo, configSet: cfg.ConfigurationSet}
}

func (s *SES) Send(ctx context.Context, env Envelope) error {
	in, err := s.input(env)
	if err != nil {
		return err
	}
	out, err := s.api.SendEmail(ctx, in)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("recipient", env.To).Str("subject", env.Subject).Msg("SES send failed")
		return fmt.Errorf("send ses email: %w", err)
	}
	if out != nil {
		log.Ctx(ctx).Debug().Str("message_id", aws.ToString(out.MessageId)).Msg("SES email accepted")
	}
	return nil
}

func (s *SES) input(env Envelope) (*sesv2.SendEmailInput, error) {
	from := strings.TrimSpace(env.From)
	if from == "" {
		from = s.from
	}
	if env.To == "" {
		return nil, ErrNoRecipient
	}

	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{env.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(env.Subject), Charset: aws.String(charset)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(env.Body), Charset: aws.String(charset)},
				},
			},
		},
	}
	replyTo := env.ReplyTo
	if replyTo == "" {
		replyTo = s.replyTo
	}
	if replyTo != "" {
		in.ReplyToAddresses = []string{replyTo}
	}
	if s.configSet != "" {
		in.ConfigurationSetName = aws.String(s.configSet)
	}
	return in, nil
}
