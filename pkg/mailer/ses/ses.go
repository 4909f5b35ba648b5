// Package ses delivers messages through Amazon SES v2.
package ses

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/mailkit/pkg/mailer"
)

const charset = "UTF-8"

// Config holds SES transport configuration.
// Empty keys fall back to the default AWS credential chain.
type Config struct {
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"SES_ENDPOINT"`
}

// API is the subset of the SES v2 client used for delivery.
type API interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Transport implements mailer.Transport for Amazon SES.
type Transport struct {
	api   API
	hooks mailer.Hooks
}

// Option configures a Transport.
type Option func(*Transport)

// WithHooks sets the pre-send and post-send callbacks.
func WithHooks(h mailer.Hooks) Option {
	return func(t *Transport) { t.hooks = h }
}

// New loads AWS configuration and creates an SES transport.
func New(ctx context.Context, cfg Config, opts ...Option) (*Transport, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}

	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithAPI(client, opts...), nil
}

// NewWithAPI creates a transport around an existing SES client.
func NewWithAPI(api API, opts ...Option) *Transport {
	t := &Transport{api: api}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send implements mailer.Transport.
func (t *Transport) Send(ctx context.Context, msg *mailer.Message) (int, error) {
	t.hooks.Before(ctx, msg)

	recipients := mailer.RecipientCount(msg)
	input, err := BuildInput(msg)
	if err != nil {
		return 0, err
	}

	if _, err := t.api.SendEmail(ctx, input); err != nil {
		return 0, deliveryError(err)
	}

	t.hooks.After(ctx, msg, recipients)
	return recipients, nil
}

// BuildInput maps a message to a SendEmail request with simple content.
func BuildInput(msg *mailer.Message) (*sesv2.SendEmailInput, error) {
	from, ok := msg.From.First()
	if !ok {
		return nil, mailer.ErrMissingFromAddress
	}
	if len(msg.Attachments) > 0 {
		return nil, mailer.ErrAttachmentsUnsupported
	}

	body := &types.Body{
		Html: &types.Content{Data: aws.String(msg.Body), Charset: aws.String(charset)},
	}
	if text, ok := msg.PlainText(); ok {
		body.Text = &types.Content{Data: aws.String(text), Charset: aws.String(charset)}
	}

	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from.String()),
		Destination: &types.Destination{
			ToAddresses:  msg.To.Strings(),
			CcAddresses:  msg.Cc.Strings(),
			BccAddresses: msg.Bcc.Strings(),
		},
		ReplyToAddresses: msg.ReplyTo.Strings(),
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charset)},
				Body:    body,
			},
		},
	}, nil
}

func deliveryError(err error) *mailer.DeliveryError {
	derr := &mailer.DeliveryError{Provider: "ses", Err: err}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		derr.Code = apiErr.ErrorCode()
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		derr.StatusCode = respErr.HTTPStatusCode()
	}
	return derr
}
