// Package sparkpost delivers messages through the SparkPost Transmissions API.
//
// SparkPost delivers to the flat recipients list and derives the visible
// To and Cc headers from the message itself, so the message used as the
// content source never carries Bcc addresses.
package sparkpost

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/dmitrymomot/mailkit/pkg/mailer"
	"github.com/dmitrymomot/mailkit/pkg/mailer/apiclient"
)

const (
	// Endpoint is the SparkPost transmissions endpoint.
	Endpoint = "https://api.sparkpost.com/api/v1/transmissions"

	// ConnectTimeout caps connection establishment.
	ConnectTimeout = 60 * time.Second
)

// Config holds SparkPost transport configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	APIKey string `env:"SPARKPOST_API_KEY"`
}

// Transport implements mailer.Transport for SparkPost.
type Transport struct {
	client   *apiclient.Client
	key      *mailer.APIKey
	hooks    mailer.Hooks
	endpoint string
}

// Option configures a Transport.
type Option func(*Transport)

// WithHooks sets the pre-send and post-send callbacks.
func WithHooks(h mailer.Hooks) Option {
	return func(t *Transport) { t.hooks = h }
}

// WithEndpoint overrides the API endpoint.
func WithEndpoint(url string) Option {
	return func(t *Transport) {
		if url != "" {
			t.endpoint = url
		}
	}
}

// WithClient replaces the HTTP layer.
func WithClient(c *apiclient.Client) Option {
	return func(t *Transport) {
		if c != nil {
			t.client = c
		}
	}
}

// New creates a SparkPost transport.
func New(cfg Config, opts ...Option) *Transport {
	t := &Transport{
		client:   apiclient.New("sparkpost", apiclient.WithConnectTimeout(ConnectTimeout)),
		key:      mailer.NewAPIKey(cfg.APIKey),
		endpoint: Endpoint,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Key returns the API key in use.
func (t *Transport) Key() string {
	return t.key.Get()
}

// SetKey rotates the API key for subsequent sends.
func (t *Transport) SetKey(key string) string {
	return t.key.Set(key)
}

// Send implements mailer.Transport. The caller's message is not modified;
// hooks observe the Bcc-free copy that was delivered.
func (t *Transport) Send(ctx context.Context, msg *mailer.Message) (int, error) {
	t.hooks.Before(ctx, msg)

	recipients := mailer.RecipientCount(msg)
	payload, visible, err := BuildPayload(msg)
	if err != nil {
		return 0, err
	}

	headers := map[string]string{
		"Authorization": t.key.Get(),
		"Content-Type":  "application/json",
	}
	if err := t.client.PostJSON(ctx, t.endpoint, headers, payload); err != nil {
		return 0, err
	}

	t.hooks.After(ctx, visible, recipients)
	return recipients, nil
}

// BuildPayload maps a message to a transmission. It also returns the copy
// of the message, without Bcc, that the content was built from.
func BuildPayload(msg *mailer.Message) (Payload, *mailer.Message, error) {
	from, ok := msg.From.First()
	if !ok {
		return Payload{}, nil, mailer.ErrMissingFromAddress
	}

	recipients := flatten(msg)
	visible := msg.Clone().ClearBcc()

	p := Payload{
		Recipients: recipients,
		Content: Content{
			HTML:        visible.Body,
			From:        Sender{Name: from.Name, Email: from.Email},
			Subject:     visible.Subject,
			Attachments: attachments(visible.Attachments),
		},
	}
	if reply, ok := visible.ReplyTo.First(); ok {
		p.Content.ReplyTo = reply.Name + " <" + reply.Email + ">"
	}
	return p, visible, nil
}

// flatten lists to, cc and bcc addresses in that order, names dropped.
func flatten(msg *mailer.Message) []Recipient {
	out := make([]Recipient, 0, mailer.RecipientCount(msg))
	for _, list := range []mailer.AddressList{msg.To, msg.Cc, msg.Bcc} {
		for _, a := range list {
			out = append(out, Recipient{Address: RecipientAddress{Email: a.Email, HeaderTo: a.Email}})
		}
	}
	return out
}

func attachments(in []mailer.Attachment) []Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]Attachment, len(in))
	for i, a := range in {
		out[i] = Attachment{
			Name: a.Filename,
			Type: a.ContentType,
			Data: base64.StdEncoding.EncodeToString(a.Content),
		}
	}
	return out
}
