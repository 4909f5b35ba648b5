// Package sendgrid delivers messages through the SendGrid v3 Mail Send API.
package sendgrid

import (
	"context"
	"encoding/base64"

	"github.com/dmitrymomot/mailkit/pkg/mailer"
	"github.com/dmitrymomot/mailkit/pkg/mailer/apiclient"
)

// Endpoint is the SendGrid transactional mail endpoint.
const Endpoint = "https://api.sendgrid.com/v3/mail/send"

// Config holds SendGrid transport configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	APIKey string `env:"SENDGRID_API_KEY"`
}

// Transport implements mailer.Transport for SendGrid.
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

// New creates a SendGrid transport.
func New(cfg Config, opts ...Option) *Transport {
	t := &Transport{
		client:   apiclient.New("sendgrid"),
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

// Send implements mailer.Transport.
func (t *Transport) Send(ctx context.Context, msg *mailer.Message) (int, error) {
	t.hooks.Before(ctx, msg)

	recipients := mailer.RecipientCount(msg)
	headers := map[string]string{
		"Authorization": "Bearer " + t.key.Get(),
		"Content-Type":  "application/json",
	}
	if err := t.client.PostJSON(ctx, t.endpoint, headers, BuildPayload(msg)); err != nil {
		return 0, err
	}

	t.hooks.After(ctx, msg, recipients)
	return recipients, nil
}

// BuildPayload maps a message to the Mail Send request body.
func BuildPayload(msg *mailer.Message) Payload {
	p := Payload{
		Personalizations: []Personalization{{
			To:  addresses(msg.To),
			Cc:  addresses(msg.Cc),
			Bcc: addresses(msg.Bcc),
		}},
		Subject:     msg.Subject,
		Content:     contents(msg),
		Attachments: attachments(msg.Attachments),
	}
	if p.Personalizations[0].To == nil {
		p.Personalizations[0].To = []Address{}
	}
	if from, ok := msg.From.First(); ok {
		p.From = Sender{Email: from.Email, Name: from.Name}
	}
	if reply, ok := msg.ReplyTo.First(); ok {
		a := address(reply)
		p.ReplyTo = &a
	}
	return p
}

// contents emits the first text/plain child, then the HTML body unless a
// plain part was found and the message is not multipart.
func contents(msg *mailer.Message) []Content {
	var out []Content
	if text, ok := msg.PlainText(); ok {
		out = append(out, Content{Type: mailer.ContentTypePlain, Value: text})
	}
	if len(out) == 0 || msg.IsMultipart() {
		out = append(out, Content{Type: mailer.ContentTypeHTML, Value: msg.Body})
	}
	return out
}

func address(a mailer.Address) Address {
	return Address{Email: a.Email, Name: a.Name}
}

func addresses(list mailer.AddressList) []Address {
	if list.Len() == 0 {
		return nil
	}
	out := make([]Address, list.Len())
	for i, a := range list {
		out[i] = address(a)
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
			Content:  base64.StdEncoding.EncodeToString(a.Content),
			Type:     a.ContentType,
			Filename: a.Filename,
		}
		if a.Inline() {
			out[i].Disposition = "inline"
			out[i].ContentID = a.ContentID
		}
	}
	return out
}
