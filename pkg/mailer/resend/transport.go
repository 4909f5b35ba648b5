// Package resend delivers messages through the Resend API.
package resend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/mailkit/pkg/mailer"
)

// emailSender is the subset of the Resend client used for delivery.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Transport implements mailer.Transport using the Resend API.
type Transport struct {
	conn       atomic.Pointer[conn]
	httpClient *http.Client
	hooks      mailer.Hooks
	config     Config
}

// conn pairs an API key with the SDK client built for it, so both are
// swapped in one store.
type conn struct {
	emails emailSender
	key    string
}

// Option configures a Transport.
type Option func(*Transport)

// WithHooks sets the pre-send and post-send callbacks.
func WithHooks(h mailer.Hooks) Option {
	return func(t *Transport) { t.hooks = h }
}

// WithHTTPClient sets the HTTP client used by the Resend SDK.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Transport) { t.httpClient = hc }
}

// New creates a Resend transport.
func New(cfg Config, opts ...Option) *Transport {
	t := &Transport{config: cfg}
	for _, opt := range opts {
		opt(t)
	}
	t.conn.Store(t.connect(cfg.APIKey))
	return t
}

// Key returns the API key in use.
func (t *Transport) Key() string {
	return t.conn.Load().key
}

// SetKey rotates the API key; the SDK client is rebuilt for it.
func (t *Transport) SetKey(key string) string {
	t.conn.Store(t.connect(key))
	return key
}

func (t *Transport) connect(key string) *conn {
	var client *resend.Client
	if t.httpClient != nil {
		client = resend.NewCustomClient(t.httpClient, key)
	} else {
		client = resend.NewClient(key)
	}
	return &conn{emails: client.Emails, key: key}
}

// Send implements mailer.Transport.
func (t *Transport) Send(ctx context.Context, msg *mailer.Message) (int, error) {
	t.hooks.Before(ctx, msg)

	recipients := mailer.RecipientCount(msg)
	req, err := t.BuildRequest(msg)
	if err != nil {
		return 0, err
	}

	if _, err := t.conn.Load().emails.SendWithContext(ctx, req); err != nil {
		return 0, &mailer.DeliveryError{Provider: "resend", Err: err}
	}

	t.hooks.After(ctx, msg, recipients)
	return recipients, nil
}

// BuildRequest maps a message to a Resend send request. The configured
// sender is used when the message has no from address.
func (t *Transport) BuildRequest(msg *mailer.Message) (*resend.SendEmailRequest, error) {
	from := ""
	if a, ok := msg.From.First(); ok {
		from = a.String()
	} else if t.config.SenderEmail != "" {
		from = mailer.Recipient(t.config.SenderName, t.config.SenderEmail)
	}
	if from == "" {
		return nil, mailer.ErrMissingFromAddress
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To.Emails(),
		Subject: msg.Subject,
		Html:    msg.Body,
		Cc:      msg.Cc.Emails(),
		Bcc:     msg.Bcc.Emails(),
		Headers: msg.Headers,
	}
	if text, ok := msg.PlainText(); ok {
		req.Text = text
	}
	if reply, ok := msg.ReplyTo.First(); ok {
		req.ReplyTo = reply.String()
	}
	if len(msg.Attachments) > 0 {
		req.Attachments = convertAttachments(msg.Attachments)
	}
	if len(msg.Tags) > 0 {
		req.Tags = convertTags(msg.Tags)
	}
	return req, nil
}

func convertAttachments(attachments []mailer.Attachment) []*resend.Attachment {
	result := make([]*resend.Attachment, len(attachments))
	for i, a := range attachments {
		result[i] = &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
			ContentId:   a.ContentID,
		}
	}
	return result
}

func convertTags(tags mailer.Tags) []resend.Tag {
	result := make([]resend.Tag, 0, len(tags))
	for name, value := range tags {
		result = append(result, resend.Tag{Name: name, Value: tagValue(value)})
	}
	return result
}

// tagValue converts any value to a string for Resend's tag API.
// Presence-only tags (struct{}{}) become "true".
func tagValue(v any) string {
	switch val := v.(type) {
	case nil, struct{}:
		return "true"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
