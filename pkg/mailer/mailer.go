package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	texttemplate "text/template"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/mailkit/pkg/logger"
)

// MessageBuilder fills in a freshly created message before it is rendered.
type MessageBuilder func(msg *Message)

// Mailer renders views into messages and delivers them through a Transport.
type Mailer struct {
	transport Transport
	renderer  *Renderer
	log       *slog.Logger
	builders  map[string]MessageBuilder
	from      *Address
	config    Config
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithAlwaysFrom sets the sender applied to every new message.
// Builders may still override it.
func WithAlwaysFrom(email, name string) Option {
	return func(m *Mailer) {
		if email != "" {
			m.from = &Address{Email: email, Name: name}
		}
	}
}

// WithLogger sets the logger used for send failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mailer) {
		if l != nil {
			m.log = l
		}
	}
}

// WithBuilder registers a named message builder usable via SendParams.BuilderName.
func WithBuilder(name string, fn MessageBuilder) Option {
	return func(m *Mailer) {
		if fn != nil {
			m.builders[name] = fn
		}
	}
}

// New creates a new Mailer with the given transport and renderer.
func New(transport Transport, renderer *Renderer, cfg Config, opts ...Option) *Mailer {
	m := &Mailer{
		transport: transport,
		renderer:  renderer,
		config:    cfg,
		log:       logger.NewNope(),
		builders:  make(map[string]MessageBuilder),
	}
	WithAlwaysFrom(cfg.FromEmail, cfg.FromName)(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SendParams contains parameters for sending a templated email.
type SendParams struct {
	Data      any             // View data; map[string]any data also receives the message as "Message"
	Component templ.Component // Rendered instead of Template when set
	Build     MessageBuilder  // Fills recipients, subject, attachments
	Template  string          // Template filename (e.g., "welcome.md")

	// Optional overrides
	BuilderName string // Registered builder, used when Build is nil
	Subject     string // Override any other subject source
	Layout      string // Override default layout
}

// Send builds, renders and delivers a message. It returns the number of
// recipients the message was addressed to.
// Subject resolution: params.Subject > builder > template metadata > config fallback.
func (m *Mailer) Send(ctx context.Context, params SendParams) (int, error) {
	msg := m.NewMessage()

	build, err := m.builder(params)
	if err != nil {
		return 0, err
	}
	if build != nil {
		build(msg)
	}
	if msg.To.Len() == 0 {
		return 0, ErrNoRecipient
	}

	data := viewData(params.Data, msg)
	result, err := m.render(ctx, params, data)
	if err != nil {
		return 0, errors.Join(ErrRenderFailed, err)
	}

	subject := params.Subject
	if subject == "" {
		subject = msg.Subject
	}
	if subject == "" {
		if fromMeta, ok := result.Subject(); ok {
			subject = fromMeta
		} else {
			subject = m.config.FallbackSubject
		}
	}

	// Subjects support {{.Variable}} syntax
	processedSubject, err := m.processSubject(subject, data)
	if err != nil {
		return 0, errors.Join(ErrRenderFailed, err)
	}
	msg.Subject = processedSubject

	msg.SetBody(result.HTML, ContentTypeHTML)
	if result.Text != "" {
		msg.AddPart(result.Text, ContentTypePlain)
		msg.ContentType = ContentTypeAlternative
	}

	return m.deliver(ctx, msg)
}

// SendRaw sends a pre-built message without template rendering.
func (m *Mailer) SendRaw(ctx context.Context, msg *Message) (int, error) {
	if msg.To.Len() == 0 {
		return 0, ErrNoRecipient
	}
	if msg.Subject == "" {
		return 0, ErrNoSubject
	}
	if msg.Body == "" {
		return 0, ErrNoContent
	}
	if msg.From.Len() == 0 && m.from != nil {
		msg.SetFrom(m.from.Email, m.from.Name)
	}

	return m.deliver(ctx, msg)
}

// NewMessage returns an empty message carrying the global sender, if any.
func (m *Mailer) NewMessage() *Message {
	msg := NewMessage()
	if m.from != nil {
		msg.SetFrom(m.from.Email, m.from.Name)
	}
	return msg
}

// Transport returns the transport messages are delivered through.
func (m *Mailer) Transport() Transport {
	return m.transport
}

func (m *Mailer) deliver(ctx context.Context, msg *Message) (int, error) {
	ctx = logger.WithMessageID(ctx, msg.ID)

	n, err := m.transport.Send(ctx, msg)
	if err != nil {
		m.log.ErrorContext(ctx, "email delivery failed",
			slog.String("subject", msg.Subject),
			slog.Int("recipients", RecipientCount(msg)),
			slog.String("error", err.Error()),
		)
		return 0, errors.Join(ErrSendFailed, err)
	}
	return n, nil
}

func (m *Mailer) builder(params SendParams) (MessageBuilder, error) {
	if params.Build != nil {
		return params.Build, nil
	}
	if params.BuilderName == "" {
		return nil, nil
	}
	fn, ok := m.builders[params.BuilderName]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrInvalidBuilder, params.BuilderName)
	}
	return fn, nil
}

// viewData adds the message as "Message" to map[string]any data.
// Other data types are returned unchanged.
func viewData(data any, msg *Message) any {
	mapped, ok := data.(map[string]any)
	if !ok {
		return data
	}
	withMsg := maps.Clone(mapped)
	if withMsg == nil {
		withMsg = make(map[string]any, 1)
	}
	withMsg["Message"] = msg
	return withMsg
}

func (m *Mailer) render(ctx context.Context, params SendParams, data any) (*RenderResult, error) {
	layout := params.Layout
	if layout == "" {
		layout = m.config.DefaultLayout
	}

	if params.Component != nil {
		return m.renderer.RenderComponent(ctx, layout, params.Component, nil)
	}

	return m.renderer.Render(layout, params.Template, data)
}

func (m *Mailer) processSubject(subject string, data any) (string, error) {
	tmpl, err := texttemplate.New("subject").Parse(subject)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
