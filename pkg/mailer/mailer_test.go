package mailer

import (
	"context"
	"errors"
	"io"
	"testing"
	"testing/fstest"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTransport is a mock implementation of Transport.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, msg *Message) (int, error) {
	args := m.Called(ctx, msg)
	return args.Int(0), args.Error(1)
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": &fstest.MapFile{
			Data: []byte(`<html><body>{{.Content}}</body></html>`),
		},
		"layouts/custom.html": &fstest.MapFile{
			Data: []byte(`<div class="custom">{{.Content}}</div>`),
		},
		"welcome.md": &fstest.MapFile{
			Data: []byte(`---
Subject: Welcome {{.Name}}
---
Hello **{{.Name}}**!
`),
		},
		"plain.md": &fstest.MapFile{
			Data: []byte(`Body without metadata`),
		},
		"greeting.html": &fstest.MapFile{
			Data: []byte(`<p>Hi {{.Message.Subject}} {{.Name}}</p>`),
		},
	}
}

func newTestMailer(tr Transport, cfg Config, opts ...Option) *Mailer {
	if cfg.DefaultLayout == "" {
		cfg.DefaultLayout = "base.html"
	}
	return New(tr, NewRendererWithConfig(testFS(), RendererConfig{LayoutDir: "layouts"}), cfg, opts...)
}

func TestMailer_Send_Success(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{FallbackSubject: "Notification"})

	tr.On("Send", mock.Anything, mock.MatchedBy(func(msg *Message) bool {
		text, ok := msg.PlainText()
		return msg.To[0].Email == "alice@example.com" &&
			msg.Subject == "Welcome Alice" &&
			msg.ContentType == ContentTypeAlternative &&
			ok && text == "Hello **Alice**!\n" &&
			msg.ID != ""
	})).Return(1, nil)

	n, err := m.Send(context.Background(), SendParams{
		Template: "welcome.md",
		Data:     map[string]string{"Name": "Alice"},
		Build: func(msg *Message) {
			msg.AddTo("alice@example.com", "Alice")
		},
	})

	require.NoError(t, err)
	require.Equal(t, 1, n)
	tr.AssertExpectations(t)
}

func TestMailer_Send_NoRecipient(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{})

	_, err := m.Send(context.Background(), SendParams{Template: "welcome.md"})

	require.ErrorIs(t, err, ErrNoRecipient)
	tr.AssertNotCalled(t, "Send")
}

func TestMailer_Send_RenderFailure(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{})

	_, err := m.Send(context.Background(), SendParams{
		Template: "nonexistent.md",
		Build:    func(msg *Message) { msg.AddTo("user@example.com", "") },
	})

	require.ErrorIs(t, err, ErrRenderFailed)
	require.ErrorIs(t, err, ErrTemplateNotFound)
	tr.AssertNotCalled(t, "Send")
}

func TestMailer_Send_TransportFailure(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{FallbackSubject: "Test"})

	deliveryErr := &DeliveryError{Provider: "sendgrid", StatusCode: 500}
	tr.On("Send", mock.Anything, mock.Anything).Return(0, deliveryErr)

	n, err := m.Send(context.Background(), SendParams{
		Template: "plain.md",
		Build:    func(msg *Message) { msg.AddTo("user@example.com", "") },
	})

	require.Zero(t, n)
	require.ErrorIs(t, err, ErrSendFailed)
	require.ErrorIs(t, err, ErrDelivery)
	var derr *DeliveryError
	require.True(t, errors.As(err, &derr))
	require.Same(t, deliveryErr, derr)
	tr.AssertExpectations(t)
}

func TestMailer_Send_SubjectResolution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		template        string
		paramsSubject   string
		builderSubject  string
		fallbackSubject string
		expectedSubject string
	}{
		{
			name:            "params subject wins",
			template:        "welcome.md",
			paramsSubject:   "Override",
			builderSubject:  "From builder",
			expectedSubject: "Override",
		},
		{
			name:            "builder subject beats metadata",
			template:        "welcome.md",
			builderSubject:  "From builder",
			expectedSubject: "From builder",
		},
		{
			name:            "template metadata",
			template:        "welcome.md",
			fallbackSubject: "Fallback",
			expectedSubject: "Welcome Bob",
		},
		{
			name:            "fallback when nothing else",
			template:        "plain.md",
			fallbackSubject: "Fallback Subject",
			expectedSubject: "Fallback Subject",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := &MockTransport{}
			m := newTestMailer(tr, Config{FallbackSubject: tt.fallbackSubject})

			tr.On("Send", mock.Anything, mock.MatchedBy(func(msg *Message) bool {
				return msg.Subject == tt.expectedSubject
			})).Return(1, nil)

			_, err := m.Send(context.Background(), SendParams{
				Template: tt.template,
				Subject:  tt.paramsSubject,
				Data:     map[string]string{"Name": "Bob"},
				Build: func(msg *Message) {
					msg.AddTo("user@example.com", "").SetSubject(tt.builderSubject)
				},
			})

			require.NoError(t, err)
			tr.AssertExpectations(t)
		})
	}
}

func TestMailer_Send_SubjectTemplatingError(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{FallbackSubject: "Invalid {{.Unclosed"})

	_, err := m.Send(context.Background(), SendParams{
		Template: "plain.md",
		Build:    func(msg *Message) { msg.AddTo("user@example.com", "") },
	})

	require.ErrorIs(t, err, ErrRenderFailed)
	tr.AssertNotCalled(t, "Send")
}

func TestMailer_Send_AlwaysFrom(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{FallbackSubject: "Hi"}, WithAlwaysFrom("noreply@example.com", "App"))

	tr.On("Send", mock.Anything, mock.MatchedBy(func(msg *Message) bool {
		from, ok := msg.From.First()
		return ok && from == Address{Email: "noreply@example.com", Name: "App"}
	})).Return(1, nil)

	_, err := m.Send(context.Background(), SendParams{
		Template: "plain.md",
		Build:    func(msg *Message) { msg.AddTo("user@example.com", "") },
	})

	require.NoError(t, err)
	tr.AssertExpectations(t)
}

func TestMailer_Send_BuilderOverridesAlwaysFrom(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{FallbackSubject: "Hi", FromEmail: "noreply@example.com"})

	tr.On("Send", mock.Anything, mock.MatchedBy(func(msg *Message) bool {
		return msg.From.Len() == 1 && msg.From[0].Email == "billing@example.com"
	})).Return(1, nil)

	_, err := m.Send(context.Background(), SendParams{
		Template: "plain.md",
		Build: func(msg *Message) {
			msg.SetFrom("billing@example.com", "Billing").AddTo("user@example.com", "")
		},
	})

	require.NoError(t, err)
	tr.AssertExpectations(t)
}

func TestMailer_Send_NamedBuilder(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{FallbackSubject: "Hi"}, WithBuilder("ops", func(msg *Message) {
		msg.AddTo("ops@example.com", "Ops").AddCc("lead@example.com", "")
	}))

	tr.On("Send", mock.Anything, mock.MatchedBy(func(msg *Message) bool {
		return RecipientCount(msg) == 2
	})).Return(2, nil)

	n, err := m.Send(context.Background(), SendParams{Template: "plain.md", BuilderName: "ops"})

	require.NoError(t, err)
	require.Equal(t, 2, n)
	tr.AssertExpectations(t)
}

func TestMailer_Send_UnknownBuilder(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{})

	_, err := m.Send(context.Background(), SendParams{Template: "plain.md", BuilderName: "missing"})

	require.ErrorIs(t, err, ErrInvalidBuilder)
	tr.AssertNotCalled(t, "Send")
}

func TestMailer_Send_MessageAvailableInView(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{})

	tr.On("Send", mock.Anything, mock.MatchedBy(func(msg *Message) bool {
		return msg.Body == "<html><body><p>Hi Invoice Ann</p></body></html>"
	})).Return(1, nil)

	_, err := m.Send(context.Background(), SendParams{
		Template: "greeting.html",
		Data:     map[string]any{"Name": "Ann"},
		Build: func(msg *Message) {
			msg.AddTo("ann@example.com", "").SetSubject("Invoice")
		},
	})

	require.NoError(t, err)
	tr.AssertExpectations(t)
}

func TestMailer_Send_MessageAvailableInSubject(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{})

	tr.On("Send", mock.Anything, mock.MatchedBy(func(msg *Message) bool {
		return msg.Subject == "Hello Ann (ann@example.com)"
	})).Return(1, nil)

	_, err := m.Send(context.Background(), SendParams{
		Template: "plain.md",
		Subject:  "Hello {{.Name}} ({{(index .Message.To 0).Email}})",
		Data:     map[string]any{"Name": "Ann"},
		Build:    func(msg *Message) { msg.AddTo("ann@example.com", "") },
	})

	require.NoError(t, err)
	tr.AssertExpectations(t)
}

func TestMailer_Send_CustomLayout(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{FallbackSubject: "Test"})

	tr.On("Send", mock.Anything, mock.MatchedBy(func(msg *Message) bool {
		return msg.Body == "<div class=\"custom\"><p>Body without metadata</p>\n</div>"
	})).Return(1, nil)

	_, err := m.Send(context.Background(), SendParams{
		Template: "plain.md",
		Layout:   "custom.html",
		Build:    func(msg *Message) { msg.AddTo("user@example.com", "") },
	})

	require.NoError(t, err)
	tr.AssertExpectations(t)
}

func TestMailer_Send_Component(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{FallbackSubject: "Receipt"})

	tr.On("Send", mock.Anything, mock.MatchedBy(func(msg *Message) bool {
		text, _ := msg.PlainText()
		return msg.Body == "<html><body><p>Paid</p></body></html>" && text == "Paid"
	})).Return(1, nil)

	_, err := m.Send(context.Background(), SendParams{
		Component: templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, "<p>Paid</p>")
			return err
		}),
		Build: func(msg *Message) { msg.AddTo("user@example.com", "") },
	})

	require.NoError(t, err)
	tr.AssertExpectations(t)
}

func TestMailer_SendRaw(t *testing.T) {
	t.Parallel()

	tr := &MockTransport{}
	m := newTestMailer(tr, Config{FromEmail: "noreply@example.com"})

	msg := NewMessage().AddTo("user@example.com", "").SetSubject("Hi").SetBody("<p>Hi</p>", "")
	tr.On("Send", mock.Anything, msg).Return(1, nil)

	n, err := m.SendRaw(context.Background(), msg)

	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "noreply@example.com", msg.From[0].Email)
	tr.AssertExpectations(t)
}

func TestMailer_SendRaw_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  *Message
		want error
	}{
		{"no recipient", NewMessage().SetSubject("s").SetBody("b", ""), ErrNoRecipient},
		{"no subject", NewMessage().AddTo("a@x.com", "").SetBody("b", ""), ErrNoSubject},
		{"no content", NewMessage().AddTo("a@x.com", "").SetSubject("s"), ErrNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := &MockTransport{}
			_, err := newTestMailer(tr, Config{}).SendRaw(context.Background(), tt.msg)

			require.ErrorIs(t, err, tt.want)
			tr.AssertNotCalled(t, "Send")
		})
	}
}
