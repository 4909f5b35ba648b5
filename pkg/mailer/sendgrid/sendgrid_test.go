package sendgrid

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailkit/pkg/mailer"
)

func encode(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestBuildPayload_SimpleHTMLMessage(t *testing.T) {
	t.Parallel()

	msg := mailer.NewMessage().
		SetFrom("from@x.com", "Sender").
		AddTo("to@x.com", "Receiver").
		SetSubject("Hi").
		SetBody("<b>hello</b>", "text/html")

	require.JSONEq(t, `{
		"personalizations": [{"to": [{"email": "to@x.com", "name": "Receiver"}]}],
		"from": {"email": "from@x.com", "name": "Sender"},
		"subject": "Hi",
		"content": [{"type": "text/html", "value": "<b>hello</b>"}]
	}`, encode(t, BuildPayload(msg)))
}

func TestBuildPayload_OmitsEmptyCcAndBcc(t *testing.T) {
	t.Parallel()

	msg := mailer.NewMessage().AddTo("a@x.com", "A")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(encode(t, BuildPayload(msg))), &decoded))

	personalization := decoded["personalizations"].([]any)[0].(map[string]any)
	require.Contains(t, personalization, "to")
	require.NotContains(t, personalization, "cc")
	require.NotContains(t, personalization, "bcc")
}

func TestBuildPayload_IncludesCcAndBcc(t *testing.T) {
	t.Parallel()

	msg := mailer.NewMessage().
		AddTo("a@x.com", "A").
		AddCc("b@x.com", "").
		AddBcc("c@x.com", "C")

	p := BuildPayload(msg)
	require.Len(t, p.Personalizations, 1)
	require.JSONEq(t, `{
		"to": [{"email": "a@x.com", "name": "A"}],
		"cc": [{"email": "b@x.com"}],
		"bcc": [{"email": "c@x.com", "name": "C"}]
	}`, encode(t, p.Personalizations[0]))
}

func TestBuildPayload_EmptyNameIsOmitted(t *testing.T) {
	t.Parallel()

	msg := mailer.NewMessage().AddTo("anon@x.com", "")

	require.JSONEq(t, `[{"email": "anon@x.com"}]`, encode(t, BuildPayload(msg).Personalizations[0].To))
}

func TestBuildPayload_FromKeepsEmptyName(t *testing.T) {
	t.Parallel()

	msg := mailer.NewMessage().SetFrom("noreply@x.com", "").AddTo("a@x.com", "")

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(encode(t, BuildPayload(msg))), &decoded))
	require.JSONEq(t, `{"email": "noreply@x.com", "name": ""}`, string(decoded["from"]))
}

func TestBuildPayload_EmptyFromEncodesAsEmptyObject(t *testing.T) {
	t.Parallel()

	msg := mailer.NewMessage().AddTo("a@x.com", "A")

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(encode(t, BuildPayload(msg))), &decoded))
	require.JSONEq(t, `{}`, string(decoded["from"]))
}

func TestBuildPayload_ContentSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		parts       []mailer.Part
		want        []Content
	}{
		{
			name:        "html only",
			contentType: "text/html",
			want:        []Content{{Type: "text/html", Value: "<p>html</p>"}},
		},
		{
			name:        "plain part with non-multipart type skips html",
			contentType: "text/html",
			parts:       []mailer.Part{{ContentType: "text/plain", Body: "plain"}},
			want:        []Content{{Type: "text/plain", Value: "plain"}},
		},
		{
			name:        "plain part with multipart type keeps both",
			contentType: "multipart/alternative",
			parts:       []mailer.Part{{ContentType: "text/plain", Body: "plain"}},
			want: []Content{
				{Type: "text/plain", Value: "plain"},
				{Type: "text/html", Value: "<p>html</p>"},
			},
		},
		{
			name:        "only the first plain part is used",
			contentType: "multipart/mixed",
			parts: []mailer.Part{
				{ContentType: "text/calendar", Body: "ics"},
				{ContentType: "text/plain", Body: "first"},
				{ContentType: "text/plain", Body: "second"},
			},
			want: []Content{
				{Type: "text/plain", Value: "first"},
				{Type: "text/html", Value: "<p>html</p>"},
			},
		},
		{
			name:        "non plain children fall back to html",
			contentType: "text/html",
			parts:       []mailer.Part{{ContentType: "text/calendar", Body: "ics"}},
			want:        []Content{{Type: "text/html", Value: "<p>html</p>"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := mailer.NewMessage().AddTo("a@x.com", "").SetBody("<p>html</p>", tt.contentType)
			for _, p := range tt.parts {
				msg.AddPart(p.Body, p.ContentType)
			}

			require.Equal(t, tt.want, BuildPayload(msg).Content)
		})
	}
}

func TestBuildPayload_ReplyToAndAttachments(t *testing.T) {
	t.Parallel()

	msg := mailer.NewMessage().
		AddTo("a@x.com", "").
		SetReplyTo("reply@x.com", "Support").
		Attach(mailer.Attachment{Filename: "a.txt", ContentType: "text/plain", Content: []byte("hi")}).
		Attach(mailer.Attachment{Filename: "logo.png", ContentType: "image/png", ContentID: "logo", Content: []byte{0x89}})

	p := BuildPayload(msg)
	require.Equal(t, &Address{Email: "reply@x.com", Name: "Support"}, p.ReplyTo)
	require.Equal(t, []Attachment{
		{Content: "aGk=", Type: "text/plain", Filename: "a.txt"},
		{Content: "iQ==", Type: "image/png", Filename: "logo.png", Disposition: "inline", ContentID: "logo"},
	}, p.Attachments)
}

func TestTransport_Send(t *testing.T) {
	t.Parallel()

	var (
		gotAuth, gotType string
		gotBody          Payload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	var before, after atomic.Int32
	tr := New(Config{APIKey: "SG.key"}, WithEndpoint(srv.URL), WithHooks(mailer.Hooks{
		BeforeSend: func(ctx context.Context, msg *mailer.Message) { before.Add(1) },
		SendPerformed: func(ctx context.Context, msg *mailer.Message, n int) {
			after.Add(int32(n))
		},
	}))

	msg := mailer.NewMessage().
		SetFrom("from@x.com", "Sender").
		AddTo("to@x.com", "Receiver").
		AddCc("cc@x.com", "").
		AddBcc("bcc@x.com", "").
		SetSubject("Hi").
		SetBody("<b>hello</b>", "text/html")

	n, err := tr.Send(context.Background(), msg)

	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "Bearer SG.key", gotAuth)
	require.Equal(t, "application/json", gotType)
	require.Equal(t, "Hi", gotBody.Subject)
	require.Equal(t, int32(1), before.Load())
	require.Equal(t, int32(3), after.Load())
}

func TestTransport_Send_ServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	performed := false
	tr := New(Config{APIKey: "k"}, WithEndpoint(srv.URL), WithHooks(mailer.Hooks{
		SendPerformed: func(context.Context, *mailer.Message, int) { performed = true },
	}))

	n, err := tr.Send(context.Background(), mailer.NewMessage().AddTo("a@x.com", ""))

	require.Zero(t, n)
	require.ErrorIs(t, err, mailer.ErrDelivery)
	var derr *mailer.DeliveryError
	require.True(t, errors.As(err, &derr))
	require.Equal(t, "sendgrid", derr.Provider)
	require.Equal(t, http.StatusInternalServerError, derr.StatusCode)
	require.Equal(t, int32(1), calls.Load(), "no retry")
	require.False(t, performed)
}

func TestTransport_SetKey(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	tr := New(Config{APIKey: "old"}, WithEndpoint(srv.URL))
	require.Equal(t, "old", tr.Key())
	require.Equal(t, "new", tr.SetKey("new"))

	_, err := tr.Send(context.Background(), mailer.NewMessage().AddTo("a@x.com", ""))
	require.NoError(t, err)
	require.Equal(t, "Bearer new", gotAuth)
}

func TestNew_DefaultEndpoint(t *testing.T) {
	t.Parallel()

	tr := New(Config{})
	require.Equal(t, "https://api.sendgrid.com/v3/mail/send", tr.endpoint)
}
