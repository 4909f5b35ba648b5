// Package mailer builds, renders and delivers email through pluggable transports.
//
// The package separates message delivery (transports) from message composition
// (builders and templates), so a provider can be swapped without touching the
// code that decides what an email says.
//
// # Architecture
//
// The package consists of four main components:
//
//   - Message: Normalized email (sender, recipients, subject, body, parts, attachments)
//   - Transport: Interface that provider adapters implement
//   - Renderer: Converts markdown or HTML templates with YAML frontmatter to HTML
//   - Mailer: High-level client combining builders, Renderer and a Transport
//
// Provider adapters live in subpackages: sendgrid, sparkpost, resend, ses and
// logtransport (writes messages to a slog.Logger instead of sending them).
//
// # Usage
//
//	tr := sendgrid.New(sendgrid.Config{APIKey: os.Getenv("SENDGRID_API_KEY")},
//		sendgrid.WithHooks(mailer.LogHooks(log)),
//	)
//
//	m := mailer.New(tr, mailer.NewRenderer(emails.FS), mailer.Config{
//		FallbackSubject: "Notification",
//		DefaultLayout:   "base.html",
//		FromEmail:       "team@example.com",
//		FromName:        "Team",
//	})
//
//	n, err := m.Send(ctx, mailer.SendParams{
//		Template: "welcome.md",
//		Data:     map[string]any{"Name": "John"},
//		Build: func(msg *mailer.Message) {
//			msg.AddTo("john@example.com", "John").AddBcc("audit@example.com", "")
//		},
//	})
//
// Send returns the number of recipients (to + cc + bcc) the message was
// addressed to.
//
// # Templates
//
// Templates are markdown (.md) or HTML (.html) files with optional YAML frontmatter:
//
//	---
//	Subject: Welcome {{.Name}}!
//	---
//
//	# Welcome
//
//	Hello {{.Name}}, welcome to our service!
//
// Subjects support Go template syntax ({{.Variable}}). When Data is a
// map[string]any the message being built is available as {{.Message}}.
// Every rendered message carries a text/plain alternative part.
//
// # Transports
//
// A transport reads the message and never changes it. Hooks passed at
// construction run before the payload is built and after the provider
// accepted the request. Credentials can be rotated with SetKey while the
// transport is in use.
//
// # Errors
//
//   - ErrNoRecipient, ErrNoSubject, ErrNoContent: Incomplete message
//   - ErrTemplateNotFound, ErrLayoutNotFound, ErrRenderFailed, ErrInvalidFrontmatter: Rendering
//   - ErrInvalidBuilder: Unknown named builder
//   - ErrMissingFromAddress: No sender and no transport fallback
//   - ErrSendFailed: Wraps every transport failure
//   - ErrDelivery: Matches any *DeliveryError (network failure or non-2xx response)
package mailer
