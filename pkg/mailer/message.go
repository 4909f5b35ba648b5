package mailer

import (
	"maps"
	"strings"

	"github.com/google/uuid"
)

// Common content types.
const (
	ContentTypeHTML        = "text/html"
	ContentTypePlain       = "text/plain"
	ContentTypeAlternative = "multipart/alternative"
)

// Part is a child body part of a message, e.g. a plain-text alternative.
type Part struct {
	ContentType string
	Body        string
}

// Attachment represents an email attachment.
type Attachment struct {
	Filename    string // Display name for the attachment
	ContentType string // MIME type (e.g., "application/pdf")
	ContentID   string // Optional Content-ID for inline attachments
	Content     []byte // Raw file content
}

// Inline reports whether the attachment is referenced from the body by Content-ID.
func (a Attachment) Inline() bool {
	return a.ContentID != ""
}

// Message is a normalized, fully rendered email.
// Builder callbacks fill it in; transports only read it.
type Message struct {
	Headers     map[string]string
	Tags        Tags
	ID          string // Local correlation ID, never sent to providers
	Subject     string
	Body        string // Primary content, HTML by convention
	ContentType string // MIME type of the primary part
	From        AddressList
	ReplyTo     AddressList // nil when unset
	To          AddressList
	Cc          AddressList
	Bcc         AddressList
	Children    []Part
	Attachments []Attachment
}

// NewMessage returns an empty HTML message with a fresh ID.
func NewMessage() *Message {
	return &Message{
		ID:          uuid.NewString(),
		ContentType: ContentTypeHTML,
	}
}

// SetFrom replaces the sender.
func (m *Message) SetFrom(email, name string) *Message {
	m.From = AddressList{{Email: email, Name: name}}
	return m
}

// AddTo adds a primary recipient.
func (m *Message) AddTo(email, name string) *Message {
	m.To = m.To.Add(email, name)
	return m
}

// AddCc adds a carbon copy recipient.
func (m *Message) AddCc(email, name string) *Message {
	m.Cc = m.Cc.Add(email, name)
	return m
}

// AddBcc adds a blind carbon copy recipient.
func (m *Message) AddBcc(email, name string) *Message {
	m.Bcc = m.Bcc.Add(email, name)
	return m
}

// ClearBcc removes all blind carbon copy recipients.
func (m *Message) ClearBcc() *Message {
	m.Bcc = nil
	return m
}

// SetReplyTo adds a reply-to address.
func (m *Message) SetReplyTo(email, name string) *Message {
	m.ReplyTo = m.ReplyTo.Add(email, name)
	return m
}

// SetSubject sets the subject line.
func (m *Message) SetSubject(subject string) *Message {
	m.Subject = subject
	return m
}

// SetBody sets the primary content and its MIME type.
// An empty contentType keeps the current one.
func (m *Message) SetBody(body, contentType string) *Message {
	m.Body = body
	if contentType != "" {
		m.ContentType = contentType
	}
	return m
}

// AddPart appends a child body part.
func (m *Message) AddPart(body, contentType string) *Message {
	m.Children = append(m.Children, Part{ContentType: contentType, Body: body})
	return m
}

// Attach appends an attachment.
func (m *Message) Attach(a Attachment) *Message {
	m.Attachments = append(m.Attachments, a)
	return m
}

// SetHeader sets a custom header.
func (m *Message) SetHeader(key, value string) *Message {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
	return m
}

// PlainText returns the body of the first text/plain child part.
func (m *Message) PlainText() (string, bool) {
	for _, p := range m.Children {
		if p.ContentType == ContentTypePlain {
			return p.Body, true
		}
	}
	return "", false
}

// IsMultipart reports whether the primary content type is a multipart type.
func (m *Message) IsMultipart() bool {
	return strings.Contains(m.ContentType, "multipart")
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	c.From = m.From.Clone()
	c.ReplyTo = m.ReplyTo.Clone()
	c.To = m.To.Clone()
	c.Cc = m.Cc.Clone()
	c.Bcc = m.Bcc.Clone()
	c.Headers = maps.Clone(m.Headers)
	c.Tags = maps.Clone(m.Tags)
	if m.Children != nil {
		c.Children = append([]Part(nil), m.Children...)
	}
	if m.Attachments != nil {
		c.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return &c
}

// RecipientCount returns the number of addresses the message is sent to.
func RecipientCount(m *Message) int {
	return m.To.Len() + m.Cc.Len() + m.Bcc.Len()
}
