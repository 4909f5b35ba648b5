package sendgrid

import "encoding/json"

// Payload is the v3 Mail Send request body.
type Payload struct {
	ReplyTo          *Address          `json:"reply_to,omitempty"`
	From             Sender            `json:"from"`
	Subject          string            `json:"subject"`
	Personalizations []Personalization `json:"personalizations"`
	Content          []Content         `json:"content"`
	Attachments      []Attachment      `json:"attachments,omitempty"`
}

// Personalization groups the recipients of one envelope.
type Personalization struct {
	To  []Address `json:"to"`
	Cc  []Address `json:"cc,omitempty"`
	Bcc []Address `json:"bcc,omitempty"`
}

// Sender is the from address. The name key is always present; an unset
// sender encodes as {}.
type Sender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// MarshalJSON implements json.Marshaler.
func (s Sender) MarshalJSON() ([]byte, error) {
	if s == (Sender{}) {
		return []byte("{}"), nil
	}
	type sender Sender
	return json.Marshal(sender(s))
}

// Address is a recipient or reply-to entry. An empty name is omitted.
type Address struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Content is one body part.
type Content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Attachment is a base64 encoded file.
type Attachment struct {
	Content     string `json:"content"`
	Type        string `json:"type,omitempty"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition,omitempty"`
	ContentID   string `json:"content_id,omitempty"`
}
