package sparkpost

// Payload is the transmissions request body.
type Payload struct {
	Recipients []Recipient `json:"recipients"`
	Content    Content     `json:"content"`
}

// Recipient is one entry of the delivery list.
type Recipient struct {
	Address RecipientAddress `json:"address"`
}

// RecipientAddress pairs the envelope address with its header address.
type RecipientAddress struct {
	Email    string `json:"email"`
	HeaderTo string `json:"header_to"`
}

// Content is the inline transmission content.
type Content struct {
	From        Sender       `json:"from"`
	HTML        string       `json:"html"`
	ReplyTo     string       `json:"reply_to,omitempty"`
	Subject     string       `json:"subject"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Sender is the from address.
type Sender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Attachment is a base64 encoded file.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}
