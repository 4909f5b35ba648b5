package mailer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("email must have at least one recipient")

	// ErrNoSubject indicates no subject was provided.
	ErrNoSubject = errors.New("email must have a subject")

	// ErrNoContent indicates no HTML content was provided.
	ErrNoContent = errors.New("email must have HTML content")

	// ErrTemplateNotFound indicates the template file was not found.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrLayoutNotFound indicates the layout file was not found.
	ErrLayoutNotFound = errors.New("layout not found")

	// ErrRenderFailed indicates template rendering failed.
	ErrRenderFailed = errors.New("failed to render template")

	// ErrSendFailed indicates email sending failed.
	ErrSendFailed = errors.New("failed to send email")

	// ErrInvalidFrontmatter indicates invalid YAML frontmatter.
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")

	// ErrInvalidBuilder indicates the requested message builder is not registered.
	ErrInvalidBuilder = errors.New("invalid message builder")

	// ErrMissingFromAddress indicates the message has no sender and the
	// transport has nothing to fall back to.
	ErrMissingFromAddress = errors.New("email must have a from address")

	// ErrAttachmentsUnsupported indicates the transport cannot deliver attachments.
	ErrAttachmentsUnsupported = errors.New("transport does not support attachments")

	// ErrDelivery matches every *DeliveryError via errors.Is.
	ErrDelivery = errors.New("delivery failed")
)

// DeliveryError describes a failed provider call: a network failure,
// a non-2xx response or a request that could not be encoded.
type DeliveryError struct {
	Err        error  // Underlying cause, may be nil for plain status failures
	Provider   string // Transport name, e.g. "sendgrid"
	Code       string // Provider error code when the API returns one
	Body       string // Truncated response body
	StatusCode int    // HTTP status, 0 when no response was received
}

func (e *DeliveryError) Error() string {
	msg := e.Provider + ": " + ErrDelivery.Error()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDelivery) hold for any DeliveryError.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDelivery
}
