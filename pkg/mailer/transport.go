package mailer

import (
	"context"
	"sync/atomic"
)

// Transport delivers a fully rendered message through a provider.
type Transport interface {
	// Send delivers the message and returns the number of recipients it was
	// addressed to (to + cc + bcc). A nil error means the provider accepted
	// the request, not that every recipient received it.
	Send(ctx context.Context, msg *Message) (int, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, msg *Message) (int, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, msg *Message) (int, error) {
	return f(ctx, msg)
}

// Hooks are optional callbacks around a transport call.
// BeforeSend runs before the provider payload is built; SendPerformed runs
// only after the provider accepted the message.
type Hooks struct {
	BeforeSend    func(ctx context.Context, msg *Message)
	SendPerformed func(ctx context.Context, msg *Message, recipients int)
}

// Before invokes BeforeSend if set.
func (h Hooks) Before(ctx context.Context, msg *Message) {
	if h.BeforeSend != nil {
		h.BeforeSend(ctx, msg)
	}
}

// After invokes SendPerformed if set.
func (h Hooks) After(ctx context.Context, msg *Message, recipients int) {
	if h.SendPerformed != nil {
		h.SendPerformed(ctx, msg, recipients)
	}
}

// MergeHooks combines hook sets; callbacks run in argument order.
func MergeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeSend: func(ctx context.Context, msg *Message) {
			for _, h := range hooks {
				h.Before(ctx, msg)
			}
		},
		SendPerformed: func(ctx context.Context, msg *Message, recipients int) {
			for _, h := range hooks {
				h.After(ctx, msg, recipients)
			}
		},
	}
}

// APIKey holds a provider credential that can be rotated while the
// transport is in use.
type APIKey struct {
	v atomic.Pointer[string]
}

// NewAPIKey returns a key holder initialized with key.
func NewAPIKey(key string) *APIKey {
	k := &APIKey{}
	k.Set(key)
	return k
}

// Get returns the current key.
func (k *APIKey) Get() string {
	if p := k.v.Load(); p != nil {
		return *p
	}
	return ""
}

// Set replaces the key and returns it.
func (k *APIKey) Set(key string) string {
	k.v.Store(&key)
	return key
}
