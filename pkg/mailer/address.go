package mailer

import (
	"net/mail"
	"strings"
)

// Address is a single mailbox: an email address with an optional display name.
type Address struct {
	Email string
	Name  string
}

// String formats the address in RFC 5322 form.
func (a Address) String() string {
	return Recipient(a.Name, a.Email)
}

// Recipient formats a name and email into RFC 5322 address format.
// Returns just the email when name is empty and "Name <email>" for plain
// names. Names with specials are quoted and non-ASCII names are RFC 2047
// encoded.
func Recipient(name, email string) string {
	if name == "" {
		return email
	}
	if plainName(name) {
		return name + " <" + email + ">"
	}
	return (&mail.Address{Name: name, Address: email}).String()
}

// plainName reports whether name is printable ASCII without RFC 5322 specials.
func plainName(name string) bool {
	for _, r := range name {
		if r < 0x20 || r > 0x7e {
			return false
		}
	}
	return !strings.ContainsAny(name, `()<>[]:;@\,."`)
}

// AddressList is an ordered set of addresses keyed by email.
// Adding an email that is already present replaces its name in place.
type AddressList []Address

// Add appends the address or updates the name of an existing entry.
func (l AddressList) Add(email, name string) AddressList {
	for i := range l {
		if l[i].Email == email {
			l[i].Name = name
			return l
		}
	}
	return append(l, Address{Email: email, Name: name})
}

// Len returns the number of addresses in the list.
func (l AddressList) Len() int {
	return len(l)
}

// First returns the first address, if any.
func (l AddressList) First() (Address, bool) {
	if len(l) == 0 {
		return Address{}, false
	}
	return l[0], true
}

// Emails returns the bare email addresses in list order.
func (l AddressList) Emails() []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, len(l))
	for i, a := range l {
		out[i] = a.Email
	}
	return out
}

// Strings returns the formatted addresses in list order.
func (l AddressList) Strings() []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, len(l))
	for i, a := range l {
		out[i] = a.String()
	}
	return out
}

// Clone returns an independent copy. A nil list stays nil.
func (l AddressList) Clone() AddressList {
	if l == nil {
		return nil
	}
	out := make(AddressList, len(l))
	copy(out, l)
	return out
}

// Tags represents email tags/categories that can be either presence-only
// (using struct{}{}) or key-value pairs (using string values).
// Providers that do not support tags ignore them.
type Tags map[string]any

// SimpleTags creates presence-only tags from a list of tag names.
func SimpleTags(names ...string) Tags {
	t := make(Tags, len(names))
	for _, n := range names {
		t[n] = struct{}{}
	}
	return t
}
