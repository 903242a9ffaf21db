// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package address implements the addresses a bot can deliver replies to and
// the allow-list used to decide which senders the bot will talk to.
//
// Two classes of address are supported: chat addresses, which are XMPP
// addresses (JIDs), and mail addresses, which are written with a "mailto:"
// prefix:
//
//	romeo@montague.net/orchard
//	mailto:juliet@capulet.example
package address // import "mellium.im/benderjab/address"

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/net/idna"
	"mellium.im/xmpp/jid"
)

// MailPrefix marks an address as belonging to the mail class.
const MailPrefix = "mailto:"

// Errors returned by Parse and ParseList.
var (
	ErrMissingResource = errors.New("address: missing resourcepart")
	ErrEmpty           = errors.New("address: empty address")
)

// Class is the delivery class of an address.
type Class uint8

// A list of address classes.
// The zero value is not a valid class and is never routed anywhere.
const (
	Unknown Class = iota
	Chat
	Mail
)

// String satisfies fmt.Stringer for Class.
func (c Class) String() string {
	switch c {
	case Chat:
		return "chat"
	case Mail:
		return "mail"
	}
	return "unknown"
}

// Address is a destination for outbound replies.
type Address struct {
	Class Class

	// JID is set for addresses of the Chat class.
	JID jid.JID

	// Mail is set for addresses of the Mail class and does not contain the
	// "mailto:" prefix.
	Mail string
}

// FromJID returns a chat address for j.
func FromJID(j jid.JID) Address {
	return Address{Class: Chat, JID: j}
}

// Parse parses s as a chat or mail address.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, ErrEmpty
	}
	if strings.HasPrefix(s, MailPrefix) {
		m, err := parseMail(strings.TrimPrefix(s, MailPrefix))
		if err != nil {
			return Address{}, err
		}
		return Address{Class: Mail, Mail: m}, nil
	}
	j, err := jid.Parse(s)
	if err != nil {
		return Address{}, fmt.Errorf("address: invalid chat address %q: %w", s, err)
	}
	return FromJID(j), nil
}

func parseMail(s string) (string, error) {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return "", fmt.Errorf("address: invalid mail address %q: %w", s, err)
	}
	idx := strings.LastIndexByte(addr.Address, '@')
	if idx < 0 {
		return "", fmt.Errorf("address: mail address %q has no domain", s)
	}
	domain, err := idna.Lookup.ToASCII(addr.Address[idx+1:])
	if err != nil {
		return "", fmt.Errorf("address: invalid mail domain in %q: %w", s, err)
	}
	return addr.Address[:idx+1] + domain, nil
}

// String returns the textual form of the address that Parse accepts.
func (a Address) String() string {
	switch a.Class {
	case Chat:
		return a.JID.String()
	case Mail:
		return MailPrefix + a.Mail
	}
	return ""
}

// BareMatch reports whether a is a chat address with the same bare JID as j.
// The resourceparts of both addresses are ignored.
func (a Address) BareMatch(j jid.JID) bool {
	if a.Class != Chat {
		return false
	}
	return a.JID.Bare().Equal(j.Bare())
}
