// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package address

import (
	"fmt"
	"strings"

	"mellium.im/xmpp/jid"
)

// List is an ordered allow-list of addresses.
//
// A nil List allows every sender.
// A non-nil List, including an empty one, only allows senders that match one
// of its chat entries.
type List []Address

// ParseList splits text on whitespace and parses each field as an address.
// If requireResource is true, chat addresses without a resourcepart result in
// an error wrapping ErrMissingResource.
//
// The returned list is never nil, so an empty text denies every sender.
func ParseList(text string, requireResource bool) (List, error) {
	fields := strings.Fields(text)
	l := make(List, 0, len(fields))
	for _, f := range fields {
		a, err := Parse(f)
		if err != nil {
			return nil, err
		}
		if requireResource && a.Class == Chat && a.JID.Resourcepart() == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingResource, f)
		}
		l = append(l, a)
	}
	return l, nil
}

// Authorized reports whether sender may interact with the bot.
func (l List) Authorized(sender jid.JID) bool {
	if l == nil {
		return true
	}
	for _, a := range l {
		if a.BareMatch(sender) {
			return true
		}
	}
	return false
}

// Authorized reports whether sender is allowed by l.
// It is equivalent to l.Authorized(sender).
func Authorized(sender jid.JID, l List) bool {
	return l.Authorized(sender)
}

// String returns the list in the whitespace separated form accepted by
// ParseList.
func (l List) String() string {
	s := make([]string, 0, len(l))
	for _, a := range l {
		s = append(s, a.String())
	}
	return strings.Join(s, " ")
}
