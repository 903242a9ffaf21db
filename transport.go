// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"context"
	"time"

	"mellium.im/xmpp/jid"
)

// Credentials are used by a Dialer to log in.
// JID includes the resourcepart the bot wants to bind.
type Credentials struct {
	JID      jid.JID
	Password string
}

// A Dialer connects and authenticates to a server, returning a live
// Transport.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Transport, error)
}

// DialerFunc is an adapter to allow the use of ordinary functions as Dialers.
type DialerFunc func(ctx context.Context, creds Credentials) (Transport, error)

// Dial calls f(ctx, creds).
func (f DialerFunc) Dial(ctx context.Context, creds Credentials) (Transport, error) {
	return f(ctx, creds)
}

// Transport is a single authenticated session with a server.
//
// Transports are only used from the goroutine running the bot's event loop.
type Transport interface {
	// Send transmits s and returns its id.
	Send(ctx context.Context, s Stanza) (string, error)

	// Process waits up to timeout for inbound stanzas and passes each of them
	// to h before returning.
	// If the session has ended Process returns ErrSessionTerminated.
	// If ctx is canceled Process returns the context error.
	Process(ctx context.Context, timeout time.Duration, h Handler) error

	// Close ends the session.
	Close() error
}

// A Handler responds to inbound stanzas.
type Handler interface {
	HandleStanza(ctx context.Context, s Stanza) error
}

// The HandlerFunc type is an adapter to allow the use of ordinary functions as
// stanza handlers.
// If f is a function with the appropriate signature, HandlerFunc(f) is a
// Handler that calls f.
type HandlerFunc func(ctx context.Context, s Stanza) error

// HandleStanza calls f(ctx, s).
func (f HandlerFunc) HandleStanza(ctx context.Context, s Stanza) error {
	return f(ctx, s)
}
