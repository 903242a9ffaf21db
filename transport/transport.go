// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package transport connects a bot to a real XMPP server using mellium.im/xmpp.
//
// The session is read on a background goroutine and every inbound stanza is
// buffered until the bot's event loop calls Process.
// Requests (IQs of type get or set) are handed over synchronously so that a
// response written by the bot while handling one is sent as the answer to that
// request.
// Because the session is not read while a request is being handled, handlers
// for requests must not wait for other stanzas.
package transport // import "mellium.im/benderjab/transport"

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"mellium.im/sasl"
	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/stanza"

	"mellium.im/benderjab"
)

// DefaultQueueSize is the number of stanzas buffered between polls.
const DefaultQueueSize = 64

// session is the subset of *xmpp.Session used by Transport.
type session interface {
	Serve(xmpp.Handler) error
	Send(context.Context, xml.TokenReader) error
	Close() error
}

// An Option configures a Dialer.
type Option func(*Dialer)

// WithLogger sets the logger used by the dialer and its transports.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dialer) {
		d.logger = l
	}
}

// WithTLSConfig sets the TLS configuration used for StartTLS.
// If ServerName is empty it is filled in with the domainpart of the JID being
// dialed.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(d *Dialer) {
		d.tls = cfg
	}
}

// WithQueueSize sets the number of stanzas that are buffered between polls.
func WithQueueSize(n int) Option {
	return func(d *Dialer) {
		if n > 0 {
			d.queue = n
		}
	}
}

// WithMechanisms sets the SASL mechanisms offered during authentication in
// order of preference.
func WithMechanisms(mechs ...sasl.Mechanism) Option {
	return func(d *Dialer) {
		d.mechs = mechs
	}
}

// Dialer establishes authenticated client sessions.
// It implements benderjab.Dialer.
type Dialer struct {
	logger zerolog.Logger
	tls    *tls.Config
	queue  int
	mechs  []sasl.Mechanism
}

// NewDialer returns a Dialer configured by opts.
func NewDialer(opts ...Option) *Dialer {
	d := &Dialer{
		logger: zerolog.Nop(),
		queue:  DefaultQueueSize,
		mechs: []sasl.Mechanism{
			sasl.ScramSha256Plus,
			sasl.ScramSha1Plus,
			sasl.ScramSha256,
			sasl.ScramSha1,
			sasl.Plain,
		},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dial connects to the server for creds.JID, negotiates TLS, authenticates,
// and binds the resourcepart of creds.JID.
func (d *Dialer) Dial(ctx context.Context, creds benderjab.Credentials) (benderjab.Transport, error) {
	var cfg *tls.Config
	if d.tls != nil {
		cfg = d.tls.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = creds.JID.Domain().String()
	}

	s, err := xmpp.DialClientSession(ctx, creds.JID,
		xmpp.StartTLS(cfg),
		xmpp.SASL("", creds.Password, d.mechs...),
		xmpp.BindResource(),
	)
	if err != nil {
		return nil, err
	}
	logger := d.logger.With().Str("session", creds.JID.String()).Logger()
	return newTransport(s, s.Conn(), d.queue, logger), nil
}

type inbound struct {
	stanza benderjab.Stanza
	w      xmlstream.TokenWriter
	done   chan struct{}
}

// Transport is a live session.
// It implements benderjab.Transport.
type Transport struct {
	s      session
	conn   io.Closer
	logger zerolog.Logger
	in     chan inbound

	// closed when Serve returns.
	served chan struct{}
	// closed by Close.
	closing   chan struct{}
	closeOnce sync.Once
	serveErr  error

	// the request currently being handled by the event loop, if any.
	current *inbound
}

func newTransport(s session, conn io.Closer, queue int, logger zerolog.Logger) *Transport {
	t := &Transport{
		s:       s,
		conn:    conn,
		logger:  logger,
		in:      make(chan inbound, queue),
		served:  make(chan struct{}),
		closing: make(chan struct{}),
	}
	go t.serve()
	return t
}

func (t *Transport) serve() {
	err := t.s.Serve(xmpp.HandlerFunc(t.handleXMPP))
	t.serveErr = err
	if err != nil {
		t.logger.Warn().Err(err).Msg("session ended")
	} else {
		t.logger.Debug().Msg("session ended")
	}
	close(t.served)
}

func (t *Transport) handleXMPP(r xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	s, err := benderjab.DecodeStanza(r, start)
	if err != nil {
		t.logger.Debug().Err(err).Str("element", start.Name.Local).Msg("dropping undecodable element")
		return nil
	}
	item := inbound{stanza: s}
	request := s.Name == benderjab.IQStanza &&
		(s.Type == string(stanza.GetIQ) || s.Type == string(stanza.SetIQ))
	if request {
		item.w = r
		item.done = make(chan struct{})
	}

	select {
	case t.in <- item:
	case <-t.closing:
		return nil
	}
	if request {
		select {
		case <-item.done:
		case <-t.closing:
		}
	}
	return nil
}

// Send transmits s.
// If s answers the request currently being handled it is written as the
// response to that request.
func (t *Transport) Send(ctx context.Context, s benderjab.Stanza) (string, error) {
	select {
	case <-t.served:
		return "", benderjab.ErrSessionTerminated
	default:
	}
	if cur := t.current; cur != nil && s.IsResponse() && s.ID == cur.stanza.ID {
		if _, err := s.WriteXML(cur.w); err != nil {
			return "", err
		}
		if f, ok := cur.w.(xmlstream.Flusher); ok {
			return s.ID, f.Flush()
		}
		return s.ID, nil
	}
	return s.ID, t.s.Send(ctx, s.TokenReader())
}

// Process waits up to timeout for a stanza, then passes it and any others
// that have already arrived to h.
func (t *Transport) Process(ctx context.Context, timeout time.Duration, h benderjab.Handler) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var item inbound
	select {
	case item = <-t.in:
	case <-t.served:
		// Anything read before the session ended is still delivered.
		select {
		case item = <-t.in:
		default:
			return benderjab.ErrSessionTerminated
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}

	for {
		if err := t.handle(ctx, item, h); err != nil {
			return err
		}
		select {
		case item = <-t.in:
		default:
			return nil
		}
	}
}

func (t *Transport) handle(ctx context.Context, item inbound, h benderjab.Handler) error {
	if item.done != nil {
		t.current = &item
		defer func() {
			t.current = nil
			close(item.done)
		}()
	}
	return h.HandleStanza(ctx, item.stanza)
}

// Close ends the session and closes the underlying connection.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closing)
		err = t.s.Close()
		if t.conn != nil {
			if e := t.conn.Close(); err == nil && !errors.Is(e, net.ErrClosed) {
				err = e
			}
		}
	})
	return err
}

// Done returns a channel that is closed when the session ends.
func (t *Transport) Done() <-chan struct{} {
	return t.served
}

// Err returns the error that ended the session, if any.
// It is only valid after Done has been closed.
func (t *Transport) Err() error {
	return t.serveErr
}
