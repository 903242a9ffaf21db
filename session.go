// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"context"
	"encoding/xml"
	"time"

	"github.com/google/uuid"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/benderjab/address"
)

type pendingCall struct {
	resp Stanza
	done bool
}

// Logon connects to the server and starts a new session.
// Any previous session is closed first.
//
// If no password was configured the password prompt is used (and the answer
// remembered for later reconnects).
// Once the session is established the roster is requested and the initial
// presence is sent.
func (b *Bot) Logon(ctx context.Context) error {
	if b.password == "" {
		if b.prompt == nil {
			return ErrNoPassword
		}
		pass, err := b.prompt(ctx, b.jid)
		if err != nil {
			return err
		}
		b.password = pass
	}

	if b.transport != nil {
		if err := b.transport.Close(); err != nil {
			b.logger.Debug().Err(err).Msg("error closing previous session")
		}
		b.transport = nil
	}

	addr, err := b.jid.WithResource(b.resource)
	if err != nil {
		return &AuthenticationError{JID: b.jid, Err: err}
	}
	t, err := b.dialer.Dial(ctx, Credentials{JID: addr, Password: b.password})
	if err != nil {
		b.metrics.AuthFailures.Inc()
		b.logger.Error().Err(err).Str("resource", b.resource).Msg("couldn't authenticate")
		return &AuthenticationError{JID: addr, Err: err}
	}
	b.transport = t
	b.router = nil
	b.metrics.Logons.Inc()

	if err = b.announce(ctx); err != nil {
		b.transport = nil
		b.router = nil
		if closeErr := t.Close(); closeErr != nil {
			b.logger.Debug().Err(closeErr).Msg("error closing failed session")
		}
		return err
	}
	b.logger.Info().Str("resource", b.resource).Msg("logged on")
	return nil
}

// announce requests the roster and sends the initial presence.
func (b *Bot) announce(ctx context.Context) error {
	roster := NewIQ(jid.JID{}, stanza.GetIQ, NewNode(xml.Name{Space: NSRoster, Local: "query"}))
	if _, err := b.SendStanza(ctx, roster); err != nil {
		return err
	}
	presence := NewPresence(jid.JID{}, "")
	presence.Lang = b.cfg.Lang
	_, err := b.SendStanza(ctx, presence)
	return err
}

// Disconnect ends the current session, if any.
// Calling Disconnect on a bot without a session does nothing.
func (b *Bot) Disconnect() error {
	t := b.transport
	if t == nil {
		return nil
	}
	b.transport = nil
	b.router = nil

	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if _, err := t.Send(ctx, NewPresence(jid.JID{}, stanza.UnavailablePresence)); err != nil {
		b.logger.Debug().Err(err).Msg("error sending unavailable presence")
	}
	b.logger.Info().Msg("disconnected")
	return t.Close()
}

func (b *Bot) reconnect(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	b.metrics.Reconnects.Inc()
	return b.Logon(ctx)
}

// SendStanza transmits s over the current session and returns its id.
// If s has no id a random one is assigned.
func (b *Bot) SendStanza(ctx context.Context, s Stanza) (string, error) {
	if b.transport == nil {
		return "", ErrNotConnected
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	id, err := b.transport.Send(ctx, s)
	if err != nil {
		return id, err
	}
	b.metrics.StanzasSent.WithLabelValues(s.Name).Inc()
	return id, nil
}

// Send delivers text to addr.
// Chat addresses receive a chat message, mail addresses are handed to the
// configured Mailer and anything else is dropped.
func (b *Bot) Send(ctx context.Context, addr address.Address, text string) error {
	switch addr.Class {
	case address.Chat:
		_, err := b.SendStanza(ctx, NewMessage(addr.JID, text))
		return err
	case address.Mail:
		if b.mailer == nil {
			b.logger.Debug().Str("to", addr.Mail).Msg("no mailer configured, dropping message")
			return nil
		}
		return b.mailer.Mail(ctx, b.jid.Bare(), addr.Mail, text)
	}
	b.logger.Debug().Str("to", addr.String()).Msg("unknown address class, dropping message")
	return nil
}

// WaitFor processes inbound stanzas until a result or error IQ with the given
// id arrives, and returns it.
// Other stanzas received in the meantime are handled as usual.
//
// If nothing arrives before timeout, ErrWaitTimeout is returned.
// Only one caller may wait for a given id.
func (b *Bot) WaitFor(ctx context.Context, id string, timeout time.Duration) (Stanza, error) {
	if b.transport == nil {
		return Stanza{}, ErrNotConnected
	}
	if _, ok := b.pending[id]; ok {
		return Stanza{}, ErrDuplicateID
	}
	call := &pendingCall{}
	b.pending[id] = call
	defer delete(b.pending, id)

	deadline := b.now().Add(timeout)
	for !call.done {
		remaining := deadline.Sub(b.now())
		if remaining <= 0 {
			return Stanza{}, ErrWaitTimeout
		}
		if b.transport == nil {
			return Stanza{}, ErrNotConnected
		}
		if err := b.transport.Process(ctx, remaining, HandlerFunc(b.dispatch)); err != nil {
			return Stanza{}, err
		}
	}
	return call.resp, nil
}
