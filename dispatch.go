// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"context"
	"fmt"
	"runtime/debug"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

const authorizationError = "Authorization Error."

func (b *Bot) currentRouter() *Router {
	if b.router != nil {
		return b.router
	}
	opts := make([]RouteOption, 0, len(b.routes)+3)
	opts = append(opts,
		RouteFunc(Pattern{Name: MessageStanza}, b.handleMessage),
		RouteFunc(Pattern{Name: PresenceStanza}, b.handlePresence),
		Fallback(HandlerFunc(b.fallback)),
	)
	opts = append(opts, b.routes...)
	b.router = NewRouter(opts...)
	return b.router
}

// dispatch is the handler passed to the transport.
// Responses that somebody is waiting for are claimed before routing.
func (b *Bot) dispatch(ctx context.Context, s Stanza) error {
	b.metrics.StanzasReceived.WithLabelValues(s.Name).Inc()
	if s.IsResponse() {
		if call, ok := b.pending[s.ID]; ok && !call.done {
			call.resp = s
			call.done = true
			return nil
		}
	}
	if err := b.currentRouter().HandleStanza(ctx, s); err != nil {
		b.logger.Error().Err(err).
			Str("stanza", s.Name).
			Str("type", s.Type).
			Str("from", s.From.String()).
			Msg("error handling stanza")
	}
	return nil
}

func (b *Bot) fallback(ctx context.Context, s Stanza) error {
	reply, ok := ServiceUnavailable(s)
	if !ok {
		return nil
	}
	_, err := b.SendStanza(ctx, reply)
	return err
}

func (b *Bot) handleMessage(ctx context.Context, s Stanza) error {
	// Answering errors could start a loop with another bot.
	if s.Type == string(stanza.ErrorMessage) {
		return nil
	}
	body, ok := s.Body()
	if !ok || body == "" {
		return nil
	}

	if !b.IsAuthorized(s.From) {
		b.metrics.Unauthorized.Inc()
		b.logger.Info().Str("from", s.From.String()).Msg("unauthorized message")
		_, err := b.SendStanza(ctx, NewMessage(s.From, authorizationError))
		return err
	}

	reply, err := b.parse(ctx, body, s.From)
	if err != nil {
		b.metrics.ParserFailures.Inc()
		b.logger.Error().Err(err).Str("from", s.From.String()).Msg("parser failed")
		reply = Text("failed: " + err.Error())
	}
	text, ok := reply.Body()
	if !ok {
		return nil
	}
	_, err = b.SendStanza(ctx, NewMessage(s.From, text))
	return err
}

func (b *Bot) parse(ctx context.Context, body string, from jid.JID) (reply Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Bytes("stack", debug.Stack()).Msg("parser panicked")
			err = fmt.Errorf("%v", r)
		}
	}()
	return b.parser.Reply(ctx, body, from)
}

func (b *Bot) handlePresence(ctx context.Context, s Stanza) error {
	var out []Stanza
	self := s.From.Bare().Equal(b.jid.Bare())
	switch stanza.PresenceType(s.Type) {
	case stanza.SubscribePresence:
		out = append(out,
			NewPresence(s.From, stanza.SubscribedPresence),
			NewPresence(s.From, stanza.SubscribePresence),
		)
		if !self {
			out = append(out, NewMessage(s.From, "hi "+s.From.Localpart()))
		}
	case stanza.UnsubscribePresence:
		if !self {
			out = append(out, NewMessage(s.From, "bye "+s.From.Localpart()))
		}
		out = append(out,
			NewPresence(s.From, stanza.UnsubscribedPresence),
			NewPresence(s.From, stanza.UnsubscribePresence),
		)
	default:
		return nil
	}
	b.logger.Debug().Str("from", s.From.String()).Str("type", s.Type).Msg("subscription change")
	for _, o := range out {
		if _, err := b.SendStanza(ctx, o); err != nil {
			return err
		}
	}
	return nil
}
