// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ping implements XEP-0199: XMPP Ping.
//
// Bots that call Handle answer pings from other entities, and Send checks
// whether another entity is reachable.
package ping // import "mellium.im/benderjab/ping"

import (
	"context"
	"encoding/xml"
	"errors"
	"time"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/benderjab"
)

// NS is the XML namespace used by XMPP pings. It is provided as a convenience.
const NS = `urn:xmpp:ping`

// ErrFailed is returned by Send when the entity answers with an error.
var ErrFailed = errors.New("ping: error response")

var pingName = xml.Name{Space: NS, Local: "ping"}

// IQ returns a ping request addressed to to.
func IQ(to jid.JID) benderjab.Stanza {
	return benderjab.NewIQ(to, stanza.GetIQ, benderjab.NewNode(pingName))
}

// Handle makes b answer pings.
func Handle(b *benderjab.Bot) {
	b.Handle(benderjab.Pattern{
		Name:    benderjab.IQStanza,
		Type:    string(stanza.GetIQ),
		Payload: pingName,
	}, Responder{Bot: b})
}

// Responder answers ping requests with an empty result.
type Responder struct {
	Bot *benderjab.Bot
}

// HandleStanza implements benderjab.Handler.
func (r Responder) HandleStanza(ctx context.Context, iq benderjab.Stanza) error {
	pong := benderjab.NewIQ(iq.From, stanza.ResultIQ)
	pong.ID = iq.ID
	_, err := r.Bot.SendStanza(ctx, pong)
	return err
}

// Send pings to and waits up to timeout for the answer.
// It returns the round trip time.
func Send(ctx context.Context, b *benderjab.Bot, to jid.JID, timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	id, err := b.SendStanza(ctx, IQ(to))
	if err != nil {
		return 0, err
	}
	resp, err := b.WaitFor(ctx, id, timeout)
	rtt := time.Since(start)
	if err != nil {
		return rtt, err
	}
	if resp.Type == string(stanza.ErrorIQ) {
		return rtt, ErrFailed
	}
	return rtt, nil
}
