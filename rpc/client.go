// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"errors"
	"time"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/benderjab"
)

// DefaultTimeout is how long Call waits for a response if the client does not
// set a timeout.
const DefaultTimeout = 25 * time.Second

// Client makes XML-RPC calls over a bot's session.
type Client struct {
	Bot     *benderjab.Bot
	Timeout time.Duration
}

// Send sends a method call to the given entity without waiting for the
// response, and returns the id of the IQ.
func (c Client) Send(ctx context.Context, to jid.JID, method string, args ...interface{}) (string, error) {
	call, err := EncodeCall(method, args...)
	if err != nil {
		return "", err
	}
	logger := c.Bot.Logger()
	logger.Debug().Str("to", to.String()).Str("method", method).Msg("rpc send")
	return c.Bot.SendStanza(ctx, MakeIQ(to, stanza.SetIQ, call, ""))
}

// Call sends a method call to the given entity and waits for the response.
// Stanzas that arrive while waiting are handled by the bot as usual.
//
// If the remote method failed a *Fault is returned, if the entity answers
// with an error IQ a *StanzaError is returned, and if nothing arrives in time
// a *TimeoutError is returned.
// Otherwise the first value of the response is returned.
func (c Client) Call(ctx context.Context, to jid.JID, method string, args ...interface{}) (interface{}, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	id, err := c.Send(ctx, to, method, args...)
	if err != nil {
		return nil, err
	}
	resp, err := c.Bot.WaitFor(ctx, id, timeout)
	if err != nil {
		if errors.Is(err, benderjab.ErrWaitTimeout) {
			return nil, &TimeoutError{ID: id, Timeout: timeout}
		}
		return nil, err
	}
	if resp.Type == string(stanza.ErrorIQ) {
		return nil, stanzaError(resp)
	}
	payload, err := ExtractPayload(resp)
	if err != nil {
		return nil, err
	}
	values, err := DecodeResponse(payload)
	if err != nil {
		return nil, err
	}
	logger := c.Bot.Logger()
	logger.Debug().Str("from", resp.From.String()).Str("method", method).Msg("rpc result")
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}
