// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ping_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/benderjab"
	"mellium.im/benderjab/internal/xmpptest"
	"mellium.im/benderjab/ping"
)

var (
	botJID = jid.MustParse("bender@example.net/BenderJab")
	fry    = jid.MustParse("fry@example.net/ship")
)

func newBot(t *testing.T) (*benderjab.Bot, *xmpptest.Transport) {
	t.Helper()
	d := &xmpptest.Dialer{}
	b := benderjab.New(benderjab.Config{
		JID:         botJID.Bare(),
		Password:    "pass",
		PollTimeout: 10 * time.Millisecond,
	}, d)
	ping.Handle(b)
	require.NoError(t, b.Logon(context.Background()))
	tr := d.Last()
	tr.Reset()
	return b, tr
}

func TestEncode(t *testing.T) {
	iq := ping.IQ(fry)
	iq.ID = "123"
	assert.Equal(t,
		`<iq id="123" to="fry@example.net/ship" type="get"><ping xmlns="urn:xmpp:ping"></ping></iq>`,
		xmpptest.Encode(t, iq))
}

func TestRespond(t *testing.T) {
	b, tr := newBot(t)
	iq := ping.IQ(botJID)
	iq.ID = "123"
	iq.From = fry
	tr.Deliver(iq)

	_, err := b.Step(context.Background())
	require.NoError(t, err)

	sent := tr.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, string(stanza.ResultIQ), sent[0].Type)
	assert.Equal(t, "123", sent[0].ID)
	assert.Equal(t, fry, sent[0].To)
	assert.Empty(t, sent[0].Payload)
}

func TestSendLoopback(t *testing.T) {
	b, tr := newBot(t)
	tr.OnSend = func(s benderjab.Stanza) []benderjab.Stanza {
		if s.Name != benderjab.IQStanza || !s.To.Equal(botJID) {
			return nil
		}
		s.From = botJID
		return []benderjab.Stanza{s}
	}

	rtt, err := ping.Send(context.Background(), b, botJID, time.Second)
	require.NoError(t, err)
	assert.Less(t, rtt, time.Second)
}

func TestSendError(t *testing.T) {
	b, tr := newBot(t)
	tr.OnSend = func(s benderjab.Stanza) []benderjab.Stanza {
		if s.Name != benderjab.IQStanza || s.Type != string(stanza.GetIQ) {
			return nil
		}
		resp, _ := benderjab.ServiceUnavailable(s)
		resp.From = s.To
		return []benderjab.Stanza{resp}
	}

	_, err := ping.Send(context.Background(), b, fry, time.Second)
	assert.ErrorIs(t, err, ping.ErrFailed)
}

func TestSendTimeout(t *testing.T) {
	b, _ := newBot(t)
	_, err := ping.Send(context.Background(), b, fry, 30*time.Millisecond)
	assert.ErrorIs(t, err, benderjab.ErrWaitTimeout)
}
