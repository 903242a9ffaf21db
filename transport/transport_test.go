// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"encoding/xml"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/benderjab"
)

// fakeSession feeds raw stanzas to the handler passed to Serve.
// If hold is set Serve does not return until the session is closed.
type fakeSession struct {
	input []string
	hold  bool

	mu       sync.Mutex
	sent     []string
	answered strings.Builder

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeSession(hold bool, input ...string) *fakeSession {
	return &fakeSession{
		input:  input,
		hold:   hold,
		closed: make(chan struct{}),
	}
}

func (f *fakeSession) Serve(h xmpp.Handler) error {
	for _, raw := range f.input {
		d := xml.NewDecoder(strings.NewReader(raw))
		tok, err := d.Token()
		if err != nil {
			return err
		}
		start := tok.(xml.StartElement)
		rw := struct {
			xml.TokenReader
			*xml.Encoder
		}{
			TokenReader: xmlstream.Inner(d),
			Encoder:     xml.NewEncoder(&f.answered),
		}
		if err := h.HandleXMPP(rw, &start); err != nil {
			return err
		}
	}
	if f.hold {
		<-f.closed
	}
	return nil
}

func (f *fakeSession) Send(_ context.Context, r xml.TokenReader) error {
	var buf strings.Builder
	e := xml.NewEncoder(&buf)
	if _, err := xmlstream.Copy(e, r); err != nil {
		return err
	}
	if err := e.Flush(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, buf.String())
	return nil
}

func (f *fakeSession) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSession) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func collect(t *testing.T, tr *Transport, n int) []benderjab.Stanza {
	t.Helper()
	var got []benderjab.Stanza
	h := benderjab.HandlerFunc(func(_ context.Context, s benderjab.Stanza) error {
		got = append(got, s)
		return nil
	})
	deadline := time.Now().Add(5 * time.Second)
	for len(got) < n && time.Now().Before(deadline) {
		err := tr.Process(context.Background(), 50*time.Millisecond, h)
		require.NoError(t, err)
	}
	return got
}

func TestProcessDelivers(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newFakeSession(true,
		`<message from="fry@example.net/ship" type="chat"><body>hi</body></message>`,
		`<presence from="leela@example.net" type="subscribe"/>`,
		`<unknown/>`,
	)
	tr := newTransport(s, nil, 4, zerolog.Nop())

	got := collect(t, tr, 2)
	require.Len(t, got, 2)
	assert.Equal(t, benderjab.MessageStanza, got[0].Name)
	body, ok := got[0].Body()
	assert.True(t, ok)
	assert.Equal(t, "hi", body)
	assert.Equal(t, "fry@example.net/ship", got[0].From.String())
	assert.Equal(t, benderjab.PresenceStanza, got[1].Name)
	assert.Equal(t, string(stanza.SubscribePresence), got[1].Type)

	require.NoError(t, tr.Close())
	<-tr.Done()
	err := tr.Process(context.Background(), time.Second, benderjab.HandlerFunc(func(context.Context, benderjab.Stanza) error {
		t.Error("unexpected stanza after close")
		return nil
	}))
	assert.ErrorIs(t, err, benderjab.ErrSessionTerminated)
}

func TestProcessTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr := newTransport(newFakeSession(true), nil, 1, zerolog.Nop())
	defer tr.Close()

	start := time.Now()
	err := tr.Process(context.Background(), 20*time.Millisecond, benderjab.HandlerFunc(func(context.Context, benderjab.Stanza) error {
		t.Error("unexpected stanza")
		return nil
	}))
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestProcessCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr := newTransport(newFakeSession(true), nil, 1, zerolog.Nop())
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.Process(ctx, time.Minute, benderjab.HandlerFunc(func(context.Context, benderjab.Stanza) error {
		return nil
	}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessDeliversBeforeTermination(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newFakeSession(false, `<message from="fry@example.net" type="chat"><body>bye</body></message>`)
	tr := newTransport(s, nil, 4, zerolog.Nop())
	<-tr.Done()

	var got int
	h := benderjab.HandlerFunc(func(context.Context, benderjab.Stanza) error {
		got++
		return nil
	})
	require.NoError(t, tr.Process(context.Background(), time.Second, h))
	assert.Equal(t, 1, got)
	assert.ErrorIs(t, tr.Process(context.Background(), time.Second, h), benderjab.ErrSessionTerminated)
	assert.NoError(t, tr.Err())
	assert.NoError(t, tr.Close())
}

func TestRequestAnsweredInline(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newFakeSession(false, `<iq from="fry@example.net/ship" id="123" type="get"><ping xmlns="urn:xmpp:ping"/></iq>`)
	tr := newTransport(s, nil, 4, zerolog.Nop())

	h := benderjab.HandlerFunc(func(ctx context.Context, in benderjab.Stanza) error {
		// Unrelated stanzas go through the session.
		_, err := tr.Send(ctx, benderjab.NewMessage(in.From, "pong"))
		if err != nil {
			return err
		}
		resp := benderjab.NewIQ(in.From, stanza.ResultIQ)
		resp.ID = in.ID
		_, err = tr.Send(ctx, resp)
		return err
	})
	require.NoError(t, tr.Process(context.Background(), 5*time.Second, h))
	<-tr.Done()

	assert.Equal(t, `<iq id="123" to="fry@example.net/ship" type="result"></iq>`, s.answered.String())
	sent := s.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "<body>pong</body>")
	assert.NoError(t, tr.Close())
}

func TestSendAfterSessionEnds(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newFakeSession(false)
	tr := newTransport(s, nil, 1, zerolog.Nop())
	<-tr.Done()

	_, err := tr.Send(context.Background(), benderjab.NewMessage(jid.MustParse("fry@example.net"), "hi"))
	assert.ErrorIs(t, err, benderjab.ErrSessionTerminated)
	assert.Empty(t, s.Sent())
}

func TestCloseReleasesPendingRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newFakeSession(true,
		`<iq from="fry@example.net/ship" id="1" type="set"><query xmlns="jabber:iq:rpc"/></iq>`,
	)
	tr := newTransport(s, nil, 1, zerolog.Nop())

	require.NoError(t, tr.Close())
	select {
	case <-tr.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end after close")
	}
}

type errSession struct {
	*fakeSession
	err error
}

func (e errSession) Serve(xmpp.Handler) error {
	return e.err
}

func TestServeError(t *testing.T) {
	defer goleak.VerifyNone(t)

	want := errors.New("stream reset")
	tr := newTransport(errSession{fakeSession: newFakeSession(false), err: want}, nil, 1, zerolog.Nop())
	<-tr.Done()
	assert.ErrorIs(t, tr.Err(), want)
	assert.ErrorIs(t, tr.Process(context.Background(), time.Second, benderjab.HandlerFunc(func(context.Context, benderjab.Stanza) error {
		return nil
	})), benderjab.ErrSessionTerminated)
}
