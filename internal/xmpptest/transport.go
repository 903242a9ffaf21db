// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmpptest provides in-memory sessions for testing bots.
package xmpptest // import "mellium.im/benderjab/internal/xmpptest"

import (
	"context"
	"sync"
	"time"

	"mellium.im/benderjab"
)

// Transport is an in-memory benderjab.Transport.
// Stanzas passed to Deliver are handed to the bot on its next poll and
// stanzas sent by the bot are recorded.
type Transport struct {
	// OnSend, if set, is called for every stanza the bot sends.
	// The stanzas it returns are delivered to the bot as if they had come from
	// the server.
	OnSend func(s benderjab.Stanza) []benderjab.Stanza

	// SendErr, if set, is returned by every call to Send.
	SendErr error

	mu         sync.Mutex
	queue      []benderjab.Stanza
	sent       []benderjab.Stanza
	closed     int
	terminated bool
	notify     chan struct{}
}

// NewTransport returns an empty transport.
func NewTransport() *Transport {
	return &Transport{notify: make(chan struct{}, 1)}
}

func (t *Transport) wake() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Deliver queues stanzas for the bot.
func (t *Transport) Deliver(s ...benderjab.Stanza) {
	t.mu.Lock()
	t.queue = append(t.queue, s...)
	t.mu.Unlock()
	t.wake()
}

// Terminate ends the session.
// Stanzas already queued are still delivered, after which Process returns
// benderjab.ErrSessionTerminated.
func (t *Transport) Terminate() {
	t.mu.Lock()
	t.terminated = true
	t.mu.Unlock()
	t.wake()
}

// Sent returns the stanzas sent so far.
func (t *Transport) Sent() []benderjab.Stanza {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]benderjab.Stanza, len(t.sent))
	copy(out, t.sent)
	return out
}

// Reset forgets the stanzas sent so far.
func (t *Transport) Reset() {
	t.mu.Lock()
	t.sent = nil
	t.mu.Unlock()
}

// Closed returns the number of times Close was called.
func (t *Transport) Closed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Send implements benderjab.Transport.
func (t *Transport) Send(_ context.Context, s benderjab.Stanza) (string, error) {
	if t.SendErr != nil {
		return "", t.SendErr
	}
	t.mu.Lock()
	t.sent = append(t.sent, s)
	t.mu.Unlock()
	if t.OnSend != nil {
		if resp := t.OnSend(s); len(resp) > 0 {
			t.Deliver(resp...)
		}
	}
	return s.ID, nil
}

func (t *Transport) pop() (s benderjab.Stanza, ok, terminated bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) == 0 {
		return s, false, t.terminated
	}
	s, t.queue = t.queue[0], t.queue[1:]
	return s, true, t.terminated
}

// Process implements benderjab.Transport.
// If stanzas are queued they are all handled and Process returns without
// waiting, otherwise it waits for a delivery until timeout elapses.
func (t *Transport) Process(ctx context.Context, timeout time.Duration, h benderjab.Handler) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		s, ok, terminated := t.pop()
		if ok {
			if err := h.HandleStanza(ctx, s); err != nil {
				return err
			}
			for {
				s, ok, _ = t.pop()
				if !ok {
					return nil
				}
				if err := h.HandleStanza(ctx, s); err != nil {
					return err
				}
			}
		}
		if terminated {
			return benderjab.ErrSessionTerminated
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-t.notify:
		}
	}
}

// Close implements benderjab.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed++
	t.terminated = true
	t.mu.Unlock()
	t.wake()
	return nil
}

// Dialer hands out new Transports.
type Dialer struct {
	// Err, if set, is returned by every call to Dial.
	Err error

	// New, if set, is used to create transports.
	New func() *Transport

	mu         sync.Mutex
	creds      []benderjab.Credentials
	transports []*Transport
}

// Dial implements benderjab.Dialer.
func (d *Dialer) Dial(_ context.Context, creds benderjab.Credentials) (benderjab.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.creds = append(d.creds, creds)
	if d.Err != nil {
		return nil, d.Err
	}
	var t *Transport
	if d.New != nil {
		t = d.New()
	} else {
		t = NewTransport()
	}
	d.transports = append(d.transports, t)
	return t, nil
}

// Credentials returns the credentials of every dial attempt.
func (d *Dialer) Credentials() []benderjab.Credentials {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]benderjab.Credentials, len(d.creds))
	copy(out, d.creds)
	return out
}

// Transports returns every transport handed out so far.
func (d *Dialer) Transports() []*Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Transport, len(d.transports))
	copy(out, d.transports)
	return out
}

// Last returns the most recent transport or nil if none was handed out.
func (d *Dialer) Last() *Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}
