// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mellium.im/xmpp/jid"

	"mellium.im/benderjab"
	"mellium.im/benderjab/internal/xmpptest"
)

func TestTransportDeliver(t *testing.T) {
	tr := xmpptest.NewTransport()
	to := jid.MustParse("me@example.net")
	tr.Deliver(benderjab.NewMessage(to, "one"), benderjab.NewMessage(to, "two"))

	var got []string
	err := tr.Process(context.Background(), time.Second, benderjab.HandlerFunc(func(_ context.Context, s benderjab.Stanza) error {
		body, _ := s.Body()
		got = append(got, body)
		return nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("unexpected stanzas handled: %v", got)
	}
}

func TestTransportTimeout(t *testing.T) {
	tr := xmpptest.NewTransport()
	start := time.Now()
	err := tr.Process(context.Background(), 10*time.Millisecond, benderjab.HandlerFunc(func(context.Context, benderjab.Stanza) error {
		t.Error("handler called without any stanzas")
		return nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := time.Since(start); d < 10*time.Millisecond {
		t.Errorf("returned before timeout after %v", d)
	}
}

func TestTransportTerminate(t *testing.T) {
	tr := xmpptest.NewTransport()
	tr.Terminate()
	err := tr.Process(context.Background(), time.Second, benderjab.HandlerFunc(func(context.Context, benderjab.Stanza) error {
		return nil
	}))
	if !errors.Is(err, benderjab.ErrSessionTerminated) {
		t.Errorf("unexpected error: want=%v, got=%v", benderjab.ErrSessionTerminated, err)
	}
}

func TestTransportOnSend(t *testing.T) {
	tr := xmpptest.NewTransport()
	tr.OnSend = func(s benderjab.Stanza) []benderjab.Stanza {
		s.To, s.From = s.From, s.To
		return []benderjab.Stanza{s}
	}
	s := benderjab.NewMessage(jid.MustParse("you@example.net"), "echo")
	s.ID = "123"
	id, err := tr.Send(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "123" {
		t.Errorf("wrong id: want=123, got=%s", id)
	}
	if n := len(tr.Sent()); n != 1 {
		t.Errorf("wrong number of sent stanzas: want=1, got=%d", n)
	}
	var echoed bool
	err = tr.Process(context.Background(), time.Second, benderjab.HandlerFunc(func(_ context.Context, s benderjab.Stanza) error {
		echoed = s.ID == "123"
		return nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !echoed {
		t.Error("expected the reply from OnSend to be delivered")
	}
}
