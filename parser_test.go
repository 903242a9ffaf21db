// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"mellium.im/xmpp/jid"

	"mellium.im/benderjab"
)

func TestDefaultParser(t *testing.T) {
	p := benderjab.DefaultParser{
		Now: func() time.Time {
			return time.Date(2007, time.March, 4, 15, 4, 5, 0, time.UTC)
		},
		Uptime: func(context.Context) (string, error) {
			return " 15:04:05 up 3 days,  2 users,  load average: 0.00, 0.01, 0.05", nil
		},
	}
	for i, tc := range [...]struct {
		in  string
		out string
	}{
		0: {in: "help", out: "I'm sooo not helpful"},
		1: {in: "help me", out: "I'm sooo not helpful"},
		2: {in: "xyz", out: `I have no idea what "xyz" means.`},
		3: {in: "Help", out: `I have no idea what "Help" means.`},
		4: {in: "time", out: "Server time is Sun Mar  4 15:04:05 2007"},
		5: {in: "uptime", out: " 15:04:05 up 3 days,  2 users,  load average: 0.00, 0.01, 0.05"},
		6: {in: "what time is it", out: `I have no idea what "what time is it" means.`},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			r, err := p.Reply(context.Background(), tc.in, jid.MustParse("user1@example.net"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out, ok := r.Body()
			if !ok {
				t.Fatal("reply was unexpectedly suppressed")
			}
			if out != tc.out {
				t.Errorf("wrong reply: want=%q, got=%q", tc.out, out)
			}
		})
	}
}

func TestDefaultParserUptimeError(t *testing.T) {
	errUptime := errors.New("no uptime here")
	p := benderjab.DefaultParser{
		Uptime: func(context.Context) (string, error) {
			return "", errUptime
		},
	}
	_, err := p.Reply(context.Background(), "uptime", jid.JID{})
	if !errors.Is(err, errUptime) {
		t.Errorf("unexpected error: want=%v, got=%v", errUptime, err)
	}
}

func TestReply(t *testing.T) {
	if _, ok := benderjab.Suppressed.Body(); ok {
		t.Error("suppressed reply should not have a body")
	}
	if body, ok := benderjab.Text("").Body(); !ok || body != "" {
		t.Errorf("empty text reply should still be sent, got %q (%t)", body, ok)
	}
}
