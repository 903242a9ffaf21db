// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mellium.im/xmpp/jid"
)

// Reply is the answer to a chat message.
// It either carries text to send back, or nothing at all.
type Reply struct {
	text     string
	suppress bool
}

// Text returns a reply that sends s back to the sender.
func Text(s string) Reply {
	return Reply{text: s}
}

// Suppressed is a reply that sends nothing.
var Suppressed = Reply{suppress: true}

// Body returns the text of the reply and false if the reply is suppressed.
func (r Reply) Body() (string, bool) {
	return r.text, !r.suppress
}

// A Parser answers chat messages from authorized users.
type Parser interface {
	Reply(ctx context.Context, body string, from jid.JID) (Reply, error)
}

// The ParserFunc type is an adapter to allow the use of ordinary functions as
// parsers.
type ParserFunc func(ctx context.Context, body string, from jid.JID) (Reply, error)

// Reply calls f(ctx, body, from).
func (f ParserFunc) Reply(ctx context.Context, body string, from jid.JID) (Reply, error) {
	return f(ctx, body, from)
}

// DefaultParser knows a handful of commands.
// Commands are matched case sensitively at the start of the message:
//
//	help    a not very helpful message
//	time    the local time of the server
//	uptime  the output of uptime(1)
type DefaultParser struct {
	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time

	// Uptime returns the system uptime. If nil, uptime(1) is executed.
	Uptime func(ctx context.Context) (string, error)
}

// Reply implements Parser.
func (p DefaultParser) Reply(ctx context.Context, body string, _ jid.JID) (Reply, error) {
	switch {
	case strings.HasPrefix(body, "help"):
		return Text("I'm sooo not helpful"), nil
	case strings.HasPrefix(body, "time"):
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		return Text("Server time is " + now().Format(time.ANSIC)), nil
	case strings.HasPrefix(body, "uptime"):
		uptime := runUptime
		if p.Uptime != nil {
			uptime = p.Uptime
		}
		out, err := uptime(ctx)
		if err != nil {
			return Reply{}, err
		}
		return Text(out), nil
	}
	return Text(`I have no idea what "` + body + `" means.`), nil
}

func runUptime(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "uptime").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("uptime: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}
