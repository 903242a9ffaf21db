// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package remind lets users ask the bot to message them again later.
//
// A Queue is both a periodic task, which delivers reminders once they are due,
// and the source of a parser that understands the remindme command:
//
//	remindme 30 take the pizza out
//
// Reminders are delivered from the event loop so they may arrive up to one
// poll interval late.
package remind // import "mellium.im/benderjab/remind"

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"mellium.im/xmpp/jid"

	"mellium.im/benderjab"
)

// Command is the chat command that schedules a reminder.
const Command = "remindme"

// Usage is the reply sent when a remindme command has no delay.
const Usage = "usage: remindme <seconds> <message>"

// Prefix is prepended to the text of every delivered reminder.
const Prefix = "Reminder:"

var delay = regexp.MustCompile("[0-9]+")

const maxSeconds = int(math.MaxInt64 / int64(time.Second))

// Reminder is a message waiting to be delivered.
type Reminder struct {
	To   jid.JID
	Text string
	Due  time.Time
}

// Queue holds pending reminders.
// The zero value is ready to use.
type Queue struct {
	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time

	mu      sync.Mutex
	pending []Reminder
}

func (q *Queue) now() time.Time {
	if q.Now != nil {
		return q.Now()
	}
	return time.Now()
}

// Add schedules text to be sent to to after d has elapsed.
func (q *Queue) Add(to jid.JID, text string, d time.Duration) Reminder {
	r := Reminder{To: to, Text: text, Due: q.now().Add(d)}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, r)
	return r
}

// Len returns the number of reminders that have not been delivered yet.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Due removes and returns every reminder that is due at t in the order they
// were added.
func (q *Queue) Due(t time.Time) []Reminder {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []Reminder
	kept := q.pending[:0]
	for _, r := range q.pending {
		if r.Due.After(t) {
			kept = append(kept, r)
			continue
		}
		due = append(due, r)
	}
	q.pending = kept
	return due
}

func (q *Queue) requeue(rs []Reminder) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(append([]Reminder(nil), rs...), q.pending...)
}

// Run implements benderjab.Task.
// Each reminder that is due is sent as a chat message.
// If sending fails, the reminder and any after it stay queued for the next
// cycle.
func (q *Queue) Run(ctx context.Context, b *benderjab.Bot) error {
	due := q.Due(q.now())
	if len(due) == 0 {
		return nil
	}
	logger := b.Logger()
	for i, r := range due {
		logger.Debug().Stringer("to", r.To).Msg("delivering reminder")
		if _, err := b.SendStanza(ctx, benderjab.NewMessage(r.To, Prefix+r.Text)); err != nil {
			q.requeue(due[i:])
			return fmt.Errorf("remind: delivering to %s: %w", r.To, err)
		}
	}
	return nil
}

// Parser returns a parser that schedules reminders for messages starting with
// Command and passes everything else to next.
// If next is nil, benderjab.DefaultParser is used.
func (q *Queue) Parser(next benderjab.Parser) benderjab.Parser {
	if next == nil {
		next = benderjab.DefaultParser{}
	}
	return benderjab.ParserFunc(func(ctx context.Context, body string, from jid.JID) (benderjab.Reply, error) {
		if !strings.HasPrefix(body, Command) {
			return next.Reply(ctx, body, from)
		}
		return q.schedule(body, from), nil
	})
}

func (q *Queue) schedule(body string, from jid.JID) benderjab.Reply {
	loc := delay.FindStringIndex(body)
	if loc == nil {
		return benderjab.Text(Usage)
	}
	seconds, err := strconv.Atoi(body[loc[0]:loc[1]])
	if err != nil || seconds > maxSeconds {
		return benderjab.Text(Usage)
	}
	text := strings.TrimSpace(body[loc[1]:])
	q.Add(from, text, time.Duration(seconds)*time.Second)
	return benderjab.Text("I will remind you in " + strconv.Itoa(seconds) + " seconds.")
}
