// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"mellium.im/xmpp/jid"
)

// DefaultSMTPPort is used by SMTPMailer when no port is set.
const DefaultSMTPPort = 25

// A Mailer delivers text to mail addresses.
type Mailer interface {
	Mail(ctx context.Context, from jid.JID, to, body string) error
}

// SMTPMailer sends mail through an SMTP relay without authentication.
type SMTPMailer struct {
	Host string
	Port int

	// From is the envelope sender. If empty the bare JID of the bot is used.
	From string
}

// Mail implements Mailer.
func (m SMTPMailer) Mail(ctx context.Context, from jid.JID, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sender := m.From
	if sender == "" {
		sender = from.Bare().String()
	}
	port := m.Port
	if port == 0 {
		port = DefaultSMTPPort
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", sender)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: message from %s\r\n", from.Bare())
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := net.JoinHostPort(m.Host, strconv.Itoa(port))
	if err := smtp.SendMail(addr, nil, sender, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("benderjab: mailing %s: %w", to, err)
	}
	return nil
}
