// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
	"mellium.im/xmpp/jid"
)

// PasswordPrompt asks for the password of j.
type PasswordPrompt func(ctx context.Context, j jid.JID) (string, error)

// ErrNotTerminal is returned by TerminalPrompt when the input is not a
// terminal.
var ErrNotTerminal = errors.New("benderjab: password prompt requires a terminal")

// TerminalPrompt returns a prompt that reads a password from in without
// echoing it, printing the question to out.
func TerminalPrompt(in *os.File, out io.Writer) PasswordPrompt {
	return func(_ context.Context, j jid.JID) (string, error) {
		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			return "", ErrNotTerminal
		}
		fmt.Fprintf(out, "jabber password for %s: ", j.Bare())
		pass, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(pass), nil
	}
}
