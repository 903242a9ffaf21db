// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strings"
	"text/template"

	"mellium.im/xmpp/jid"
)

// Default file name templates.
const (
	DefaultPIDTemplate = "/tmp/{{.JID}}.{{.Resource}}.pid"
	DefaultLogTemplate = "/tmp/{{.JID}}.{{.Resource}}.log"
)

// Names are the values available to file name templates.
type Names struct {
	// JID is the bare JID.
	JID      string
	Resource string
	Node     string
	Domain   string
}

// NamesFor returns the template values for a bot.
func NamesFor(j jid.JID, resource string) Names {
	return Names{
		JID:      j.Bare().String(),
		Resource: resource,
		Node:     j.Localpart(),
		Domain:   j.Domainpart(),
	}
}

// Expand executes the file name template tmpl.
// Referring to a value that does not exist is an error.
func Expand(tmpl string, n Names) (string, error) {
	t, err := template.New("path").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("config: bad template %q: %w", tmpl, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, n); err != nil {
		return "", fmt.Errorf("config: expanding %q: %w", tmpl, err)
	}
	return b.String(), nil
}

// PIDPath returns the pid file of the bot described by n.
func (p Profile) PIDPath(n Names) (string, error) {
	tmpl := p.PID
	if tmpl == "" {
		tmpl = DefaultPIDTemplate
	}
	return Expand(tmpl, n)
}

// LogPath returns the log file of the bot described by n.
func (p Profile) LogPath(n Names) (string, error) {
	tmpl := p.Log
	if tmpl == "" {
		tmpl = DefaultLogTemplate
	}
	return Expand(tmpl, n)
}
