// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package version answers and sends software version queries (XEP-0092).
package version // import "mellium.im/benderjab/version"

import (
	"context"
	"encoding/xml"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/benderjab"
)

const (
	// NS is the XML namespace used by software version queries.
	// It is provided as a convenience.
	NS = "jabber:iq:version"
)

var queryName = xml.Name{Space: NS, Local: "query"}

// Query is the payload of a software version query or response.
type Query struct {
	Name    string
	Version string
	OS      string
}

// Default describes the running program using its build information.
func Default(name string) Query {
	q := Query{Name: name, Version: "(devel)", OS: runtime.GOOS}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		q.Version = info.Main.Version
	}
	return q
}

// Node encodes the query.
// Empty fields are omitted.
func (q Query) Node() benderjab.Node {
	n := benderjab.NewNode(queryName)
	if q.Name != "" {
		n.Nodes = append(n.Nodes, benderjab.TextNode(xml.Name{Local: "name"}, q.Name))
	}
	if q.Version != "" {
		n.Nodes = append(n.Nodes, benderjab.TextNode(xml.Name{Local: "version"}, q.Version))
	}
	if q.OS != "" {
		n.Nodes = append(n.Nodes, benderjab.TextNode(xml.Name{Local: "os"}, q.OS))
	}
	return n
}

// Parse decodes a query payload.
func Parse(n benderjab.Node) Query {
	var q Query
	for _, c := range n.Nodes {
		switch c.XMLName.Local {
		case "name":
			q.Name = c.TrimmedText()
		case "version":
			q.Version = c.TrimmedText()
		case "os":
			q.OS = c.TrimmedText()
		}
	}
	return q
}

// Handle makes b answer version queries with q.
func Handle(b *benderjab.Bot, q Query) {
	b.HandleFunc(benderjab.Pattern{
		Name:    benderjab.IQStanza,
		Type:    string(stanza.GetIQ),
		Payload: queryName,
	}, func(ctx context.Context, iq benderjab.Stanza) error {
		resp := benderjab.NewIQ(iq.From, stanza.ResultIQ, q.Node())
		resp.ID = iq.ID
		_, err := b.SendStanza(ctx, resp)
		return err
	})
}

// Get requests the software version of the provided entity.
// It blocks until a response is received or timeout elapses.
func Get(ctx context.Context, b *benderjab.Bot, to jid.JID, timeout time.Duration) (Query, error) {
	id, err := b.SendStanza(ctx, benderjab.NewIQ(to, stanza.GetIQ, benderjab.NewNode(queryName)))
	if err != nil {
		return Query{}, err
	}
	resp, err := b.WaitFor(ctx, id, timeout)
	if err != nil {
		return Query{}, err
	}
	if resp.Type == string(stanza.ErrorIQ) {
		return Query{}, fmt.Errorf("version: %s answered with an error", to)
	}
	n, ok := resp.Child(queryName)
	if !ok {
		return Query{}, fmt.Errorf("version: %s answered without a query", to)
	}
	return Parse(n), nil
}
