// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package rpc

import (
	"encoding/xml"
	"strconv"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/benderjab"
)

// NS is the namespace of RPC queries.
const NS = "jabber:iq:rpc"

var queryName = xml.Name{Space: NS, Local: "query"}

// MakeIQ wraps an XML-RPC payload in an RPC query.
// If id is empty one is assigned when the IQ is sent.
func MakeIQ(to jid.JID, typ stanza.IQType, payload benderjab.Node, id string) benderjab.Stanza {
	iq := benderjab.NewIQ(to, typ, benderjab.NewNode(queryName, payload))
	iq.ID = id
	return iq
}

// ExtractPayload returns the XML-RPC payload of an RPC query.
// The query must contain exactly one element.
func ExtractPayload(iq benderjab.Stanza) (benderjab.Node, error) {
	q, ok := iq.Child(queryName)
	if !ok {
		return benderjab.Node{}, &ProtocolError{Msg: "iq didn't have a query to extract"}
	}
	switch len(q.Nodes) {
	case 0:
		return benderjab.Node{}, &ProtocolError{Msg: "iq didn't have a body to extract"}
	case 1:
		return q.Nodes[0], nil
	}
	return benderjab.Node{}, &ProtocolError{Msg: "too many child nodes"}
}

// ErrorIQ returns an error IQ that echoes body back to the sender along with
// the error condition.
// If code is zero the legacy code attribute is omitted.
func ErrorIQ(to jid.JID, id string, code int, typ stanza.ErrorType, cond stanza.Condition, body benderjab.Node) benderjab.Stanza {
	attr := []xml.Attr{{Name: xml.Name{Local: "type"}, Value: string(typ)}}
	if code != 0 {
		attr = append([]xml.Attr{{Name: xml.Name{Local: "code"}, Value: strconv.Itoa(code)}}, attr...)
	}
	iq := benderjab.NewIQ(to, stanza.ErrorIQ,
		benderjab.NewNode(queryName, body),
		benderjab.Node{
			XMLName: xml.Name{Local: "error"},
			Attr:    attr,
			Nodes: []benderjab.Node{
				benderjab.NewNode(xml.Name{Space: benderjab.NSStanza, Local: string(cond)}),
			},
		},
	)
	iq.ID = id
	return iq
}

// stanzaError extracts the error of an error IQ.
func stanzaError(iq benderjab.Stanza) *StanzaError {
	e := &StanzaError{}
	n, ok := iq.Child(xml.Name{Local: "error"})
	if !ok {
		return e
	}
	e.Code = n.AttrValue("code")
	e.Type = n.AttrValue("type")
	for _, c := range n.Nodes {
		if c.XMLName.Space == benderjab.NSStanza && c.XMLName.Local != "text" {
			e.Condition = c.XMLName.Local
			break
		}
	}
	return e
}
