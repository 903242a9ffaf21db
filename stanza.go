// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"encoding/xml"
	"fmt"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// Stanza names.
const (
	MessageStanza  = "message"
	PresenceStanza = "presence"
	IQStanza       = "iq"
)

// Namespaces used by the bot.
const (
	NSClient = "jabber:client"
	NSRoster = "jabber:iq:roster"
	NSStanza = "urn:ietf:params:xml:ns:xmpp-stanzas"
)

// Stanza is a message, presence, or IQ along with its payload.
// Stanzas are fully buffered so that handlers can run on the event loop after
// the transport has finished reading them off the wire.
type Stanza struct {
	Name    string
	ID      string
	Type    string
	To      jid.JID
	From    jid.JID
	Lang    string
	Payload []Node
}

// NewMessage returns a chat message containing body.
func NewMessage(to jid.JID, body string) Stanza {
	return Stanza{
		Name: MessageStanza,
		Type: string(stanza.ChatMessage),
		To:   to,
		Payload: []Node{
			TextNode(xml.Name{Local: "body"}, body),
		},
	}
}

// NewPresence returns a presence of the given type.
// If to is the zero value the presence is broadcast by the server.
func NewPresence(to jid.JID, typ stanza.PresenceType) Stanza {
	return Stanza{
		Name: PresenceStanza,
		Type: string(typ),
		To:   to,
	}
}

// NewIQ returns an IQ of the given type carrying payload.
func NewIQ(to jid.JID, typ stanza.IQType, payload ...Node) Stanza {
	return Stanza{
		Name:    IQStanza,
		Type:    string(typ),
		To:      to,
		Payload: payload,
	}
}

// Body returns the text of the first body element and whether one was
// present.
func (s Stanza) Body() (string, bool) {
	n, ok := s.Child(xml.Name{Local: "body"})
	if !ok {
		return "", false
	}
	return n.Text, true
}

// Child returns the first payload element matching name.
// Empty parts of name act as wildcards.
func (s Stanza) Child(name xml.Name) (Node, bool) {
	for _, n := range s.Payload {
		if matchName(name, n.XMLName) {
			return n, true
		}
	}
	return Node{}, false
}

// IsResponse reports whether s is an IQ of type result or error.
func (s Stanza) IsResponse() bool {
	return s.Name == IQStanza &&
		(s.Type == string(stanza.ResultIQ) || s.Type == string(stanza.ErrorIQ))
}

// StartElement returns the start token of the stanza.
func (s Stanza) StartElement() xml.StartElement {
	attr := make([]xml.Attr, 0, 5)
	if s.ID != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: s.ID})
	}
	if !s.To.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "to"}, Value: s.To.String()})
	}
	if !s.From.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "from"}, Value: s.From.String()})
	}
	if s.Lang != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Space: nsXML, Local: "lang"}, Value: s.Lang})
	}
	if s.Type != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: s.Type})
	}
	return xml.StartElement{Name: xml.Name{Local: s.Name}, Attr: attr}
}

// TokenReader returns a stream of XML tokens that encode the stanza.
func (s Stanza) TokenReader() xml.TokenReader {
	inner := make([]xml.TokenReader, 0, len(s.Payload))
	for _, n := range s.Payload {
		inner = append(inner, n.TokenReader())
	}
	return xmlstream.Wrap(xmlstream.MultiReader(inner...), s.StartElement())
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (s Stanza) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, s.TokenReader())
}

// DecodeStanza reads the stanza started by start from r.
func DecodeStanza(r xml.TokenReader, start *xml.StartElement) (Stanza, error) {
	switch start.Name.Local {
	case MessageStanza, PresenceStanza, IQStanza:
	default:
		return Stanza{}, fmt.Errorf("benderjab: %s is not a stanza", start.Name.Local)
	}
	n, err := ReadNode(r, start.Copy())
	if err != nil {
		return Stanza{}, err
	}
	s := Stanza{
		Name:    start.Name.Local,
		Payload: n.Nodes,
	}
	for _, a := range start.Attr {
		switch {
		case a.Name.Local == "id":
			s.ID = a.Value
		case a.Name.Local == "type":
			s.Type = a.Value
		case a.Name.Local == "lang" && (a.Name.Space == nsXML || a.Name.Space == "xml"):
			s.Lang = a.Value
		case a.Name.Local == "to":
			s.To, err = jid.Parse(a.Value)
		case a.Name.Local == "from":
			s.From, err = jid.Parse(a.Value)
		}
		if err != nil {
			return s, fmt.Errorf("benderjab: bad %s attribute on %s: %w", a.Name.Local, s.Name, err)
		}
	}
	return s, nil
}
