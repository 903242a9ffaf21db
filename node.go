// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"mellium.im/xmlstream"
)

const nsXML = "http://www.w3.org/XML/1998/namespace"

// Node is a generic XML element.
// It is used to carry stanza payloads that the bot does not need to
// understand, and payloads that other packages (such as rpc) decode
// themselves.
//
// Namespace declarations are not kept as attributes, the namespace of each
// element is recorded in XMLName.Space instead.
type Node struct {
	XMLName xml.Name
	Attr    []xml.Attr
	Text    string
	Nodes   []Node
}

// NewNode returns an element with the given name and children.
func NewNode(name xml.Name, children ...Node) Node {
	return Node{XMLName: name, Nodes: children}
}

// TextNode returns an element that contains only character data.
func TextNode(name xml.Name, text string) Node {
	return Node{XMLName: name, Text: text}
}

// Child returns the first child element with a matching name.
// If either the namespace or the localname of name is empty it matches any
// namespace or localname.
func (n Node) Child(name xml.Name) (Node, bool) {
	for _, c := range n.Nodes {
		if matchName(name, c.XMLName) {
			return c, true
		}
	}
	return Node{}, false
}

// AttrValue returns the value of the first attribute with the given local
// name.
func (n Node) AttrValue(local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// TrimmedText returns the character data of the node without leading and
// trailing white space.
func (n Node) TrimmedText() string {
	return strings.TrimSpace(n.Text)
}

// TokenReader returns a stream of XML tokens that encode the node.
func (n Node) TokenReader() xml.TokenReader {
	inner := make([]xml.TokenReader, 0, len(n.Nodes)+1)
	if n.Text != "" {
		inner = append(inner, xmlstream.Token(xml.CharData(n.Text)))
	}
	for _, c := range n.Nodes {
		inner = append(inner, c.TokenReader())
	}
	return xmlstream.Wrap(
		xmlstream.MultiReader(inner...),
		xml.StartElement{Name: n.XMLName, Attr: n.Attr},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (n Node) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, n.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (n Node) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := n.WriteXML(e)
	if err != nil {
		return err
	}
	return e.Flush()
}

// ReadNode decodes the element started by start from r.
// Reading stops after the matching end element.
// If r is exhausted immediately after the last child of start, the element is
// considered complete.
func ReadNode(r xml.TokenReader, start xml.StartElement) (Node, error) {
	return readNode(r, start, true)
}

func readNode(r xml.TokenReader, start xml.StartElement, top bool) (Node, error) {
	n := Node{XMLName: start.Name, Attr: stripNamespaceDecls(start.Attr)}
	var text strings.Builder
	for {
		tok, err := r.Token()
		if tok == nil && err != nil {
			if errors.Is(err, io.EOF) {
				if top {
					n.Text = text.String()
					return n, nil
				}
				return n, io.ErrUnexpectedEOF
			}
			return n, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := readNode(r, t.Copy(), false)
			if err != nil {
				return n, err
			}
			n.Nodes = append(n.Nodes, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n.Text = text.String()
			return n, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) && top {
				n.Text = text.String()
				return n, nil
			}
			return n, err
		}
	}
}

func stripNamespaceDecls(attrs []xml.Attr) []xml.Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]xml.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func matchName(pattern, name xml.Name) bool {
	return (pattern.Space == "" || pattern.Space == name.Space) &&
		(pattern.Local == "" || pattern.Local == name.Local)
}
