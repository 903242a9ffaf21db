// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"context"
	"encoding/xml"

	"mellium.im/xmpp/stanza"
)

// Pattern selects stanzas for a handler.
//
// Empty fields act as wildcards.
// Payload is matched against the first element child of the stanza, if either
// the namespace or the localname is left off any namespace or localname will
// be matched.
type Pattern struct {
	Name    string
	Type    string
	Payload xml.Name
}

// Router is a stanza multiplexer.
// It matches each inbound stanza against a list of registered patterns and
// calls the handler for the pattern that most closely matches it.
// Exactly one handler is called for each stanza.
//
// For each candidate type (the stanza type first, then any type) payload
// names are tried in order: the full name, a wildcard namespace, a wildcard
// localname, and then any payload.
// Patterns with an exact stanza type are preferred over wildcard types.
//
// If no pattern matches, the fallback is called.
// The default fallback does nothing.
type Router struct {
	patterns map[Pattern]Handler
	fallback Handler
}

// RouteOption configures a Router.
type RouteOption func(r *Router)

// NewRouter allocates and returns a new Router.
func NewRouter(opt ...RouteOption) *Router {
	r := &Router{}
	for _, o := range opt {
		o(r)
	}
	return r
}

// Route returns an option that calls h for stanzas matching p.
// If a handler already exists for p when the option is applied, the option
// panics.
func Route(p Pattern, h Handler) RouteOption {
	return func(r *Router) {
		if h == nil {
			panic("benderjab: nil handler")
		}
		if _, ok := r.patterns[p]; ok {
			panic("benderjab: multiple registrations for " + p.String())
		}
		if r.patterns == nil {
			r.patterns = make(map[Pattern]Handler)
		}
		r.patterns[p] = h
	}
}

// RouteFunc is like Route but takes a function.
func RouteFunc(p Pattern, h HandlerFunc) RouteOption {
	return Route(p, h)
}

// Fallback sets the handler used when no pattern matches.
func Fallback(h Handler) RouteOption {
	return func(r *Router) {
		r.fallback = h
	}
}

// Handler returns the handler to use for s.
// If no pattern matches, the fallback (or a handler that does nothing) is
// returned and ok will be false.
func (r *Router) Handler(s Stanza) (h Handler, ok bool) {
	var payload *xml.Name
	for _, n := range s.Payload {
		// Error IQs carry the original payload followed by the error, neither
		// is guaranteed to come first so we don't try to match them.
		if s.Name == IQStanza && s.Type == string(stanza.ErrorIQ) {
			break
		}
		name := n.XMLName
		payload = &name
		break
	}

	for _, typ := range [...]string{s.Type, ""} {
		p := Pattern{Name: s.Name, Type: typ}
		if payload != nil {
			for _, name := range [...]xml.Name{
				*payload,
				{Local: payload.Local},
				{Space: payload.Space},
			} {
				p.Payload = name
				if h = r.patterns[p]; h != nil {
					return h, true
				}
			}
		}
		p.Payload = xml.Name{}
		if h = r.patterns[p]; h != nil {
			return h, true
		}
		if typ == "" {
			break
		}
	}

	if r.fallback != nil {
		return r.fallback, false
	}
	return HandlerFunc(func(context.Context, Stanza) error { return nil }), false
}

// HandleStanza dispatches s to the handler whose pattern most closely matches
// it.
func (r *Router) HandleStanza(ctx context.Context, s Stanza) error {
	h, _ := r.Handler(s)
	return h.HandleStanza(ctx, s)
}

func (p Pattern) String() string {
	typ := p.Type
	if typ == "" {
		typ = "*"
	}
	name := p.Name
	if name == "" {
		name = "*"
	}
	return name + "[" + typ + "]{" + p.Payload.Space + "}" + p.Payload.Local
}

// ServiceUnavailable returns the error response to a get or set IQ that
// nothing on this entity can answer.
// For any other stanza ok is false.
func ServiceUnavailable(iq Stanza) (reply Stanza, ok bool) {
	if iq.Name != IQStanza ||
		(iq.Type != string(stanza.GetIQ) && iq.Type != string(stanza.SetIQ)) {
		return Stanza{}, false
	}
	return Stanza{
		Name: IQStanza,
		ID:   iq.ID,
		Type: string(stanza.ErrorIQ),
		To:   iq.From,
		Payload: []Node{
			{
				XMLName: xml.Name{Local: "error"},
				Attr:    []xml.Attr{{Name: xml.Name{Local: "type"}, Value: string(stanza.Cancel)}},
				Nodes: []Node{
					NewNode(xml.Name{Space: NSStanza, Local: string(stanza.ServiceUnavailable)}),
				},
			},
		},
	}, true
}
