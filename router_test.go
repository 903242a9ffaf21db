// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab_test

import (
	"context"
	"encoding/xml"
	"errors"
	"strconv"
	"testing"

	"mellium.im/benderjab"
)

var passTest = errors.New("benderjab_test: PASSED")

var passHandler benderjab.HandlerFunc = func(context.Context, benderjab.Stanza) error {
	return passTest
}

var failHandler benderjab.HandlerFunc = func(context.Context, benderjab.Stanza) error {
	return errors.New("benderjab_test: FAILED")
}

var (
	exampleQuery = benderjab.NewNode(xml.Name{Space: "urn:example", Local: "query"})
	otherQuery   = benderjab.NewNode(xml.Name{Space: "urn:other", Local: "query"})
)

var routerTests = [...]struct {
	r *benderjab.Router
	s benderjab.Stanza
}{
	0: {
		r: benderjab.NewRouter(
			benderjab.Route(benderjab.Pattern{Name: "iq"}, passHandler),
			benderjab.Route(benderjab.Pattern{Name: "presence"}, failHandler),
		),
		s: benderjab.Stanza{Name: "iq", Type: "get"},
	},
	1: {
		r: benderjab.NewRouter(
			benderjab.Route(benderjab.Pattern{Name: "message"}, failHandler),
			benderjab.Route(benderjab.Pattern{Name: "message", Type: "chat"}, passHandler),
		),
		s: benderjab.Stanza{Name: "message", Type: "chat"},
	},
	2: {
		r: benderjab.NewRouter(
			benderjab.Route(benderjab.Pattern{Name: "message"}, passHandler),
			benderjab.Route(benderjab.Pattern{Name: "message", Type: "chat"}, failHandler),
		),
		s: benderjab.Stanza{Name: "message", Type: "normal"},
	},
	3: {
		r: benderjab.NewRouter(
			benderjab.Route(benderjab.Pattern{Name: "iq", Type: "set"}, failHandler),
			benderjab.Route(benderjab.Pattern{Name: "iq", Type: "set", Payload: exampleQuery.XMLName}, passHandler),
		),
		s: benderjab.Stanza{Name: "iq", Type: "set", Payload: []benderjab.Node{exampleQuery}},
	},
	4: {
		r: benderjab.NewRouter(
			benderjab.Route(benderjab.Pattern{Name: "iq", Type: "set", Payload: xml.Name{Local: "query"}}, passHandler),
			benderjab.Route(benderjab.Pattern{Name: "iq", Type: "set", Payload: xml.Name{Space: "urn:example"}}, failHandler),
		),
		s: benderjab.Stanza{Name: "iq", Type: "set", Payload: []benderjab.Node{exampleQuery}},
	},
	5: {
		r: benderjab.NewRouter(
			benderjab.Route(benderjab.Pattern{Name: "iq", Type: "set", Payload: xml.Name{Space: "urn:example"}}, passHandler),
			benderjab.Route(benderjab.Pattern{Name: "iq", Type: "set"}, failHandler),
		),
		s: benderjab.Stanza{Name: "iq", Type: "set", Payload: []benderjab.Node{exampleQuery}},
	},
	6: {
		r: benderjab.NewRouter(
			benderjab.Route(benderjab.Pattern{Name: "iq", Type: "set", Payload: exampleQuery.XMLName}, failHandler),
			benderjab.Route(benderjab.Pattern{Name: "iq", Payload: otherQuery.XMLName}, passHandler),
		),
		s: benderjab.Stanza{Name: "iq", Type: "set", Payload: []benderjab.Node{otherQuery}},
	},
	7: {
		r: benderjab.NewRouter(
			benderjab.Route(benderjab.Pattern{Name: "iq", Type: "error", Payload: exampleQuery.XMLName}, failHandler),
			benderjab.Route(benderjab.Pattern{Name: "iq", Type: "error"}, passHandler),
		),
		s: benderjab.Stanza{Name: "iq", Type: "error", Payload: []benderjab.Node{exampleQuery}},
	},
	8: {
		r: benderjab.NewRouter(
			benderjab.Route(benderjab.Pattern{Name: "message"}, failHandler),
			benderjab.Fallback(passHandler),
		),
		s: benderjab.Stanza{Name: "presence"},
	},
}

func TestRouter(t *testing.T) {
	for i, tc := range routerTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			err := tc.r.HandleStanza(context.Background(), tc.s)
			if err != passTest {
				t.Fatalf("unexpected error: `%v'", err)
			}
		})
	}
}

func TestRouterNoMatch(t *testing.T) {
	r := benderjab.NewRouter(benderjab.Route(benderjab.Pattern{Name: "message"}, failHandler))
	h, ok := r.Handler(benderjab.Stanza{Name: "presence"})
	if ok {
		t.Fatal("expected no match")
	}
	if err := h.HandleStanza(context.Background(), benderjab.Stanza{}); err != nil {
		t.Errorf("default handler returned error: %v", err)
	}
}

func TestRouterPanics(t *testing.T) {
	for name, opts := range map[string][]benderjab.RouteOption{
		"nil": {benderjab.Route(benderjab.Pattern{Name: "iq"}, nil)},
		"duplicate": {
			benderjab.Route(benderjab.Pattern{Name: "iq"}, passHandler),
			benderjab.Route(benderjab.Pattern{Name: "iq"}, passHandler),
		},
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic")
				}
			}()
			benderjab.NewRouter(opts...)
		})
	}
}

func TestServiceUnavailable(t *testing.T) {
	for i, tc := range [...]struct {
		typ string
		ok  bool
	}{
		0: {typ: "get", ok: true},
		1: {typ: "set", ok: true},
		2: {typ: "result"},
		3: {typ: "error"},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			_, ok := benderjab.ServiceUnavailable(benderjab.Stanza{Name: "iq", Type: tc.typ, ID: "1"})
			if ok != tc.ok {
				t.Errorf("wrong result: want=%t, got=%t", tc.ok, ok)
			}
		})
	}
	if _, ok := benderjab.ServiceUnavailable(benderjab.Stanza{Name: "message", Type: "get"}); ok {
		t.Error("messages should never be answered with an IQ error")
	}
}
