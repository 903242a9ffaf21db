// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest

import (
	"encoding/xml"
	"strings"
	"testing"

	"mellium.im/xmlstream"
)

// Encode writes the tokens of w to a string.
// Encoding errors fail the test immediately.
func Encode(t testing.TB, w xmlstream.WriterTo) string {
	t.Helper()
	var buf strings.Builder
	e := xml.NewEncoder(&buf)
	if _, err := w.WriteXML(e); err != nil {
		t.Fatalf("error encoding tokens: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("error flushing tokens: %v", err)
	}
	return buf.String()
}

// Decoder returns a token reader for s positioned after the first start
// element, along with that element.
// It fails the test immediately if s does not start with an element.
func Decoder(t testing.TB, s string) (xml.TokenReader, *xml.StartElement) {
	t.Helper()
	d := xml.NewDecoder(strings.NewReader(s))
	for {
		tok, err := d.Token()
		if err != nil {
			t.Fatalf("error finding start element in %q: %v", s, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return d, &start
		}
	}
}
