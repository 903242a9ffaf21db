// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package rpc_test

import (
	"encoding/xml"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/benderjab"
	"mellium.im/benderjab/internal/xmpptest"
	"mellium.im/benderjab/rpc"
)

// reparse encodes n and decodes it again as if it had come off the wire.
func reparse(t *testing.T, n benderjab.Node) benderjab.Node {
	t.Helper()
	r, start := xmpptest.Decoder(t, xmpptest.Encode(t, n))
	out, err := benderjab.ReadNode(r, *start)
	require.NoError(t, err)
	return out
}

func TestCallRoundTrip(t *testing.T) {
	call, err := rpc.EncodeCall("sum", 1, 2, []string{"a", "b"})
	require.NoError(t, err)

	got, err := rpc.DecodeCall(reparse(t, call))
	require.NoError(t, err)
	assert.Equal(t, "sum", got.Method)
	want := []interface{}{1, 2, []interface{}{"a", "b"}}
	if diff := cmp.Diff(want, got.Params); diff != "" {
		t.Errorf("wrong params (-want +got):\n%s", diff)
	}
}

func TestValueRoundTrip(t *testing.T) {
	when := time.Date(2007, time.August, 30, 12, 5, 0, 0, time.UTC)
	for i, tc := range [...]struct {
		in  interface{}
		out interface{}
	}{
		0: {in: true, out: true},
		1: {in: int64(-12), out: -12},
		2: {in: 3.5, out: 3.5},
		3: {in: "<escape & me>", out: "<escape & me>"},
		4: {in: when, out: when},
		5: {in: []byte("bender"), out: []byte("bender")},
		6: {
			in:  map[string]interface{}{"name": "fry", "age": 1025},
			out: map[string]interface{}{"name": "fry", "age": 1025},
		},
		7: {in: []interface{}{}, out: []interface{}{}},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			val, err := rpc.EncodeValue(tc.in)
			require.NoError(t, err)
			got, err := rpc.DecodeValue(reparse(t, val))
			require.NoError(t, err)
			if diff := cmp.Diff(tc.out, got); diff != "" {
				t.Errorf("wrong value (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeValueErrors(t *testing.T) {
	for i, v := range []interface{}{
		nil,
		int64(1) << 40,
		map[int]string{1: "one"},
		struct{}{},
		[]interface{}{nil},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			_, err := rpc.EncodeValue(v)
			assert.Error(t, err)
		})
	}
}

func TestDecodeBareString(t *testing.T) {
	r, start := xmpptest.Decoder(t, `<value>plain</value>`)
	n, err := benderjab.ReadNode(r, *start)
	require.NoError(t, err)
	v, err := rpc.DecodeValue(n)
	require.NoError(t, err)
	assert.Equal(t, "plain", v)
}

func TestFaultRoundTrip(t *testing.T) {
	resp := rpc.EncodeFault(&rpc.Fault{Code: 4, String: "Too many parameters."})
	_, err := rpc.DecodeResponse(reparse(t, resp))

	var f *rpc.Fault
	require.True(t, errors.As(err, &f), "wrong error type: %T", err)
	assert.Equal(t, 4, f.Code)
	assert.Equal(t, "Too many parameters.", f.String)
}

func TestResponseRoundTrip(t *testing.T) {
	resp, err := rpc.EncodeResponse("South Dakota")
	require.NoError(t, err)
	values, err := rpc.DecodeResponse(reparse(t, resp))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"South Dakota"}, values)
}

func TestExtractPayload(t *testing.T) {
	call, err := rpc.EncodeCall("add", 1, 2)
	require.NoError(t, err)
	to := jid.MustParse("bender@example.net")

	one := rpc.MakeIQ(to, stanza.SetIQ, call, "1")
	payload, err := rpc.ExtractPayload(one)
	require.NoError(t, err)
	assert.Equal(t, "methodCall", payload.XMLName.Local)

	none := benderjab.NewIQ(to, stanza.SetIQ, benderjab.NewNode(xml.Name{Space: rpc.NS, Local: "query"}))
	two := rpc.MakeIQ(to, stanza.SetIQ, call, "2")
	two.Payload[0].Nodes = append(two.Payload[0].Nodes, call)
	noQuery := benderjab.NewIQ(to, stanza.SetIQ)

	for i, iq := range []benderjab.Stanza{none, two, noQuery} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			_, err := rpc.ExtractPayload(iq)
			assert.ErrorIs(t, err, rpc.ErrProtocol)
			var pe *rpc.ProtocolError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestMakeIQEncoding(t *testing.T) {
	call, err := rpc.EncodeCall("add", 1, 2)
	require.NoError(t, err)
	iq := rpc.MakeIQ(jid.MustParse("bender@example.net/BenderJab"), stanza.SetIQ, call, "42")
	const want = `<iq id="42" to="bender@example.net/BenderJab" type="set"><query xmlns="jabber:iq:rpc"><methodCall><methodName>add</methodName><params><param><value><int>1</int></value></param><param><value><int>2</int></value></param></params></methodCall></query></iq>`
	if got := xmpptest.Encode(t, iq); got != want {
		t.Errorf("wrong encoding:\nwant=%s,\n got=%s", want, got)
	}
}
