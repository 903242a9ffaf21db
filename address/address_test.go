// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package address_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mellium.im/xmpp/jid"

	"mellium.im/benderjab/address"
)

var parseTests = [...]struct {
	in    string
	class address.Class
	out   string
	err   bool
}{
	0: {in: "user1@example.fake", class: address.Chat, out: "user1@example.fake"},
	1: {in: "user1@example.fake/orchard", class: address.Chat, out: "user1@example.fake/orchard"},
	2: {in: "mailto:juliet@capulet.example", class: address.Mail, out: "mailto:juliet@capulet.example"},
	3: {in: "mailto:juliet@bücher.example", class: address.Mail, out: "mailto:juliet@xn--bcher-kva.example"},
	4: {in: "mailto:not an address", err: true},
	5: {in: "@example.net", err: true},
	6: {in: "   ", err: true},
}

func TestParse(t *testing.T) {
	for i, tc := range parseTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			a, err := address.Parse(tc.in)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.class, a.Class)
			assert.Equal(t, tc.out, a.String())
		})
	}
}

func TestParseListRequireResource(t *testing.T) {
	l, err := address.ParseList("user1@example.fake/resource user2@example.fake/resource", true)
	require.NoError(t, err)
	assert.Len(t, l, 2)

	_, err = address.ParseList("user1@example.fake/resource user2@example.fake", true)
	if !errors.Is(err, address.ErrMissingResource) {
		t.Fatalf("expected ErrMissingResource, got %v", err)
	}

	// Mail addresses never carry a resource and are not subject to the check.
	_, err = address.ParseList("mailto:a@example.net user1@example.fake/resource", true)
	assert.NoError(t, err)
}

func TestParseListEmpty(t *testing.T) {
	l, err := address.ParseList("", false)
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.Empty(t, l)
}

func TestAuthorized(t *testing.T) {
	user1 := jid.MustParse("user1@example.fake")
	user1Res := jid.MustParse("user1@example.fake/phone")
	bad := jid.MustParse("evilhacker@empire.us")

	// A nil list authorizes everyone.
	for _, j := range []jid.JID{user1, user1Res, bad} {
		assert.True(t, address.Authorized(j, nil), "nil list denied %s", j)
	}

	// An empty list denies everyone.
	empty := address.List{}
	for _, j := range []jid.JID{user1, user1Res, bad} {
		assert.False(t, address.Authorized(j, empty), "empty list allowed %s", j)
	}

	l, err := address.ParseList("user1@example.fake other@fake.example mailto:evilhacker@empire.us", false)
	require.NoError(t, err)
	assert.True(t, l.Authorized(user1))
	assert.True(t, l.Authorized(user1Res))
	assert.False(t, l.Authorized(bad))
}

func TestAuthorizedIgnoresListResource(t *testing.T) {
	l, err := address.ParseList("user1@example.fake/desk", true)
	require.NoError(t, err)
	assert.True(t, l.Authorized(jid.MustParse("user1@example.fake/phone")))
}

func TestListString(t *testing.T) {
	const in = "user1@example.fake mailto:a@example.net"
	l, err := address.ParseList(in, false)
	require.NoError(t, err)
	assert.Equal(t, in, l.String())
}
