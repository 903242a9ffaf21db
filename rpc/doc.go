// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package rpc implements XML-RPC over XMPP as described in XEP-0009.
//
// Method calls are carried in set IQs with a jabber:iq:rpc query, responses
// in result IQs with the same id.
// A Client makes calls using the bot's WaitFor correlation primitive, so a
// call blocks the event loop until the response arrives or the call times
// out.
// A Dispatcher answers calls made to the bot.
package rpc // import "mellium.im/benderjab/rpc"
