// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package benderjab is a framework for writing XMPP chat bots.
//
// A Bot logs in to a server, answers chat messages from authorized users with
// a pluggable Parser, accepts subscription requests, and runs periodic tasks
// between polls of its session.
// Everything happens on a single goroutine: handlers run to completion before
// the next poll, and tasks always run after the handlers for the stanzas
// received during that poll.
//
// The network session itself is provided by a Transport, a production
// implementation backed by mellium.im/xmpp lives in the transport package.
//
//	d := transport.NewDialer(transport.WithLogger(logger))
//	bot := benderjab.New(benderjab.Config{
//		JID:      jid.MustParse("bender@example.net"),
//		Password: pass,
//	}, d, benderjab.WithLogger(logger))
//	err := bot.Run(ctx, 0)
//
// # Authorization
//
// Chat messages are only passed to the parser if the sender's bare JID is on
// the allow-list (see the address package).
// Everybody else receives "Authorization Error." in reply.
// A nil allow-list lets everybody in, an empty one keeps everybody out.
//
// # RPC
//
// The rpc package implements XML-RPC over XMPP (XEP-0009) on top of the
// bot's WaitFor correlation primitive.
package benderjab // import "mellium.im/benderjab"
