// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"mellium.im/xmpp/stanza"

	"mellium.im/benderjab"
)

const faultCode = 1

// Func is a method that can be called remotely.
// Returning a *Fault controls the fault sent to the caller, any other error
// is sent as a fault with code 1.
type Func func(ctx context.Context, args []interface{}) (interface{}, error)

// Dispatcher answers method calls sent to a bot.
//
// Calls from senders that are not on the bot's allow-list are refused with a
// forbidden error.
type Dispatcher struct {
	bot *benderjab.Bot

	mu    sync.RWMutex
	funcs map[string]Func
}

// NewDispatcher returns a dispatcher that handles RPC queries received by b.
func NewDispatcher(b *benderjab.Bot) *Dispatcher {
	d := &Dispatcher{
		bot:   b,
		funcs: make(map[string]Func),
	}
	b.Handle(benderjab.Pattern{
		Name:    benderjab.IQStanza,
		Type:    string(stanza.SetIQ),
		Payload: queryName,
	}, d)
	return d
}

// Register makes f callable as name.
// Registering a name twice replaces the earlier method.
func (d *Dispatcher) Register(name string, f Func) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.funcs[name] = f
}

// Methods returns the names of the registered methods in sorted order.
func (d *Dispatcher) Methods() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.funcs))
	for name := range d.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleStanza implements benderjab.Handler.
func (d *Dispatcher) HandleStanza(ctx context.Context, iq benderjab.Stanza) error {
	logger := d.bot.Logger().With().
		Str("component", "rpc").
		Str("from", iq.From.String()).
		Str("id", iq.ID).
		Logger()

	payload, err := ExtractPayload(iq)
	if err != nil {
		logger.Warn().Err(err).Msg("dropping malformed rpc query")
		return nil
	}

	if !d.bot.IsAuthorized(iq.From) {
		logger.Info().Msg("unauthorized rpc call")
		d.bot.Metrics().Unauthorized.Inc()
		_, err = d.bot.SendStanza(ctx, ErrorIQ(iq.From, iq.ID, 503, stanza.Auth, stanza.Forbidden, payload))
		return err
	}

	resp := d.dispatch(ctx, payload)
	_, err = d.bot.SendStanza(ctx, MakeIQ(iq.From, stanza.ResultIQ, resp, iq.ID))
	return err
}

func (d *Dispatcher) dispatch(ctx context.Context, payload benderjab.Node) benderjab.Node {
	call, err := DecodeCall(payload)
	if err != nil {
		return EncodeFault(toFault(err))
	}
	d.mu.RLock()
	f, ok := d.funcs[call.Method]
	d.mu.RUnlock()
	if !ok {
		return EncodeFault(&Fault{Code: faultCode, String: fmt.Sprintf("method %q is not supported", call.Method)})
	}

	result, err := d.invoke(ctx, f, call)
	if err != nil {
		return EncodeFault(toFault(err))
	}
	resp, err := EncodeResponse(result)
	if err != nil {
		return EncodeFault(toFault(err))
	}
	return resp
}

func (d *Dispatcher) invoke(ctx context.Context, f Func, call Call) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger := d.bot.Logger()
			logger.Error().
				Str("method", call.Method).
				Bytes("stack", debug.Stack()).
				Msgf("rpc method panicked: %v", r)
			err = fmt.Errorf("%v", r)
		}
	}()
	return f(ctx, call.Params)
}

func toFault(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return &Fault{Code: faultCode, String: err.Error()}
}
