// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package rpc

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrProtocol is wrapped by errors about malformed RPC stanzas.
	ErrProtocol = errors.New("rpc: protocol error")

	// ErrTimeout is wrapped by errors returned when no response arrived in time.
	ErrTimeout = errors.New("rpc: timed out waiting for response")
)

// ProtocolError is returned when an RPC payload could not be extracted from
// an IQ.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return "rpc: " + e.Msg
}

// Unwrap returns ErrProtocol.
func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}

// TimeoutError is returned by Call when no response arrives in time.
type TimeoutError struct {
	ID      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rpc: message %s timed out after %v", e.ID, e.Timeout)
}

// Unwrap returns ErrTimeout.
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// StanzaError is returned by Call when the remote entity answers with an
// error IQ instead of a method response.
type StanzaError struct {
	Code      string
	Type      string
	Condition string
}

func (e *StanzaError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rpc: remote error %s (%s %s)", e.Condition, e.Type, e.Code)
	}
	return fmt.Sprintf("rpc: remote error %s (%s)", e.Condition, e.Type)
}

// Fault is an XML-RPC fault.
// It is returned by Call when the remote method failed, and methods
// registered on a Dispatcher may return one to control the fault sent back.
type Fault struct {
	Code   int
	String string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("rpc: fault %d: %s", f.Code, f.String)
}
