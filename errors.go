// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"errors"
	"fmt"

	"mellium.im/xmpp/jid"
)

// Errors returned by the bot.
var (
	// ErrSessionTerminated is returned by a Transport when the underlying
	// session has ended and must be re-established.
	ErrSessionTerminated = errors.New("benderjab: session terminated")

	// ErrNotConnected is returned when sending without a live session.
	ErrNotConnected = errors.New("benderjab: bot isn't connected to the server")

	// ErrConnected is returned when trying to change the identity of a bot
	// that has a live session.
	ErrConnected = errors.New("benderjab: cannot change identity while connected")

	// ErrNoPassword is returned by Logon when no password was configured and
	// no prompt is available.
	ErrNoPassword = errors.New("benderjab: no password configured")

	// ErrWaitTimeout is returned by WaitFor when no response arrives in time.
	ErrWaitTimeout = errors.New("benderjab: timed out waiting for response")

	// ErrDuplicateID is returned by WaitFor when a response with the same id is
	// already being waited on.
	ErrDuplicateID = errors.New("benderjab: id is already awaiting a response")
)

// AuthenticationError is returned when a session could not be established.
// Err holds the last error reported by the transport.
type AuthenticationError struct {
	JID jid.JID
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("benderjab: couldn't authenticate %s: %v", e.JID, e.Err)
}

// Unwrap returns the transport error.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// TaskError is reported when a periodic task fails.
type TaskError struct {
	Index int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("benderjab: task %d failed: %v", e.Index, e.Err)
}

// Unwrap returns the error returned by the task.
func (e *TaskError) Unwrap() error {
	return e.Err
}
