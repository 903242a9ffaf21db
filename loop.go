// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// Task is work performed once per iteration of the event loop.
type Task interface {
	Run(ctx context.Context, b *Bot) error
}

// The TaskFunc type is an adapter to allow the use of ordinary functions as
// tasks.
type TaskFunc func(ctx context.Context, b *Bot) error

// Run calls f(ctx, b).
func (f TaskFunc) Run(ctx context.Context, b *Bot) error {
	return f(ctx, b)
}

// AddTask registers t to run after every poll.
// Tasks run in the order they were added.
func (b *Bot) AddTask(t Task) {
	b.tasks = append(b.tasks, t)
}

// Step performs a single iteration of the event loop.
//
// It waits up to the poll timeout for inbound stanzas and handles them, then
// runs each task once.
// If the session has ended (or was never started) the bot logs on again
// before running the tasks.
// Step reports false if ctx was canceled, or if logging on failed in which
// case the error is also returned.
func (b *Bot) Step(ctx context.Context) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}
	if b.transport == nil {
		if err := b.reconnect(ctx); err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			return false, err
		}
	}

	err := b.transport.Process(ctx, b.cfg.PollTimeout, HandlerFunc(b.dispatch))
	switch {
	case errors.Is(err, ErrSessionTerminated):
		b.logger.Warn().Msg("session terminated, logging on again")
		if err := b.reconnect(ctx); err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			return false, err
		}
	case ctx.Err() != nil:
		return false, nil
	case err != nil:
		return false, err
	}

	b.runTasks(ctx)
	return true, nil
}

// Run steps through the event loop until ctx is canceled or, if total is
// positive, until more than total has elapsed.
// Elapsed time is the wall clock time between iterations, so slow polls
// count in full.
func (b *Bot) Run(ctx context.Context, total time.Duration) error {
	var elapsed time.Duration
	last := b.now()
	for {
		ok, err := b.Step(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if total <= 0 {
			continue
		}
		now := b.now()
		elapsed += now.Sub(last)
		last = now
		if elapsed > total {
			return nil
		}
	}
}

func (b *Bot) runTasks(ctx context.Context) {
	for i, t := range b.tasks {
		if err := runTask(ctx, b, t); err != nil {
			b.metrics.TaskFailures.Inc()
			b.logger.Error().Err(&TaskError{Index: i, Err: err}).Msg("task failed, skipping the rest of this cycle")
			return
		}
	}
}

func runTask(ctx context.Context, b *Bot, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return t.Run(ctx, b)
}
