// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Option configures a Bot.
type Option func(*Bot)

// WithParser sets the parser used to answer chat messages.
func WithParser(p Parser) Option {
	return func(b *Bot) {
		b.SetParser(p)
	}
}

// WithLogger sets the logger used by the bot.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bot) {
		b.logger = l
	}
}

// WithMailer sets the mailer used to deliver messages to mail addresses.
// Without a mailer, messages to mail addresses are dropped.
func WithMailer(m Mailer) Option {
	return func(b *Bot) {
		b.mailer = m
	}
}

// WithMetrics sets the metrics updated by the bot.
func WithMetrics(m *Metrics) Option {
	return func(b *Bot) {
		b.metrics = m
	}
}

// WithTask registers a periodic task.
func WithTask(t Task) Option {
	return func(b *Bot) {
		b.AddTask(t)
	}
}

// WithPasswordPrompt sets the function used to ask for a password when none
// was configured.
func WithPasswordPrompt(p PasswordPrompt) Option {
	return func(b *Bot) {
		b.prompt = p
	}
}

// WithReconnectLimit limits how often the bot tries to log back in after its
// session ends.
func WithReconnectLimit(every time.Duration, burst int) Option {
	return func(b *Bot) {
		b.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// WithClock sets the function used to measure elapsed time.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		b.now = now
	}
}
