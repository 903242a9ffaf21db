// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the counters updated by a bot.
type Metrics struct {
	Logons          prometheus.Counter
	AuthFailures    prometheus.Counter
	Reconnects      prometheus.Counter
	Unauthorized    prometheus.Counter
	ParserFailures  prometheus.Counter
	TaskFailures    prometheus.Counter
	StanzasSent     *prometheus.CounterVec
	StanzasReceived *prometheus.CounterVec
}

// NewMetrics creates the bot counters and registers them with reg.
// If reg is nil the counters are not registered anywhere.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logons: f.NewCounter(prometheus.CounterOpts{
			Name: "benderjab_logons_total",
			Help: "Number of sessions established.",
		}),
		AuthFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "benderjab_auth_failures_total",
			Help: "Number of failed attempts to establish a session.",
		}),
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "benderjab_reconnects_total",
			Help: "Number of times the bot logged on again after losing its session.",
		}),
		Unauthorized: f.NewCounter(prometheus.CounterOpts{
			Name: "benderjab_unauthorized_total",
			Help: "Number of messages refused because the sender is not authorized.",
		}),
		ParserFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "benderjab_parser_failures_total",
			Help: "Number of messages the parser failed to answer.",
		}),
		TaskFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "benderjab_task_failures_total",
			Help: "Number of periodic task runs that failed.",
		}),
		StanzasSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "benderjab_stanzas_sent_total",
			Help: "Number of stanzas sent, by stanza name.",
		}, []string{"stanza"}),
		StanzasReceived: f.NewCounterVec(prometheus.CounterOpts{
			Name: "benderjab_stanzas_received_total",
			Help: "Number of stanzas received, by stanza name.",
		}, []string{"stanza"}),
	}
}
