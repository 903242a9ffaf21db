// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mellium.im/benderjab"
	"mellium.im/benderjab/config"
	"mellium.im/benderjab/internal/logging"
	"mellium.im/benderjab/ping"
	"mellium.im/benderjab/remind"
	"mellium.im/benderjab/rpc"
	"mellium.im/benderjab/transport"
	"mellium.im/benderjab/version"
)

const shutdownTimeout = 5 * time.Second

// botRunner builds and runs the bot once the process manager has decided that
// this process is the one that should do so.
type botRunner struct {
	opts    options
	path    string
	profile config.Profile
	cfg     benderjab.Config
	logger  zerolog.Logger
}

func (r botRunner) newBot(reg prometheus.Registerer) *benderjab.Bot {
	reminders := &remind.Queue{}
	opts := []benderjab.Option{
		benderjab.WithLogger(logging.WithComponent(r.logger, "bot")),
		benderjab.WithMetrics(benderjab.NewMetrics(reg)),
		benderjab.WithParser(reminders.Parser(benderjab.DefaultParser{})),
		benderjab.WithTask(reminders),
	}
	if m := r.profile.Mailer(); m != nil {
		opts = append(opts, benderjab.WithMailer(m))
	}
	// A daemon has no terminal to ask for a password on.
	if r.opts.nodaemon {
		opts = append(opts, benderjab.WithPasswordPrompt(benderjab.TerminalPrompt(os.Stdin, os.Stderr)))
	}

	d := transport.NewDialer(transport.WithLogger(logging.WithComponent(r.logger, "transport")))
	bot := benderjab.New(r.cfg, d, opts...)
	rpc.RegisterExamples(rpc.NewDispatcher(bot))
	ping.Handle(bot)
	version.Handle(bot, version.Default("benderjab"))
	return bot
}

func (r botRunner) run(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bot := r.newBot(reg)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer bot.Disconnect()
		if err := bot.Logon(ctx); err != nil {
			return err
		}
		return bot.Run(ctx, 0)
	})

	watcher := config.Watcher{
		Path:    r.path,
		Section: r.opts.section,
		Logger:  logging.WithComponent(r.logger, "config"),
		OnChange: func(p config.Profile) {
			l, err := p.AllowList()
			if err != nil {
				logger := bot.Logger()
				logger.Error().Err(err).Msg("ignoring new authorized users")
				return
			}
			bot.SetAuthorizedUsers(l)
		},
	}
	g.Go(func() error {
		return watcher.Watch(ctx)
	})

	if r.opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              r.opts.metricsAddr,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: shutdownTimeout,
		}
		g.Go(func() error {
			logger := logging.WithComponent(r.logger, "metrics")
			logger.Info().Str("addr", srv.Addr).Msg("serving metrics")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}
