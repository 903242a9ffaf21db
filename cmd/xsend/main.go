// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// The xsend command sends a single message and exits.
//
// The account used to send the message is read from the same configuration
// file as the benderjab command.
// For example, to be told when a long running job finishes:
//
//	xsend -wait-for-pid 1234 fry@example.net the build is done
//
// Messages to mailto: addresses are mailed if an SMTP server is configured.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mellium.im/benderjab"
	"mellium.im/benderjab/address"
	"mellium.im/benderjab/config"
	"mellium.im/benderjab/daemon"
	"mellium.im/benderjab/internal/logging"
	"mellium.im/benderjab/transport"
)

// Resource is bound by xsend unless the configuration names another one.
const Resource = "xsend"

const (
	defaultAttempts = 3
	minRetryWait    = 2500 * time.Millisecond
	maxRetryWait    = 7500 * time.Millisecond
)

type options struct {
	config   string
	section  string
	waitPID  int
	interval time.Duration
	verbose  bool
	to       address.Address
	text     string
}

func parseFlags(name string, args []string, output io.Writer) (options, error) {
	opts := options{interval: 10 * time.Second}
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(output)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage of %s:\n\n", flags.Name())
		fmt.Fprintf(flags.Output(), "  %s [options] address message...\n\n", flags.Name())
		flags.PrintDefaults()
	}
	flags.StringVar(&opts.config, "config", "", "the configuration file (default ~/"+config.DefaultFile+")")
	flags.StringVar(&opts.section, "section", "", "the configuration section to use (default: the host name)")
	flags.IntVar(&opts.waitPID, "wait-for-pid", 0, "wait for this process to exit before sending the message")
	flags.DurationVar(&opts.interval, "poll", opts.interval, "how often to check whether the process has exited")
	flags.BoolVar(&opts.verbose, "v", false, "turns on verbose debug logging")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if flags.NArg() < 2 {
		flags.Usage()
		return opts, errors.New("need an address and a message")
	}
	to, err := address.Parse(flags.Arg(0))
	if err != nil {
		return opts, err
	}
	opts.to = to
	opts.text = strings.Join(flags.Args()[1:], " ")
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[0], os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := "info"
	if opts.verbose {
		level = "debug"
	}
	logger, _, err := logging.New(logging.Config{Level: level, Service: "xsend"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error().Err(err).Msg("sending failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger zerolog.Logger) error {
	path := opts.config
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	profile, err := config.Load(path, opts.section)
	if errors.Is(err, config.ErrNotFound) {
		if werr := config.WriteTemplate(path); werr != nil {
			return werr
		}
		return fmt.Errorf("%w, a template was written for you to edit", err)
	}
	if err != nil {
		return err
	}
	cfg, err := profile.BotConfig()
	if err != nil {
		return err
	}
	if cfg.Resource == "" {
		cfg.Resource = Resource
	}

	if opts.waitPID > 0 {
		logger.Info().Int("pid", opts.waitPID).Msg("waiting for process to exit")
		if err := daemon.WaitForExit(ctx, opts.waitPID, opts.interval); err != nil {
			return err
		}
	}

	botOpts := []benderjab.Option{
		benderjab.WithLogger(logger),
		benderjab.WithPasswordPrompt(benderjab.TerminalPrompt(os.Stdin, os.Stderr)),
	}
	if m := profile.Mailer(); m != nil {
		botOpts = append(botOpts, benderjab.WithMailer(m))
	}
	d := transport.NewDialer(transport.WithLogger(logging.WithComponent(logger, "transport")))
	bot := benderjab.New(cfg, d, botOpts...)
	return send(ctx, bot, opts.to, opts.text, retrier{attempts: defaultAttempts, wait: jitter})
}

// send logs in, delivers text, and hangs up politely.
func send(ctx context.Context, b *benderjab.Bot, to address.Address, text string, r retrier) error {
	if to.Class == address.Chat {
		if err := r.do(ctx, func() error { return b.Logon(ctx) }); err != nil {
			return err
		}
		defer b.Disconnect()
	}
	return b.Send(ctx, to, text)
}

// retrier calls a function until it succeeds, waiting between attempts.
type retrier struct {
	attempts int
	wait     func() time.Duration
}

func (r retrier) do(ctx context.Context, f func() error) error {
	var err error
	for i := 0; i < r.attempts; i++ {
		if err = f(); err == nil {
			return nil
		}
		if errors.Is(err, benderjab.ErrNoPassword) || errors.Is(err, benderjab.ErrNotTerminal) || i == r.attempts-1 {
			break
		}
		t := time.NewTimer(r.wait())
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

// jitter returns a random wait between 2.5 and 7.5 seconds.
func jitter() time.Duration {
	return minRetryWait + time.Duration(rand.Int63n(int64(maxRetryWait-minRetryWait)))
}
