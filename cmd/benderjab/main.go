// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// The benderjab command runs a chat bot that answers a handful of commands,
// delivers reminders, and serves XML-RPC over XMPP.
//
// The account is read from a YAML configuration file (by default
// ~/.benderjab.yaml).
// For more information try running:
//
//	benderjab -help
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"mellium.im/benderjab"
	"mellium.im/benderjab/config"
	"mellium.im/benderjab/daemon"
	"mellium.im/benderjab/internal/logging"
)

// Exit codes.
const (
	exitErr   = 1
	exitUsage = 2
)

type action int

const (
	actionStart action = iota
	actionStop
	actionRestart
)

type options struct {
	jid         string
	resource    string
	config      string
	section     string
	metricsAddr string
	start       bool
	stop        bool
	restart     bool
	nodaemon    bool
	verbose     bool
}

func (o options) action() (action, error) {
	var n int
	act := actionStart
	if o.start {
		n++
	}
	if o.stop {
		n++
		act = actionStop
	}
	if o.restart {
		n++
		act = actionRestart
	}
	if n > 1 {
		return act, errors.New("only one of -start, -stop, and -restart may be given")
	}
	return act, nil
}

func parseFlags(name string, args []string, output io.Writer) (options, error) {
	var opts options
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(output)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage of %s:\n\n", flags.Name())
		fmt.Fprintf(flags.Output(), "  %s [-start|-stop|-restart] [options]\n\n", flags.Name())
		flags.PrintDefaults()
	}
	flags.StringVar(&opts.jid, "jid", "", "the JID to log in as, overrides the configuration file")
	flags.StringVar(&opts.resource, "resource", "", "the resource to bind, overrides the configuration file")
	flags.StringVar(&opts.config, "config", "", "the configuration file (default ~/"+config.DefaultFile+")")
	flags.StringVar(&opts.section, "section", "", "the configuration section to use (default: the host name)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	flags.BoolVar(&opts.start, "start", false, "start the bot (the default)")
	flags.BoolVar(&opts.stop, "stop", false, "stop a running bot")
	flags.BoolVar(&opts.restart, "restart", false, "stop a running bot and start a new one")
	flags.BoolVar(&opts.nodaemon, "nodaemon", false, "stay in the foreground and log to stderr")
	flags.BoolVar(&opts.verbose, "v", false, "turns on verbose debug logging")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if flags.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %q", flags.Args())
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[0], os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
	act, err := opts.action()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}

	profile, path, err := loadProfile(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, config.ErrNotFound) || errors.Is(err, config.ErrPlaceholder) {
			os.Exit(exitUsage)
		}
		os.Exit(exitErr)
	}

	cfg, err := profile.BotConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
	if cfg.Resource == "" {
		cfg.Resource = benderjab.DefaultResource
	}
	names := config.NamesFor(cfg.JID, cfg.Resource)
	pidPath, err := profile.PIDPath(names)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}

	logger, closer, err := newLogger(opts, profile, names)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitErr)
	}
	defer closer.Close()

	mgr := daemon.NewManager(pidPath, logger.With().Str("jid", names.JID).Logger())
	runner := botRunner{
		opts:    opts,
		path:    path,
		profile: profile,
		cfg:     cfg,
		logger:  logger,
	}

	ctx := context.Background()
	switch act {
	case actionStop:
		err = mgr.Stop()
	case actionRestart:
		err = mgr.Restart(ctx, !opts.nodaemon, runner.run)
	default:
		err = mgr.Start(ctx, !opts.nodaemon, runner.run)
	}
	if err != nil {
		logger.Error().Err(err).Msg("exiting")
		closer.Close()
		os.Exit(exitErr)
	}
}

// loadProfile reads the configuration and applies the command line overrides.
// The returned path is absolute so that the daemon can reload it after
// changing directory.
func loadProfile(opts options) (config.Profile, string, error) {
	path := opts.config
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return config.Profile{}, "", err
		}
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return config.Profile{}, "", err
	}
	profile, err := config.Load(path, opts.section)
	if err != nil {
		return profile, path, err
	}
	if opts.jid != "" {
		profile.JID = opts.jid
	}
	if opts.resource != "" {
		profile.Resource = opts.resource
	}
	return profile, path, nil
}

// newLogger logs to stderr in the foreground and to the configured log file
// otherwise.
func newLogger(opts options, profile config.Profile, names config.Names) (zerolog.Logger, io.Closer, error) {
	lcfg := logging.Config{
		Level:   profile.LogLevel,
		Service: "benderjab",
	}
	if !opts.nodaemon {
		path, err := profile.LogPath(names)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		lcfg.File = path
	}
	logger, closer, err := logging.New(lcfg)
	if err != nil {
		return logger, nil, err
	}
	if opts.verbose {
		logger = logging.Verbose(logger)
	}
	return logger, closer, nil
}
