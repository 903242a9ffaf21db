// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package benderjab

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"mellium.im/xmpp/jid"

	"mellium.im/benderjab/address"
)

// Defaults used when the corresponding Config field is empty.
const (
	DefaultResource    = "BenderJab"
	DefaultPollTimeout = time.Second
)

const (
	defaultReconnectInterval = 5 * time.Second
	disconnectTimeout        = 2 * time.Second
)

// Config is the identity and behavior of a bot.
// It is copied by New and never modified afterwards.
type Config struct {
	JID         jid.JID
	Password    string
	Resource    string
	PollTimeout time.Duration
	Lang        string

	// AuthorizedUsers is the list of addresses allowed to talk to the bot.
	// A nil list allows everyone, an empty list denies everyone.
	AuthorizedUsers address.List
}

// Bot is a chat bot.
//
// Except where noted, the methods of Bot must only be called from the
// goroutine that runs the event loop (Step or Run).
type Bot struct {
	cfg      Config
	jid      jid.JID
	resource string
	password string

	dialer  Dialer
	parser  Parser
	logger  zerolog.Logger
	mailer  Mailer
	metrics *Metrics
	prompt  PasswordPrompt
	limiter *rate.Limiter
	now     func() time.Time

	tasks     []Task
	routes    []RouteOption
	router    *Router
	transport Transport
	pending   map[string]*pendingCall

	state struct {
		sync.RWMutex
		authorized address.List
	}
}

// New returns a bot that logs in as cfg.JID using d.
// The bot does not connect until Logon, Step, or Run is called.
func New(cfg Config, d Dialer, opts ...Option) *Bot {
	if cfg.Resource == "" {
		cfg.Resource = DefaultResource
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	b := &Bot{
		cfg:      cfg,
		jid:      cfg.JID,
		resource: cfg.Resource,
		password: cfg.Password,
		dialer:   d,
		parser:   DefaultParser{},
		logger:   zerolog.Nop(),
		limiter:  rate.NewLimiter(rate.Every(defaultReconnectInterval), 1),
		now:      time.Now,
		pending:  make(map[string]*pendingCall),
	}
	b.state.authorized = cfg.AuthorizedUsers
	for _, o := range opts {
		o(b)
	}
	if b.metrics == nil {
		b.metrics = NewMetrics(nil)
	}
	b.logger = b.logger.With().Str("jid", b.jid.Bare().String()).Logger()
	return b
}

// Config returns the configuration the bot was created with.
func (b *Bot) Config() Config {
	return b.cfg
}

// JID returns the address the bot logs in as, including the resource.
// If the resource is invalid the bare JID is returned.
func (b *Bot) JID() jid.JID {
	j, err := b.jid.WithResource(b.resource)
	if err != nil {
		return b.jid.Bare()
	}
	return j
}

// SetJID changes the address the bot logs in as.
// It fails with ErrConnected if the bot has a live session.
func (b *Bot) SetJID(j jid.JID) error {
	if b.Connected() {
		return ErrConnected
	}
	b.jid = j
	return nil
}

// SetResource changes the resource the bot binds.
// It fails with ErrConnected if the bot has a live session.
func (b *Bot) SetResource(resource string) error {
	if b.Connected() {
		return ErrConnected
	}
	b.resource = resource
	return nil
}

// SetParser replaces the parser used to answer chat messages.
// A nil parser restores the default.
func (b *Bot) SetParser(p Parser) {
	if p == nil {
		p = DefaultParser{}
	}
	b.parser = p
}

// Logger returns the logger used by the bot.
func (b *Bot) Logger() zerolog.Logger {
	return b.logger
}

// Metrics returns the metrics collected by the bot.
func (b *Bot) Metrics() *Metrics {
	return b.metrics
}

// Connected reports whether the bot has a live session.
func (b *Bot) Connected() bool {
	return b.transport != nil
}

// AuthorizedUsers returns the current allow-list.
// It is safe to call from any goroutine.
func (b *Bot) AuthorizedUsers() address.List {
	b.state.RLock()
	defer b.state.RUnlock()
	return b.state.authorized
}

// SetAuthorizedUsers replaces the allow-list.
// A nil list allows everyone.
// It is safe to call from any goroutine.
func (b *Bot) SetAuthorizedUsers(l address.List) {
	b.state.Lock()
	defer b.state.Unlock()
	b.state.authorized = l
}

// IsAuthorized reports whether sender is allowed to talk to the bot.
// It is safe to call from any goroutine.
func (b *Bot) IsAuthorized(sender jid.JID) bool {
	return address.Authorized(sender, b.AuthorizedUsers())
}

// Handle registers h for stanzas matching p.
// Handlers registered for patterns the bot already handles (all messages and
// presences) cause a panic.
func (b *Bot) Handle(p Pattern, h Handler) {
	b.routes = append(b.routes, Route(p, h))
	b.router = nil
}

// HandleFunc is like Handle but takes a function.
func (b *Bot) HandleFunc(p Pattern, h HandlerFunc) {
	b.Handle(p, h)
}
