// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package config loads bot profiles from a YAML file.
//
// The file is a map of named profiles.
// Settings from the "default" profile are overlaid with the requested profile
// or, if none was requested, with the profile named after the host:
//
//	default:
//	  jid: bender@example.net
//	  password: bite my shiny metal
//	  authorized_users: fry@example.net leela@example.net
//	planetexpress:
//	  resource: ship
//	  loglevel: debug
package config // import "mellium.im/benderjab/config"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
	"mellium.im/xmpp/jid"

	"mellium.im/benderjab"
	"mellium.im/benderjab/address"
)

// DefaultSection is overlaid by every other section.
const DefaultSection = "default"

// DefaultFile is the name of the configuration file in the home directory.
const DefaultFile = ".benderjab.yaml"

// Placeholder credentials written to new configuration files.
const (
	PlaceholderJID      = "romeo@montague.net"
	PlaceholderPassword = "juliet"
)

var (
	// ErrNotFound is returned when the configuration file does not exist.
	ErrNotFound = errors.New("config: file not found")

	// ErrPlaceholder is returned when the configuration still holds the
	// placeholder credentials.
	ErrPlaceholder = errors.New("config: please edit the configuration to include a valid JID")

	// ErrNoSection is returned when the requested section does not exist.
	ErrNoSection = errors.New("config: no such section")
)

// Profile is the merged configuration of a bot.
type Profile struct {
	JID      string  `yaml:"jid"`
	Password string  `yaml:"password"`
	Resource string  `yaml:"resource"`
	Timeout  float64 `yaml:"timeout"`
	PID      string  `yaml:"pid"`
	Log      string  `yaml:"log"`
	LogLevel string  `yaml:"loglevel"`
	Lang     string  `yaml:"lang"`

	// AuthorizedUsers is a space separated address list.
	// If it is nil everybody may talk to the bot.
	AuthorizedUsers *string `yaml:"authorized_users"`

	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
}

// DefaultPath returns the path of the configuration file in the home
// directory of the current user.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: finding home directory: %w", err)
	}
	return filepath.Join(home, DefaultFile), nil
}

// Load reads the file at path and returns the merged profile for section.
// If section is empty the section named after the host is used if it exists.
func Load(path, section string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Profile{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	p, err := Decode(f, section)
	if err != nil {
		return p, fmt.Errorf("%w (in %s)", err, path)
	}
	return p, nil
}

// Decode is like Load except that it reads the configuration from r.
func Decode(r io.Reader, section string) (Profile, error) {
	sections := make(map[string]yaml.Node)
	if err := yaml.NewDecoder(r).Decode(&sections); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("config: %w", err)
	}

	var p Profile
	if n, ok := sections[DefaultSection]; ok {
		if err := n.Decode(&p); err != nil {
			return p, fmt.Errorf("config: section %s: %w", DefaultSection, err)
		}
	}

	explicit := section != ""
	if !explicit {
		section, _ = os.Hostname()
	}
	if n, ok := sections[section]; ok && section != DefaultSection {
		if err := n.Decode(&p); err != nil {
			return p, fmt.Errorf("config: section %s: %w", section, err)
		}
	} else if explicit && !ok {
		return p, fmt.Errorf("%w: %s", ErrNoSection, section)
	}

	if p.JID == PlaceholderJID && p.Password == PlaceholderPassword {
		return p, ErrPlaceholder
	}
	return p, nil
}

// WriteTemplate creates a configuration file containing the placeholder
// credentials for the user to edit.
func WriteTemplate(path string) error {
	out, err := yaml.Marshal(map[string]Profile{
		DefaultSection: {JID: PlaceholderJID, Password: PlaceholderPassword},
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := renameio.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("config: writing template: %w", err)
	}
	return nil
}

// Address parses the JID of the profile.
func (p Profile) Address() (jid.JID, error) {
	if p.JID == "" {
		return jid.JID{}, errors.New("config: no jid configured")
	}
	j, err := jid.Parse(p.JID)
	if err != nil {
		return jid.JID{}, fmt.Errorf("config: bad jid: %w", err)
	}
	return j, nil
}

// AllowList parses the authorized users of the profile.
// If none are configured the list is nil and everybody is allowed.
func (p Profile) AllowList() (address.List, error) {
	if p.AuthorizedUsers == nil {
		return nil, nil
	}
	l, err := address.ParseList(*p.AuthorizedUsers, false)
	if err != nil {
		return nil, fmt.Errorf("config: authorized_users: %w", err)
	}
	return l, nil
}

// BotConfig converts the profile into the configuration of a bot.
func (p Profile) BotConfig() (benderjab.Config, error) {
	j, err := p.Address()
	if err != nil {
		return benderjab.Config{}, err
	}
	allow, err := p.AllowList()
	if err != nil {
		return benderjab.Config{}, err
	}
	lang := p.Lang
	if lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			return benderjab.Config{}, fmt.Errorf("config: bad lang %q: %w", lang, err)
		}
		lang = tag.String()
	}
	resource := p.Resource
	if resource == "" {
		if r := j.Resourcepart(); r != "" {
			resource = r
		}
	}
	return benderjab.Config{
		JID:             j.Bare(),
		Password:        p.Password,
		Resource:        resource,
		PollTimeout:     time.Duration(p.Timeout * float64(time.Second)),
		Lang:            lang,
		AuthorizedUsers: allow,
	}, nil
}

// Mailer returns a mailer for the configured SMTP server or nil if none is
// configured.
func (p Profile) Mailer() benderjab.Mailer {
	if p.SMTPServer == "" {
		return nil
	}
	return benderjab.SMTPMailer{Host: p.SMTPServer, Port: p.SMTPPort}
}
