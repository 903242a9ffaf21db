// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// State is the lifecycle state of a managed process.
type State int

// Lifecycle states.
const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrAlreadyStarted is returned by Start if the manager is not stopped.
var ErrAlreadyStarted = errors.New("daemon: already started")

// RunFunc is the body of the managed process.
// It should return when ctx is canceled.
type RunFunc func(ctx context.Context) error

// Manager starts and stops a single instance of a program.
type Manager struct {
	PIDFile PIDFile
	Logger  zerolog.Logger

	mu    sync.Mutex
	state State
}

// NewManager returns a manager guarded by the pid file at path.
func NewManager(path string, logger zerolog.Logger) *Manager {
	return &Manager{
		PIDFile: PIDFile{Path: path},
		Logger:  logger.With().Str("component", "daemon").Logger(),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.Logger.Debug().Stringer("state", s).Msg("state change")
}

// Start runs the program if no other instance is running.
//
// If daemonize is true the program detaches first, in which case Start
// returns nil in the original process as soon as the daemon has been spawned.
// Run is called with a context that is canceled by SIGINT or SIGTERM.
// The pid file is written before run is called and removed when it returns,
// even if it panics.
func (m *Manager) Start(ctx context.Context, daemonize bool, run RunFunc) (err error) {
	m.mu.Lock()
	if m.state != Stopped {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.state = Starting
	m.mu.Unlock()
	defer m.setState(Stopped)

	if err := m.PIDFile.CheckSafe(); err != nil {
		return err
	}
	if daemonize {
		isDaemon, err := Daemonize()
		if err != nil {
			return err
		}
		if !isDaemon {
			m.Logger.Info().Msg("started in the background")
			return nil
		}
	}

	pid := os.Getpid()
	if err := m.PIDFile.Write(pid); err != nil {
		return err
	}
	defer func() {
		if rmErr := m.PIDFile.Remove(pid); rmErr != nil {
			m.Logger.Error().Err(rmErr).Msg("removing pid file")
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m.setState(Running)
	m.Logger.Info().Int("pid", pid).Str("pidfile", m.PIDFile.Path).Msg("running")
	defer m.setState(Stopping)
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Error().Bytes("stack", debug.Stack()).Msgf("panic: %v", r)
			err = fmt.Errorf("daemon: panic: %v", r)
		}
	}()
	return run(ctx)
}

// Stop asks the running instance to exit by sending it SIGTERM.
// It does not wait for the process to exit.
// If no pid is recorded Stop does nothing.
func (m *Manager) Stop() error {
	pid, err := m.PIDFile.Read()
	if errors.Is(err, ErrNoPID) {
		m.Logger.Debug().Err(err).Msg("nothing to stop")
		return nil
	}
	if err != nil {
		return err
	}
	m.Logger.Info().Int("pid", pid).Msg("stopping")
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return m.PIDFile.CheckSafe()
		}
		return fmt.Errorf("daemon: signaling %d: %w", pid, err)
	}
	return nil
}

// Restart stops the running instance, if any, and starts a new one.
//
// Restart does not wait for the old instance to exit, if it is still alive
// when the pid file is checked Start fails with a *RunningError.
func (m *Manager) Restart(ctx context.Context, daemonize bool, run RunFunc) error {
	if err := m.Stop(); err != nil {
		return err
	}
	return m.Start(ctx, daemonize, run)
}
