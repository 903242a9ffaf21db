// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"golang.org/x/sys/unix"
)

var (
	// ErrNoPID is returned when a pid file is missing or does not contain a
	// process id.
	ErrNoPID = errors.New("daemon: no pid recorded")

	// ErrNotOwner is returned when removing a pid file that records another
	// process.
	ErrNotOwner = errors.New("daemon: pid file belongs to another process")
)

// RunningError is returned by CheckSafe when the process recorded in the pid
// file is still alive.
type RunningError struct {
	Path string
	PID  int
}

func (e *RunningError) Error() string {
	return fmt.Sprintf("daemon: another instance seems to be running (pid %d in %s)", e.PID, e.Path)
}

// PIDFile records the id of the process that owns a bot identity.
type PIDFile struct {
	Path string
}

// Read returns the recorded process id.
// If the file is missing or malformed the error wraps ErrNoPID.
func (p PIDFile) Read() (int, error) {
	b, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s does not exist", ErrNoPID, p.Path)
		}
		return 0, fmt.Errorf("daemon: reading %s: %w", p.Path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: %s doesn't contain a pid", ErrNoPID, p.Path)
	}
	return pid, nil
}

// Write atomically replaces the file with pid.
func (p PIDFile) Write(pid int) error {
	if err := renameio.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("daemon: writing %s: %w", p.Path, err)
	}
	return nil
}

// Remove deletes the file if it records pid.
// If it records another process the file is left alone and the error wraps
// ErrNotOwner.
func (p PIDFile) Remove(pid int) error {
	recorded, err := p.Read()
	if err != nil {
		return err
	}
	if recorded != pid {
		return fmt.Errorf("%w: %s records %d, not %d", ErrNotOwner, p.Path, recorded, pid)
	}
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("daemon: removing %s: %w", p.Path, err)
	}
	return nil
}

// CheckSafe reports whether it is safe for this process to run.
// A missing or malformed file, or one recording this process, is safe.
// A file recording a process that no longer exists is stale and removed.
// If the recorded process is alive a *RunningError is returned.
func (p PIDFile) CheckSafe() error {
	pid, err := p.Read()
	switch {
	case errors.Is(err, ErrNoPID):
		return nil
	case err != nil:
		return err
	case pid == os.Getpid():
		return nil
	}
	alive, err := Alive(pid)
	if err != nil {
		return fmt.Errorf("daemon: failed checking status of pid %d in %s: %w", pid, p.Path, err)
	}
	if alive {
		return &RunningError{Path: p.Path, PID: pid}
	}
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("daemon: removing stale %s: %w", p.Path, err)
	}
	return nil
}

// Alive reports whether a process with the given id exists.
// Processes owned by other users count as alive.
func Alive(pid int) (bool, error) {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil, errors.Is(err, unix.EPERM):
		return true, nil
	case errors.Is(err, unix.ESRCH):
		return false, nil
	}
	return false, err
}

// WaitForExit polls every interval until the process exits or ctx is
// canceled.
func WaitForExit(ctx context.Context, pid int, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		alive, err := Alive(pid)
		if err != nil {
			return err
		}
		if !alive {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
