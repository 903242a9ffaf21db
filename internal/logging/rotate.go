// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const dayFormat = "2006-01-02"

// RotatingFile is a log file that is moved aside once a day.
// Rotated files are named after the day they cover, for example
// bot.log.2025-03-04.
type RotatingFile struct {
	path  string
	keep  int
	clock func() time.Time

	mu  sync.Mutex
	f   *os.File
	day string
}

// OpenRotating opens (or creates) the log file at path, keeping at most keep
// rotated files.
// If clock is nil, time.Now is used.
func OpenRotating(path string, keep int, clock func() time.Time) (*RotatingFile, error) {
	r := &RotatingFile{path: path, keep: keep, clock: clock}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) now() time.Time {
	if r.clock != nil {
		return r.clock()
	}
	return time.Now()
}

func (r *RotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("logging: %w", err)
	}
	r.f = f
	r.day = info.ModTime().Format(dayFormat)
	if info.Size() == 0 {
		r.day = r.now().Format(dayFormat)
	}
	return nil
}

// Write implements io.Writer.
// If the day has changed since the last write the file is rotated first.
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return 0, fs.ErrClosed
	}
	if today := r.now().Format(dayFormat); today != r.day {
		if err := r.rotate(today); err != nil {
			return 0, err
		}
	}
	return r.f.Write(p)
}

func (r *RotatingFile) rotate(today string) error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	r.f = nil
	if err := os.Rename(r.path, r.path+"."+r.day); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("logging: %w", err)
	}
	if err := r.open(); err != nil {
		return err
	}
	r.day = today
	return r.prune()
}

func (r *RotatingFile) prune() error {
	old, err := r.Rotated()
	if err != nil {
		return err
	}
	if len(old) <= r.keep {
		return nil
	}
	for _, name := range old[:len(old)-r.keep] {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("logging: %w", err)
		}
	}
	return nil
}

// Rotated returns the paths of the rotated files, oldest first.
func (r *RotatingFile) Rotated() ([]string, error) {
	matches, err := filepath.Glob(r.path + ".*")
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	out := matches[:0]
	for _, m := range matches {
		if _, err := time.Parse(dayFormat, strings.TrimPrefix(m, r.path+".")); err == nil {
			out = append(out, m)
		}
	}
	// ISO dates sort lexically.
	sort.Strings(out)
	return out, nil
}

// Close closes the current file.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
