// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package daemon runs a bot as a background process guarded by a pid file.
package daemon // import "mellium.im/benderjab/daemon"

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// EnvStage is the environment variable used to tell re-executed copies of
// the program which stage of detaching they are in.
const EnvStage = "BENDERJAB_DAEMON_STAGE"

const (
	workDir = "/"
	umask   = 0o022
)

// Daemonize detaches the program from its terminal.
//
// Go programs cannot safely fork, so the program is executed again with the
// same arguments.
// The first copy becomes a session leader, starts the second copy and exits
// so that the daemon can never acquire a controlling terminal.
// The daemon runs in / with its standard streams connected to /dev/null.
//
// In the original process Daemonize returns false once the first copy has
// started and the caller should exit.
// In the daemon it returns true.
// Arguments referring to relative paths must be made absolute before calling
// Daemonize.
func Daemonize() (daemon bool, err error) {
	switch os.Getenv(EnvStage) {
	case "":
		return false, spawn("1", true)
	case "1":
		if err := spawn("2", false); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	unix.Umask(umask)
	if err := os.Chdir(workDir); err != nil {
		return true, fmt.Errorf("daemon: changing directory: %w", err)
	}
	return true, os.Unsetenv(EnvStage)
}

func spawn(stage string, setsid bool) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("daemon: finding executable: %w", err)
	}
	null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("daemon: opening %s: %w", os.DevNull, err)
	}
	defer null.Close()

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), EnvStage+"="+stage)
	cmd.Dir = workDir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = null, null, null
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: setsid}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("daemon: starting stage %s: %w", stage, err)
	}
	return cmd.Process.Release()
}
