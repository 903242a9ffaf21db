// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mellium.im/benderjab/internal/logging"
)

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	l, closer, err := logging.New(logging.Config{Level: "warn", Output: &buf, Service: "benderjab"})
	require.NoError(t, err)
	defer closer.Close()

	l.Info().Msg("quiet")
	assert.Zero(t, buf.Len(), "info written at warn level")

	rpcLogger := logging.WithComponent(l, "rpc")
	rpcLogger.Warn().Msg("loud")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loud", entry["message"])
	assert.Equal(t, "rpc", entry["component"])
	assert.Equal(t, "benderjab", entry["service"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNewVerbose(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := logging.New(logging.Config{Output: &buf})
	require.NoError(t, err)
	l.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	l = logging.Verbose(l)
	l.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewBadLevel(t *testing.T) {
	_, _, err := logging.New(logging.Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	l, closer, err := logging.New(logging.Config{File: path})
	require.NoError(t, err)
	l.Info().Msg("to file")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "to file")
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.Local)
	f, err := logging.OpenRotating(path, 3, func() time.Time { return now })
	require.NoError(t, err)
	defer f.Close()

	for i := 0; i < 6; i++ {
		_, err := f.Write([]byte("day " + strconv.Itoa(i) + "\n"))
		require.NoError(t, err)
		// Writes on the same day do not rotate.
		_, err = f.Write([]byte("again\n"))
		require.NoError(t, err)
		now = now.Add(24 * time.Hour)
	}

	rotated, err := f.Rotated()
	require.NoError(t, err)
	assert.Equal(t, []string{
		path + ".2025-03-03",
		path + ".2025-03-04",
		path + ".2025-03-05",
	}, rotated)

	b, err := os.ReadFile(path + ".2025-03-05")
	require.NoError(t, err)
	assert.Equal(t, "day 4\nagain\n", string(b))

	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "day 5\nagain\n", string(b))
}

func TestRotatingClosed(t *testing.T) {
	f, err := logging.OpenRotating(filepath.Join(t.TempDir(), "bot.log"), 1, nil)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	_, err = f.Write([]byte("late\n"))
	assert.Error(t, err)
}
