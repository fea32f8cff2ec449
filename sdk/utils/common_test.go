// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateFormat(t *testing.T) {
	assert.Equal(t, "json", TranslateFormat("JSON"))
	assert.Equal(t, "yaml", TranslateFormat("yml"))
	assert.Equal(t, "short", TranslateFormat("text"))
	assert.Equal(t, "short", TranslateFormat(""))
}

func TestUUIDv4NoDash(t *testing.T) {
	id := UUIDv4NoDash()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, UUIDv4NoDash())
}

func TestDefaultIniPath(t *testing.T) {
	assert.Equal(t, IniName, filepath.Base(DefaultIniPath()))
}

func TestDefaultSCPUser(t *testing.T) {
	assert.NotEmpty(t, DefaultSCPUser())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.log")
	logger, closeLog, err := NewLogger("info", path)
	require.NoError(t, err)

	logger.Info("Bucket created", "bucket", "test-bucket")
	logger.Debug("hidden")
	require.NoError(t, closeLog())

	data, err := readFile(path)
	require.NoError(t, err)
	assert.Contains(t, data, "Bucket created")
	assert.Contains(t, data, "bucket=test-bucket")
	assert.NotContains(t, data, "hidden")
}

func TestProgressHook(t *testing.T) {
	var buf bytes.Buffer
	hook := NewProgressHook(&buf, "http")

	hook.OnStart("f", 2048)
	hook.OnProgress("f", 1024, 2048)
	hook.OnDone("f", 2048, time.Second)

	out := buf.String()
	assert.Contains(t, out, "http:   0.00% (0 B / 2.00 KB)")
	assert.Contains(t, out, "100.00% (2.00 KB / 2.00 KB)")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1.50 MB", humanBytes(1536*1024))
	assert.Equal(t, "10.00 GB", humanBytes(10*1024*1024*1024))
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	return string(b), err
}
