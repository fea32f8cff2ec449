// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_BadFlags(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"--max-body-bytes", "lots"}, &stderr))
	assert.Equal(t, 2, run(context.Background(), []string{"--log-level", "loud"}, &stderr))
	assert.Equal(t, 0, run(context.Background(), []string{"--help"}, &stderr))
}

func TestRun_StopsOnCancel(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stderr bytes.Buffer
	code := run(ctx, []string{"--addr", "127.0.0.1:0", "--upload-dir", dir, "--log-level", "error"}, &stderr)
	assert.Equal(t, 0, code)

	st, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}
