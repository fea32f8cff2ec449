// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/transfer-bench/sdk/services/receiver"
	"github.com/scc-digitalhub/transfer-bench/sdk/utils"
)

func init() {
	color.NoColor = true
	gin.SetMode(gin.TestMode)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", filepath.Join(t.TempDir(), "none.ini")}, args...)
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, _ := runCLI(t, "--help")
	assert.Equal(t, exitOK, code)

	code, _, stderr := runCLI(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "--file is required")

	code, _, _ = runCLI(t, "--no-such-flag")
	assert.Equal(t, exitUsage, code)
}

func TestRun_InvalidSettings(t *testing.T) {
	file := filepath.Join(t.TempDir(), "in.bin")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	code, _, _ := runCLI(t, "--file", file, "--output", "xml")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "--file", file, "--minio-client", "gcs")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "--file", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "--file", file, "--log-level", "loud")
	assert.Equal(t, exitUsage, code)
}

func TestRun_ContinueOnError(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}

	uploads := t.TempDir()
	svc, err := receiver.NewReceiverService(receiver.Config{UploadDir: uploads}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(file, []byte("a,b\n"), 0o644))

	code, stdout, _ := runCLI(t,
		"--file", file,
		"--minio-endpoint", "http://127.0.0.1:1",
		"--timeout", "2s",
		"--http-url", srv.URL+"/upload",
		"--scp-binary", "true",
		"--continue-on-error",
		"--output", "json",
		"--log-level", "error",
	)
	assert.Equal(t, exitFailed, code)

	var report struct {
		Policy  string `json:"policy"`
		Results []struct {
			Transport  string `json:"transport"`
			Outcome    string `json:"outcome"`
			StatusCode int    `json:"status_code"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "continue", report.Policy)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "failed", report.Results[0].Outcome)
	assert.Equal(t, "success", report.Results[1].Outcome)
	assert.Equal(t, 200, report.Results[1].StatusCode)
	assert.Equal(t, "success", report.Results[2].Outcome)

	got, err := os.ReadFile(filepath.Join(uploads, "report.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(got))
}

// fakeObjectStore answers HeadBucket and PutObject with 200 and records the PUT paths.
type fakeObjectStore struct {
	mu   sync.Mutex
	puts []string
}

func (f *fakeObjectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	if r.Method == http.MethodPut {
		f.mu.Lock()
		f.puts = append(f.puts, r.URL.Path)
		f.mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	}
	w.WriteHeader(http.StatusOK)
}

func TestRun_TextHappyPath(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}

	store := &fakeObjectStore{}
	s3srv := httptest.NewServer(store)
	defer s3srv.Close()

	uploads := t.TempDir()
	svc, err := receiver.NewReceiverService(receiver.Config{UploadDir: uploads}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(file, []byte("a,b\n"), 0o644))
	logFile := filepath.Join(t.TempDir(), "bench.log")

	code, stdout, _ := runCLI(t,
		"--file", file,
		"--minio-endpoint", s3srv.URL,
		"--minio-secret-key", "s3cr3t",
		"--timeout", "10s",
		"--http-url", srv.URL+"/upload",
		"--scp-binary", "true",
		"--log-level", "debug",
		"--log-file", logFile,
	)
	require.Equal(t, exitOK, code, stdout)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Uploading to MinIO...", lines[0])
	assert.Regexp(t, regexp.MustCompile(`^MinIO Upload Time: \d+\.\d{2} seconds$`), lines[1])
	assert.Equal(t, "Uploading via HTTP...", lines[2])
	assert.Regexp(t, regexp.MustCompile(`^HTTP Upload Time: \d+\.\d{2} seconds, Status Code: 200$`), lines[3])
	assert.Equal(t, "Uploading via SCP...", lines[4])
	assert.Regexp(t, regexp.MustCompile(`^SCP Upload Time: \d+\.\d{2} seconds$`), lines[5])

	store.mu.Lock()
	assert.Equal(t, []string{"/test-bucket/testfile"}, store.puts)
	store.mu.Unlock()

	got, err := os.ReadFile(filepath.Join(uploads, "report.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(got))

	logged, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "Effective settings")
	assert.NotContains(t, string(logged), "s3cr3t")
}

func TestSplitOptions(t *testing.T) {
	assert.Equal(t,
		[]string{"-o", "BatchMode=yes", "-P", "2222"},
		splitOptions([]string{"-o BatchMode=yes", " -P  2222 "}))
	assert.Nil(t, splitOptions(nil))
}

func TestBuildConfig(t *testing.T) {
	conf := buildConfig(settingsFixture())
	assert.Equal(t, "minio", conf.S3.Client)
	assert.Equal(t, "file", conf.HTTP.FieldName)
	assert.Equal(t, "bench@h:/tmp/", conf.SCP.Destination())
}

func settingsFixture() utils.BenchSettings {
	return utils.BenchSettings{
		MinioClient:   "MinIO",
		SCPUser:       "bench",
		SCPHost:       "h",
		SCPRemotePath: "/tmp/",
	}
}
