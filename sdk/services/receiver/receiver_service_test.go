// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package receiver_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/transfer-bench/sdk/services/receiver"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newReceiver(t *testing.T, conf receiver.Config) (*receiver.ReceiverService, string) {
	t.Helper()
	if conf.UploadDir == "" {
		conf.UploadDir = filepath.Join(t.TempDir(), "uploads")
	}
	svc, err := receiver.NewReceiverService(conf, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc, conf.UploadDir
}

// multipartBody builds a body with one part named field; a nil data writes a
// plain value part instead of a file part.
func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", "application/octet-stream")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, h http.Handler, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewReceiverService_CreatesUploadDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	_, _ = newReceiver(t, receiver.Config{UploadDir: dir})

	st, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}

func TestUpload_SavesFile(t *testing.T) {
	svc, dir := newReceiver(t, receiver.Config{})
	data := []byte("id,value\n1,42\n")

	body, ct := multipartBody(t, "file", "report.csv", data)
	w := doUpload(t, svc.Handler(), body, ct)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "File uploaded successfully", w.Body.String())

	got, err := os.ReadFile(filepath.Join(dir, "report.csv"))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestUpload_Overwrites(t *testing.T) {
	svc, dir := newReceiver(t, receiver.Config{})

	body, ct := multipartBody(t, "file", "report.csv", []byte("first version, longer"))
	require.Equal(t, http.StatusOK, doUpload(t, svc.Handler(), body, ct).Code)

	body, ct = multipartBody(t, "file", "report.csv", []byte("second"))
	require.Equal(t, http.StatusOK, doUpload(t, svc.Handler(), body, ct).Code)

	got, err := os.ReadFile(filepath.Join(dir, "report.csv"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestUpload_MissingFilePart(t *testing.T) {
	svc, dir := newReceiver(t, receiver.Config{})

	body, ct := multipartBody(t, "other", "report.csv", []byte("x"))
	w := doUpload(t, svc.Handler(), body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No file part")

	w = doUpload(t, svc.Handler(), strings.NewReader("file=abc"), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No file part")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_EmptyFilename(t *testing.T) {
	svc, dir := newReceiver(t, receiver.Config{})

	body, ct := multipartBody(t, "file", "", []byte("x"))
	w := doUpload(t, svc.Handler(), body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No selected file.", w.Body.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_PathTraversalStaysInDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "uploads")
	svc, _ := newReceiver(t, receiver.Config{UploadDir: dir})

	body, ct := multipartBody(t, "file", "../escape.txt", []byte("x"))
	w := doUpload(t, svc.Handler(), body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := os.Stat(filepath.Join(root, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.NoError(t, err)

	body, ct = multipartBody(t, "file", "..", []byte("x"))
	w = doUpload(t, svc.Handler(), body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	svc, dir := newReceiver(t, receiver.Config{MaxBodyBytes: 1024})
	big := bytes.Repeat([]byte("a"), 4096)

	t.Run("declared length", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "big.bin", big)
		w := doUpload(t, svc.Handler(), body, ct)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("unknown length", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "big.bin", big)
		req := httptest.NewRequest(http.MethodPost, "/upload", io.NopCloser(body))
		req.ContentLength = -1
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		svc.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	_, err := os.Stat(filepath.Join(dir, "big.bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestUpload_SaveFailure(t *testing.T) {
	svc, dir := newReceiver(t, receiver.Config{})
	// a directory with the target name makes the save fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, "taken"), 0o755))

	body, ct := multipartBody(t, "file", "taken", []byte("x"))
	w := doUpload(t, svc.Handler(), body, ct)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to save file.", w.Body.String())
}

func TestHealth(t *testing.T) {
	svc, _ := newReceiver(t, receiver.Config{})
	w := httptest.NewRecorder()
	svc.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServe_GracefulShutdown(t *testing.T) {
	svc, dir := newReceiver(t, receiver.Config{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()

	body, ct := multipartBody(t, "file", "live.txt", []byte("over the wire"))
	resp, err := http.Post("http://"+ln.Addr().String()+"/upload", ct, body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := os.ReadFile(filepath.Join(dir, "live.txt"))
	require.NoError(t, err)
	assert.Equal(t, "over the wire", string(got))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
