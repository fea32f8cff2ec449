// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultFieldName is the multipart field carrying the uploaded file.
const DefaultFieldName = "file"

type CoreHTTP interface {
	PostFile(ctx context.Context, url, localPath string, hook *ProgressHook) (int, error)
}

type httpCore struct {
	httpClient *http.Client
	httpConfig HTTPConfig
}

// NewHTTPCore builds the multipart poster. With a nil client a dedicated one is
// created so that the Insecure switch never leaks into http.DefaultTransport.
func NewHTTPCore(httpClient *http.Client, httpConfig HTTPConfig) CoreHTTP {
	if httpConfig.FieldName == "" {
		httpConfig.FieldName = DefaultFieldName
	}
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if httpConfig.Insecure {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --http-insecure
		}
		httpClient = &http.Client{Transport: transport}
	}
	return &httpCore{httpClient: httpClient, httpConfig: httpConfig}
}

// PostFile streams localPath as a single multipart part and returns the response
// status code. Non-2xx codes are not errors.
func (httpCore *httpCore) PostFile(ctx context.Context, url, localPath string, hook *ProgressHook) (int, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat error: %w", err)
	}
	name := filepath.Base(localPath)

	pr, pw := io.Pipe()
	// unblocks the writer goroutine if the server answers before reading the whole body
	defer pr.Close()
	mw := multipart.NewWriter(pw)

	// the writer goroutine reports progress from its first read
	hook.start(name, info.Size())
	start := time.Now()

	go func() {
		part, err := mw.CreateFormFile(httpCore.httpConfig.FieldName, name)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		src := io.TeeReader(file, hook.writer(name, info.Size()))
		if _, err := io.Copy(part, src); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := httpCore.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	hook.done(name, info.Size(), time.Since(start))
	return resp.StatusCode, nil
}
