// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/scc-digitalhub/transfer-bench/sdk/config"
)

// UploadObject esegue:
// - verifica del bucket (HeadBucket) e creazione se mancante
// - upload del file, cronometrato
// A failing probe other than "not found" stops here: no upload is attempted.
func (s *TransferService) UploadObject(ctx context.Context, req ObjectRequest) Result {
	res := Result{Transport: TransportObjectStore}

	size, err := CheckInput(req.Input)
	if err != nil {
		return res.fail(err)
	}
	res.Bytes = size

	bucket, key := s.objectTarget(req)

	created, err := s.store.EnsureBucket(ctx, bucket)
	if err != nil {
		s.log.Error("Error checking bucket", "bucket", bucket, "error", err)
		return res.fail(fmt.Errorf("%w: %w", ErrBucketProbe, err))
	}
	if created {
		s.log.Info("Bucket created", "bucket", bucket)
	} else {
		s.log.Info("Bucket already exists", "bucket", bucket)
	}

	start := time.Now()
	err = s.store.UploadFile(ctx, bucket, key, req.Input, s.hook(TransportObjectStore))
	res.Duration = time.Since(start)
	if err != nil {
		return res.fail(fmt.Errorf("%w: %w", ErrUpload, err))
	}
	return res.ok()
}

// UploadHTTP posts the file as multipart field "file". The status code is
// reported as data: a 500 is a successful measurement of a failed upload.
func (s *TransferService) UploadHTTP(ctx context.Context, req HTTPRequest) Result {
	res := Result{Transport: TransportHTTP}

	size, err := CheckInput(req.Input)
	if err != nil {
		return res.fail(err)
	}
	res.Bytes = size

	url := req.URL
	if url == "" {
		url = s.conf.HTTP.URL
	}
	if url == "" {
		return res.fail(fmt.Errorf("%w: missing HTTP url", ErrInvalidInput))
	}

	start := time.Now()
	status, err := s.http.PostFile(ctx, url, req.Input, s.hook(TransportHTTP))
	res.Duration = time.Since(start)
	res.StatusCode = status
	if err != nil {
		return res.fail(fmt.Errorf("%w: %w", ErrUpload, err))
	}
	return res.ok()
}

// UploadSCP runs the external secure copy. The duration spans process start
// to exit; a non-zero exit is a failed outcome that still carries it.
func (s *TransferService) UploadSCP(ctx context.Context, req SCPRequest) Result {
	res := Result{Transport: TransportSCP}

	size, err := CheckInput(req.Input)
	if err != nil {
		return res.fail(err)
	}
	res.Bytes = size

	start := time.Now()
	code, err := s.scp.Copy(ctx, req.Input)
	res.Duration = time.Since(start)
	res.ExitCode = code
	if err != nil {
		var exitErr *config.ExitError
		if errors.As(err, &exitErr) {
			s.log.Warn("scp exited with non-zero status", "code", exitErr.Code, "stderr", exitErr.Stderr)
		}
		return res.fail(fmt.Errorf("%w: %w", ErrSCPExit, err))
	}
	return res.ok()
}

func (s *TransferService) objectTarget(req ObjectRequest) (string, string) {
	bucket := req.Bucket
	if bucket == "" {
		bucket = s.conf.S3.Bucket
	}
	key := req.Key
	if key == "" {
		key = s.conf.S3.ObjectKey
	}
	return bucket, key
}

// CheckInput verifies that path is a readable regular file and returns its size.
func CheckInput(path string) (int64, error) {
	if path == "" {
		return 0, fmt.Errorf("%w: missing required input file", ErrInvalidInput)
	}
	st, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: cannot access input: %w", ErrInvalidInput, err)
	}
	if !st.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is not a regular file", ErrInvalidInput, path)
	}
	return st.Size(), nil
}
