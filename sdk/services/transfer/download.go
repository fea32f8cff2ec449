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
)

// DownloadObject times the retrieval of bucket/key into req.Destination.
// The bucket is not probed: it is expected to hold the object just uploaded.
func (s *TransferService) DownloadObject(ctx context.Context, req ObjectRequest) Result {
	res := Result{Transport: TransportObjectDownload}

	if req.Destination == "" {
		return res.fail(fmt.Errorf("%w: missing download destination", ErrInvalidInput))
	}

	st, statErr := os.Stat(req.Destination)
	existed := statErr == nil
	if existed && st.IsDir() {
		return res.fail(fmt.Errorf("%w: download destination %s is a directory", ErrInvalidInput, req.Destination))
	}

	bucket, key := s.objectTarget(req)

	start := time.Now()
	err := s.store.DownloadFile(ctx, bucket, key, req.Destination, s.hook(TransportObjectDownload))
	res.Duration = time.Since(start)
	if err != nil {
		// non lasciare file parziali, ma solo se li abbiamo creati noi
		if !existed {
			if rmErr := os.Remove(req.Destination); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				s.log.Warn("failed to remove partial download", "path", req.Destination, "error", rmErr)
			}
		}
		return res.fail(fmt.Errorf("%w: %w", ErrDownload, err))
	}

	if st, err := os.Stat(req.Destination); err == nil {
		res.Bytes = st.Size()
	}
	return res.ok()
}
