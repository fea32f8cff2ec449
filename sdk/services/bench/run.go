// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scc-digitalhub/transfer-bench/sdk/services/transfer"
	"github.com/scc-digitalhub/transfer-bench/sdk/utils"
)

type step struct {
	transport transfer.Transport
	run       func(ctx context.Context) transfer.Result
}

// steps returns the transports in their fixed order: object store, HTTP, scp,
// then the optional download.
func (s *BenchService) steps(req RunRequest) []step {
	steps := []step{
		{transfer.TransportObjectStore, func(ctx context.Context) transfer.Result {
			return s.up.UploadObject(ctx, transfer.ObjectRequest{Input: req.Input})
		}},
		{transfer.TransportHTTP, func(ctx context.Context) transfer.Result {
			return s.up.UploadHTTP(ctx, transfer.HTTPRequest{Input: req.Input})
		}},
		{transfer.TransportSCP, func(ctx context.Context) transfer.Result {
			return s.up.UploadSCP(ctx, transfer.SCPRequest{Input: req.Input})
		}},
	}
	if req.DownloadPath != "" {
		steps = append(steps, step{transfer.TransportObjectDownload, func(ctx context.Context) transfer.Result {
			return s.up.DownloadObject(ctx, transfer.ObjectRequest{Input: req.Input, Destination: req.DownloadPath})
		}})
	}
	return steps
}

// Run executes every transport sequentially and collects their results.
// With PolicyFailFast the first failure ends the run and the remaining
// transports are recorded as skipped; with PolicyContinue all of them run.
// The report is returned even when the error is non-nil.
func (s *BenchService) Run(ctx context.Context, req RunRequest) (*Report, error) {
	size, err := transfer.CheckInput(req.Input)
	if err != nil {
		return nil, err
	}
	if req.Policy == "" {
		req.Policy = PolicyFailFast
	}

	report := &Report{
		RunID:     utils.UUIDv4NoDash(),
		File:      req.Input,
		Size:      size,
		StartedAt: time.Now().UTC(),
		Policy:    req.Policy,
	}

	var failures []error
	steps := s.steps(req)
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			s.skip(report, steps[i:])
			break
		}

		s.obs.Started(st.transport)
		res := runStep(ctx, req.Timeout, st)
		report.Results = append(report.Results, res)
		s.obs.Finished(res)

		if res.Failed() {
			failures = append(failures, fmt.Errorf("%s: %w", res.Transport, res.Err))
			if req.Policy != PolicyContinue {
				s.skip(report, steps[i+1:])
				break
			}
		}
	}

	if len(failures) > 0 {
		return report, fmt.Errorf("%w: %w", ErrTransfersFailed, errors.Join(failures...))
	}
	return report, nil
}

func runStep(ctx context.Context, timeout time.Duration, st step) transfer.Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return st.run(ctx)
}

func (s *BenchService) skip(report *Report, rest []step) {
	for _, st := range rest {
		res := transfer.Skipped(st.transport)
		report.Results = append(report.Results, res)
		s.obs.Finished(res)
	}
}
