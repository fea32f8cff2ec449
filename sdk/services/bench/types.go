// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"errors"
	"time"

	"github.com/scc-digitalhub/transfer-bench/sdk/services/transfer"
)

// Policy decides what happens to the remaining transports after a failure.
type Policy string

const (
	PolicyFailFast Policy = "fail-fast"
	PolicyContinue Policy = "continue"
)

var ErrTransfersFailed = errors.New("one or more transfers failed")

type RunRequest struct {
	Input string // file locale (obbligatorio)
	// DownloadPath enables the timed object-store download after the uploads.
	DownloadPath string
	Policy       Policy
	// Timeout bounds each transport separately; zero means no limit.
	Timeout time.Duration
}

type Report struct {
	RunID     string            `json:"run_id"     yaml:"run_id"`
	File      string            `json:"file"       yaml:"file"`
	Size      int64             `json:"size"       yaml:"size"`
	StartedAt time.Time         `json:"started_at" yaml:"started_at"`
	Policy    Policy            `json:"policy"     yaml:"policy"`
	Results   []transfer.Result `json:"results"    yaml:"results"`
}

// Result returns the recorded result for t, if any.
func (r *Report) Result(t transfer.Transport) (transfer.Result, bool) {
	for _, res := range r.Results {
		if res.Transport == t {
			return res, true
		}
	}
	return transfer.Result{}, false
}

func (r *Report) Failed() []transfer.Result {
	var out []transfer.Result
	for _, res := range r.Results {
		if res.Failed() {
			out = append(out, res)
		}
	}
	return out
}
