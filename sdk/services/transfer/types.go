// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"encoding/json"
	"errors"
	"time"
)

type Transport string

const (
	TransportObjectStore    Transport = "object-store"
	TransportHTTP           Transport = "http"
	TransportSCP            Transport = "scp"
	TransportObjectDownload Transport = "object-store-download"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

var (
	ErrInvalidInput = errors.New("invalid input file")
	ErrBucketProbe  = errors.New("bucket check failed")
	ErrUpload       = errors.New("upload failed")
	ErrDownload     = errors.New("download failed")
	ErrSCPExit      = errors.New("secure copy failed")
)

// -------- Requests --------

type ObjectRequest struct {
	Input  string // file locale (obbligatorio)
	Bucket string // opzionale; default da S3Config
	Key    string // opzionale; default da S3Config
	// Destination is the local path used by DownloadObject.
	Destination string
}

type HTTPRequest struct {
	Input string
	URL   string // opzionale; default da HTTPConfig
}

type SCPRequest struct {
	Input string
}

// -------- Result --------

// Result is the outcome of one timed transfer. Duration is measured even when
// the transfer fails, so a fast failure is never mistaken for a fast success.
type Result struct {
	Transport  Transport
	Outcome    Outcome
	Duration   time.Duration
	StatusCode int   // HTTP only
	ExitCode   int   // scp only
	Bytes      int64 // size of the local file
	Err        error
}

func (r Result) Seconds() float64 {
	return r.Duration.Seconds()
}

func (r Result) Failed() bool {
	return r.Outcome == OutcomeFailed
}

func (r Result) ok() Result {
	r.Outcome = OutcomeSuccess
	return r
}

func (r Result) fail(err error) Result {
	r.Outcome = OutcomeFailed
	r.Err = err
	return r
}

// Skipped builds the placeholder recorded for a transport that never ran.
func Skipped(t Transport) Result {
	return Result{Transport: t, Outcome: OutcomeSkipped}
}

type resultJSON struct {
	Transport  Transport `json:"transport"`
	Outcome    Outcome   `json:"outcome"`
	Seconds    float64   `json:"seconds"`
	StatusCode int       `json:"status_code,omitempty"`
	ExitCode   int       `json:"exit_code,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	Error      string    `json:"error,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Transport:  r.Transport,
		Outcome:    r.Outcome,
		Seconds:    r.Seconds(),
		StatusCode: r.StatusCode,
		ExitCode:   r.ExitCode,
		Bytes:      r.Bytes,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}
