// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"sigs.k8s.io/yaml"

	"github.com/scc-digitalhub/transfer-bench/sdk/services/transfer"
	"github.com/scc-digitalhub/transfer-bench/sdk/utils"
)

type label struct {
	start string
	name  string
}

var labels = map[transfer.Transport]label{
	transfer.TransportObjectStore:    {"Uploading to MinIO...", "MinIO Upload"},
	transfer.TransportHTTP:           {"Uploading via HTTP...", "HTTP Upload"},
	transfer.TransportSCP:            {"Uploading via SCP...", "SCP Upload"},
	transfer.TransportObjectDownload: {"Downloading from MinIO...", "MinIO Download"},
}

// TextObserver prints progress and timing lines as each transport completes.
type TextObserver struct {
	w   io.Writer
	red *color.Color
}

func NewTextObserver(w io.Writer) *TextObserver {
	return &TextObserver{w: w, red: color.New(color.FgRed)}
}

func (o *TextObserver) Started(t transfer.Transport) {
	fmt.Fprintln(o.w, labels[t].start)
}

func (o *TextObserver) Finished(r transfer.Result) {
	name := labels[r.Transport].name
	switch r.Outcome {
	case transfer.OutcomeSkipped:
		fmt.Fprintf(o.w, "%s skipped\n", name)
	case transfer.OutcomeFailed:
		_, _ = o.red.Fprintf(o.w, "%s failed after %.2f seconds: %v\n", name, r.Seconds(), r.Err)
	default:
		if r.Transport == transfer.TransportHTTP {
			fmt.Fprintf(o.w, "%s Time: %.2f seconds, Status Code: %d\n", name, r.Seconds(), r.StatusCode)
			return
		}
		fmt.Fprintf(o.w, "%s Time: %.2f seconds\n", name, r.Seconds())
	}
}

// WriteReport renders the whole report once, for the json and yaml formats.
// The short format is covered by TextObserver and writes nothing here.
func WriteReport(w io.Writer, report *Report, format string) error {
	switch utils.TranslateFormat(format) {
	case "json":
		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		b, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = w.Write(b)
		return err
	default:
		return nil
	}
}
