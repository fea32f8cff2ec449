// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/scc-digitalhub/transfer-bench/sdk/config"
)

/* ------------ tiny UI helpers for single-line progress ------------ */

type globalProgress struct {
	mu         sync.Mutex
	out        io.Writer
	label      string
	totalKnown bool
	totalBytes int64
	doneBytes  int64
	spinIdx    int
	lastTick   time.Time
}

var spinner = []rune{'|', '/', '-', '\\'}

func humanBytes(n int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case n >= GB:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(GB))
	case n >= MB:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(MB))
	case n >= KB:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(KB))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func (gp *globalProgress) render(force bool) {
	// throttling: update ~10 times each seconds to avoid “spamming”
	if !force && time.Since(gp.lastTick) < 100*time.Millisecond {
		return
	}
	gp.lastTick = time.Now()

	if gp.totalKnown && gp.totalBytes > 0 {
		if gp.doneBytes > gp.totalBytes {
			gp.doneBytes = gp.totalBytes
		}
		pct := float64(gp.doneBytes) / float64(gp.totalBytes) * 100
		fmt.Fprintf(gp.out, "\r%s: %6.2f%% (%s / %s)   ",
			gp.label, pct, humanBytes(gp.doneBytes), humanBytes(gp.totalBytes))
	} else {
		ch := spinner[gp.spinIdx%len(spinner)]
		gp.spinIdx++
		fmt.Fprintf(gp.out, "\r%s: [%c] %s   ", gp.label, ch, humanBytes(gp.doneBytes))
	}
}

// NewProgressHook returns a hook drawing a single refreshing line on out
// (usually stderr) for one transfer.
func NewProgressHook(out io.Writer, label string) *config.ProgressHook {
	gp := &globalProgress{out: out, label: label}
	return &config.ProgressHook{
		OnStart: func(_ string, total int64) {
			gp.mu.Lock()
			defer gp.mu.Unlock()
			gp.totalKnown = total > 0
			gp.totalBytes = total
			gp.doneBytes = 0
			gp.render(true)
		},
		OnProgress: func(_ string, written, total int64) {
			gp.mu.Lock()
			defer gp.mu.Unlock()
			if total > 0 {
				gp.totalKnown = true
				gp.totalBytes = total
			}
			gp.doneBytes = written
			gp.render(false)
		},
		OnDone: func(_ string, total int64, _ time.Duration) {
			gp.mu.Lock()
			defer gp.mu.Unlock()
			if total > 0 {
				gp.doneBytes = total
			}
			gp.render(true)
			fmt.Fprintln(gp.out)
		},
	}
}
