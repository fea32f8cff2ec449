// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExitError reports a secure-copy process that ran but exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("scp exited with status %d", e.Code)
	}
	return fmt.Sprintf("scp exited with status %d: %s", e.Code, e.Stderr)
}

type SCPClient struct {
	cfg SCPConfig
}

func NewSCPClient(cfg SCPConfig) *SCPClient {
	if cfg.Binary == "" {
		cfg.Binary = "scp"
	}
	return &SCPClient{cfg: cfg}
}

// Args builds the argv after the binary: options, source, user@host:path.
func (c *SCPClient) Args(localPath string) []string {
	args := make([]string, 0, len(c.cfg.Options)+2)
	args = append(args, c.cfg.Options...)
	return append(args, localPath, c.cfg.Destination())
}

// Copy runs the external process and waits for it. A process that cannot be
// started yields exit code -1; a non-zero exit yields an *ExitError.
func (c *SCPClient) Copy(ctx context.Context, localPath string) (int, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.cfg.Binary, c.Args(localPath)...)
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("failed to start command %s: %w", c.cfg.Binary, err)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return -1, fmt.Errorf("scp interrupted: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), &ExitError{
				Code:   exitErr.ExitCode(),
				Stderr: strings.TrimSpace(stderr.String()),
			}
		}
		return -1, err
	}
	return 0, nil
}
