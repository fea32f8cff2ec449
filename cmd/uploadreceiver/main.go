// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Command uploadreceiver accepts multipart uploads on POST /upload and
// stores them in a local directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/scc-digitalhub/transfer-bench/sdk/services/receiver"
	"github.com/scc-digitalhub/transfer-bench/sdk/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	_ = godotenv.Load() // ignore error if .env not found

	v := viper.New()
	fs := pflag.NewFlagSet("uploadreceiver", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := utils.RegisterFlags(v, fs, utils.ReceiverSettings{}, nil); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	utils.BindEnvFromStruct(v, utils.ReceiverEnvPrefix, utils.ReceiverSettings{})
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	var s utils.ReceiverSettings
	if err := utils.Decode(v, &s); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger, closeLog, err := utils.NewLogger(s.LogLevel, s.LogFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer closeLog()
	logger.Debug("Effective settings", utils.SettingsAttrs(v, utils.ReceiverSettings{})...)

	gin.SetMode(gin.ReleaseMode)
	svc, err := receiver.NewReceiverService(receiver.Config{
		Addr:         s.Addr,
		UploadDir:    s.UploadDir,
		MaxBodyBytes: s.MaxBodyBytes,
	}, logger)
	if err != nil {
		logger.Error("Failed to start receiver", "error", err)
		return 1
	}

	if err := svc.ListenAndServe(ctx); err != nil {
		logger.Error("Receiver stopped", "error", err)
		return 1
	}
	return 0
}
