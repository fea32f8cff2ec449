// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Command transferbench times the upload of one file to an object store,
// to an HTTP receiver and over scp, in this order.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/scc-digitalhub/transfer-bench/sdk/config"
	"github.com/scc-digitalhub/transfer-bench/sdk/services/bench"
	"github.com/scc-digitalhub/transfer-bench/sdk/services/transfer"
	"github.com/scc-digitalhub/transfer-bench/sdk/utils"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	programName = "transferbench"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	_ = godotenv.Load() // ignore error if .env not found

	v := viper.New()
	fs := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s --file <path> [flags]\n\n", programName)
		fs.PrintDefaults()
	}

	dynamic := map[string]string{
		utils.SCPUserKey: utils.DefaultSCPUser(),
		utils.ConfigKey:  utils.DefaultIniPath(),
	}
	if err := utils.RegisterFlags(v, fs, utils.BenchSettings{}, dynamic); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	utils.BindEnvFromStruct(v, utils.BenchEnvPrefix, utils.BenchSettings{})

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if _, err := utils.LoadProfile(v, v.GetString(utils.ConfigKey), v.GetString(utils.ProfileKey)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	var s utils.BenchSettings
	if err := utils.Decode(v, &s); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if err := validate(s); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return exitUsage
	}

	logger, closeLog, err := utils.NewLogger(s.LogLevel, s.LogFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer closeLog()
	logger.Debug("Effective settings", utils.SettingsAttrs(v, utils.BenchSettings{})...)

	if s.SaveProfile != "" {
		if err := utils.SaveProfile(v, s.Config, s.SaveProfile, utils.BenchSettings{}); err != nil {
			logger.Error("Failed to save profile", "profile", s.SaveProfile, "error", err)
			return exitUsage
		}
		logger.Info("Profile saved", "profile", s.SaveProfile, "path", s.Config)
	}

	opts := []transfer.Option{transfer.WithLogger(logger)}
	if s.Progress {
		opts = append(opts, transfer.WithProgress(func(t transfer.Transport) *config.ProgressHook {
			return utils.NewProgressHook(stderr, string(t))
		}))
	}
	svc, err := transfer.NewTransferService(ctx, buildConfig(s), opts...)
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return exitUsage
	}

	var obs bench.Observer
	textMode := utils.TranslateFormat(s.Output) == "short"
	if textMode {
		obs = bench.NewTextObserver(stdout)
	}

	policy := bench.PolicyFailFast
	if s.ContinueOnError {
		policy = bench.PolicyContinue
	}

	report, err := bench.NewBenchService(svc, obs).Run(ctx, bench.RunRequest{
		Input:        s.File,
		DownloadPath: s.MinioDownloadPath,
		Policy:       policy,
		Timeout:      s.Timeout,
	})
	if report == nil {
		logger.Error("Benchmark not started", "error", err)
		return exitUsage
	}
	if werr := bench.WriteReport(stdout, report, s.Output); werr != nil {
		logger.Error("Failed to write report", "error", werr)
	}
	if err != nil {
		logger.Debug("Run finished with failures", "error", err)
		return exitFailed
	}
	return exitOK
}

func validate(s utils.BenchSettings) error {
	if s.File == "" {
		return errors.New("--file is required")
	}
	switch strings.ToLower(s.Output) {
	case "", "text", "short", "json", "yaml", "yml":
	default:
		return fmt.Errorf("unsupported output format %q", s.Output)
	}
	if s.Timeout < 0 {
		return errors.New("--timeout must not be negative")
	}
	return nil
}

func buildConfig(s utils.BenchSettings) config.Config {
	return config.Config{
		S3: config.S3Config{
			EndpointURL: s.MinioEndpoint,
			Bucket:      s.MinioBucket,
			ObjectKey:   s.MinioObjectKey,
			AccessKey:   s.MinioAccessKey,
			SecretKey:   s.MinioSecretKey,
			Region:      s.MinioRegion,
			Client:      strings.ToLower(s.MinioClient),
		},
		HTTP: config.HTTPConfig{
			URL:       s.HTTPURL,
			FieldName: config.DefaultFieldName,
			Insecure:  s.HTTPInsecure,
		},
		SCP: config.SCPConfig{
			User:       s.SCPUser,
			Host:       s.SCPHost,
			RemotePath: s.SCPRemotePath,
			Binary:     s.SCPBinary,
			Options:    splitOptions(s.SCPOptions),
		},
	}
}

// splitOptions turns each "-o BatchMode=yes" into separate argv elements.
func splitOptions(opts []string) []string {
	var out []string
	for _, o := range opts {
		out = append(out, strings.Fields(o)...)
	}
	return out
}
