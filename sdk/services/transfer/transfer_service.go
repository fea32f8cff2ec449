// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scc-digitalhub/transfer-bench/sdk/config"
)

// ObjectStore is implemented by config.S3Client and config.MinioClient.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) (bool, error)
	UploadFile(ctx context.Context, bucket, key, localPath string, hook *config.ProgressHook) error
	DownloadFile(ctx context.Context, bucket, key, localPath string, hook *config.ProgressHook) error
}

// Copier runs a secure copy and returns the process exit code.
type Copier interface {
	Copy(ctx context.Context, localPath string) (int, error)
}

// HookFactory returns the progress hook for a transport, or nil for none.
type HookFactory func(t Transport) *config.ProgressHook

type TransferService struct {
	conf  config.Config
	store ObjectStore
	http  config.CoreHTTP
	scp   Copier
	hooks HookFactory
	log   *slog.Logger
}

type Option func(*TransferService)

func WithObjectStore(store ObjectStore) Option {
	return func(s *TransferService) { s.store = store }
}

func WithHTTPCore(core config.CoreHTTP) Option {
	return func(s *TransferService) { s.http = core }
}

func WithCopier(c Copier) Option {
	return func(s *TransferService) { s.scp = c }
}

func WithProgress(f HookFactory) Option {
	return func(s *TransferService) { s.hooks = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *TransferService) { s.log = l }
}

func NewTransferService(ctx context.Context, conf config.Config, opts ...Option) (*TransferService, error) {
	s := &TransferService{conf: conf, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		store, err := newObjectStore(ctx, conf.S3)
		if err != nil {
			return nil, fmt.Errorf("S3 init failed: %w", err)
		}
		s.store = store
	}
	if s.http == nil {
		s.http = config.NewHTTPCore(nil, conf.HTTP)
	}
	if s.scp == nil {
		s.scp = config.NewSCPClient(conf.SCP)
	}
	return s, nil
}

func newObjectStore(ctx context.Context, cfg config.S3Config) (ObjectStore, error) {
	switch cfg.Client {
	case "", config.ClientAWS:
		return config.NewS3Client(ctx, cfg)
	case config.ClientMinio:
		return config.NewMinioClient(cfg)
	default:
		return nil, fmt.Errorf("unknown object store client %q", cfg.Client)
	}
}

func (s *TransferService) hook(t Transport) *config.ProgressHook {
	if s.hooks == nil {
		return nil
	}
	return s.hooks(t)
}
