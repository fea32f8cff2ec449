// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type ReceiverService struct {
	conf   Config
	log    *slog.Logger
	engine *gin.Engine
}

// NewReceiverService creates the upload directory and wires the router.
func NewReceiverService(conf Config, log *slog.Logger) (*ReceiverService, error) {
	conf = conf.withDefaults()
	if log == nil {
		log = slog.Default()
	}

	if err := os.MkdirAll(conf.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", conf.UploadDir, err)
	}

	s := &ReceiverService{conf: conf, log: log}
	s.engine = s.setupRouter()
	return s, nil
}

func (s *ReceiverService) Handler() http.Handler { return s.engine }

func (s *ReceiverService) setupRouter() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = s.conf.MaxMultipartMemory
	router.Use(gin.Recovery(), requestLogger(s.log))

	router.GET("/health", s.Health)
	router.POST("/upload", MaxBodySize(s.conf.MaxBodyBytes), s.Upload)
	return router
}

// ListenAndServe binds conf.Addr and serves until ctx is cancelled.
func (s *ReceiverService) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.conf.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.conf.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln; on ctx cancellation in-flight requests
// get shutdownTimeout to complete.
func (s *ReceiverService) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server started", "addr", ln.Addr().String(), "upload_dir", s.conf.UploadDir)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	<-errCh
	return nil
}
