// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"context"

	"github.com/scc-digitalhub/transfer-bench/sdk/services/transfer"
)

// Uploader is satisfied by *transfer.TransferService.
type Uploader interface {
	UploadObject(ctx context.Context, req transfer.ObjectRequest) transfer.Result
	UploadHTTP(ctx context.Context, req transfer.HTTPRequest) transfer.Result
	UploadSCP(ctx context.Context, req transfer.SCPRequest) transfer.Result
	DownloadObject(ctx context.Context, req transfer.ObjectRequest) transfer.Result
}

// Observer is told about each transport as it starts and finishes.
type Observer interface {
	Started(t transfer.Transport)
	Finished(r transfer.Result)
}

type BenchService struct {
	up  Uploader
	obs Observer
}

func NewBenchService(up Uploader, obs Observer) *BenchService {
	if obs == nil {
		obs = nopObserver{}
	}
	return &BenchService{up: up, obs: obs}
}

type nopObserver struct{}

func (nopObserver) Started(transfer.Transport) {}
func (nopObserver) Finished(transfer.Result)   {}
