// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package services

import "context"

// Runner is a blocking loop that returns when ctx is done. Satisfied by
// *wal.RetryLoop and *wal.Compactor.
type Runner interface {
	Run(ctx context.Context) error
}

// WALService supervises one event WAL loop.
type WALService struct {
	runner Runner
	name   string
}

// NewWALRetryLoopService supervises the WAL retry loop. Each restart makes
// an immediate recovery pass.
func NewWALRetryLoopService(r Runner) *WALService {
	return &WALService{runner: r, name: "wal-retry-loop"}
}

// NewWALCompactorService supervises the WAL compactor.
func NewWALCompactorService(r Runner) *WALService {
	return &WALService{runner: r, name: "wal-compactor"}
}

// Serve implements suture.Service.
func (s *WALService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

func (s *WALService) String() string {
	return s.name
}
