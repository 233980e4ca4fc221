// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package services

import (
	"context"
	"time"

	"github.com/tomtom215/scribe/internal/logging"
)

// GarbageCollector reclaims store space.
type GarbageCollector interface {
	RunGC(ctx context.Context) error
}

// StoreGCService runs GC on a fixed interval. GC errors are logged, not
// returned, so a transient failure does not restart the service.
type StoreGCService struct {
	gc       GarbageCollector
	interval time.Duration
	name     string
}

// NewStoreGCService wraps gc.
func NewStoreGCService(gc GarbageCollector, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{gc: gc, interval: interval, name: "store-gc"}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.gc.RunGC(ctx); err != nil && ctx.Err() == nil {
				logging.Warn().Err(err).Msg("Store garbage collection failed")
				continue
			}
			logging.Debug().Dur("duration", time.Since(start)).Msg("Store garbage collection finished")
		}
	}
}

func (s *StoreGCService) String() string {
	return s.name
}
