// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package services

import (
	"context"
	"fmt"
	"time"
)

// EventBusRunner is the lifecycle of events.Bus.
type EventBusRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// EventBusService starts the event router and stops it on cancel.
type EventBusService struct {
	bus             EventBusRunner
	shutdownTimeout time.Duration
	name            string
}

// NewEventBusService wraps bus.
func NewEventBusService(bus EventBusRunner, shutdownTimeout time.Duration) *EventBusService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EventBusService{
		bus:             bus,
		shutdownTimeout: shutdownTimeout,
		name:            "event-bus",
	}
}

// Serve implements suture.Service.
func (s *EventBusService) Serve(ctx context.Context) error {
	if err := s.bus.Start(ctx); err != nil {
		return fmt.Errorf("event bus start failed: %w", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.bus.Shutdown(shutdownCtx)

	return ctx.Err()
}

func (s *EventBusService) String() string {
	return s.name
}
