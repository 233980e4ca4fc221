// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

//go:build !nats

package events

import (
	"errors"
	"testing"
)

func TestNATSTransportRequiresBuildTag(t *testing.T) {
	t.Parallel()

	_, err := NewBus(Config{Transport: TransportNATS, NATSURL: "nats://127.0.0.1:4222"})
	if !errors.Is(err, ErrNATSNotAvailable) {
		t.Errorf("NewBus() error = %v, want ErrNATSNotAvailable", err)
	}
}
