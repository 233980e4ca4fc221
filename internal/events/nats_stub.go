// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

//go:build !nats

package events

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ErrNATSNotAvailable is returned when the binary was built without the
// nats tag.
var ErrNATSNotAvailable = errors.New("events: NATS transport not available (build with -tags nats)")

func newNATSPubSub(string, watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	return nil, nil, ErrNATSNotAvailable
}
