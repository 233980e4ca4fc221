// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(NewTestLogger(&buf)))

	logger.WithGroup("supervisor").Warn("service restarted", "service", "http", "attempt", 2)

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("Expected warn level, got: %s", out)
	}
	if !strings.Contains(out, `"supervisor.service":"http"`) {
		t.Errorf("Expected grouped attribute, got: %s", out)
	}
	if !strings.Contains(out, `"supervisor.attempt":2`) {
		t.Errorf("Expected grouped int attribute, got: %s", out)
	}
}

func TestWatermillAdapter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewWatermillAdapter(NewTestLogger(&buf)).With(watermill.LogFields{"topic": "entry.created"})

	adapter.Error("publish failed", errors.New("broker down"), watermill.LogFields{"uuid": "m1"})

	out := buf.String()
	for _, want := range []string{`"topic":"entry.created"`, `"uuid":"m1"`, `"error":"broker down"`, "publish failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in output, got: %s", want, out)
		}
	}
}
