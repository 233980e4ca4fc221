// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/micropub", "201"))
	RecordHTTPRequest("POST", "/micropub", "201", 15*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/micropub", "201"))

	if after-before != 1 {
		t.Errorf("Expected counter to increase by 1, got %v", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(HTTPActiveRequests); got != before+1 {
		t.Errorf("Expected %v active requests, got %v", before+1, got)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(HTTPActiveRequests); got != before {
		t.Errorf("Expected %v active requests, got %v", before, got)
	}
}

func TestRecordMediaUpload(t *testing.T) {
	ok := testutil.ToFloat64(MediaUploads.WithLabelValues("upload", "success"))
	failed := testutil.ToFloat64(MediaUploads.WithLabelValues("url", "error"))
	bytes := testutil.ToFloat64(MediaUploadBytes)

	RecordMediaUpload("upload", 1024, nil)
	RecordMediaUpload("url", 0, errors.New("too large"))

	if got := testutil.ToFloat64(MediaUploads.WithLabelValues("upload", "success")); got != ok+1 {
		t.Errorf("Expected success count %v, got %v", ok+1, got)
	}
	if got := testutil.ToFloat64(MediaUploads.WithLabelValues("url", "error")); got != failed+1 {
		t.Errorf("Expected error count %v, got %v", failed+1, got)
	}
	if got := testutil.ToFloat64(MediaUploadBytes); got != bytes+1024 {
		t.Errorf("Expected %v bytes, got %v", bytes+1024, got)
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	tests := []struct {
		to   string
		want float64
	}{
		{"open", 2},
		{"half-open", 1},
		{"closed", 0},
	}
	for _, tt := range tests {
		RecordBreakerTransition("test-breaker", "closed", tt.to)
		if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("test-breaker")); got != tt.want {
			t.Errorf("state %s: gauge = %v, want %v", tt.to, got, tt.want)
		}
	}
}

func TestRecordMicropubAction(t *testing.T) {
	before := testutil.ToFloat64(MicropubActions.WithLabelValues("create", "invalid_request"))
	RecordMicropubAction("create", "invalid_request")
	if got := testutil.ToFloat64(MicropubActions.WithLabelValues("create", "invalid_request")); got != before+1 {
		t.Errorf("Expected %v, got %v", before+1, got)
	}
}

func TestRecordBackup(t *testing.T) {
	ok := testutil.ToFloat64(Backups.WithLabelValues("success"))
	failed := testutil.ToFloat64(Backups.WithLabelValues("error"))

	RecordBackup(4096, nil)
	RecordBackup(0, errors.New("disk full"))

	if got := testutil.ToFloat64(Backups.WithLabelValues("success")); got != ok+1 {
		t.Errorf("success backups = %v, want %v", got, ok+1)
	}
	if got := testutil.ToFloat64(Backups.WithLabelValues("error")); got != failed+1 {
		t.Errorf("failed backups = %v, want %v", got, failed+1)
	}
	if got := testutil.ToFloat64(BackupLastSizeBytes); got != 4096 {
		t.Errorf("last backup size = %v, want 4096", got)
	}
}

func TestRecordWALOp(t *testing.T) {
	before := testutil.ToFloat64(WALOperations.WithLabelValues("compacted"))
	RecordWALOp("compacted", 3)
	if got := testutil.ToFloat64(WALOperations.WithLabelValues("compacted")); got != before+3 {
		t.Errorf("compacted = %v, want %v", got, before+3)
	}
	SetWALPending(7)
	if got := testutil.ToFloat64(WALPendingEntries); got != 7 {
		t.Errorf("pending = %v, want 7", got)
	}
}
