// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/scribe/internal/backup"
)

type fakeServer struct {
	listenErr error
	stop      chan struct{}
	once      sync.Once
	shutdowns atomic.Int32
}

func newFakeServer(listenErr error) *fakeServer {
	return &fakeServer{listenErr: listenErr, stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.once.Do(func() { close(f.stop) })
	return nil
}

func serveAsync(ctx context.Context, serve func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() { done <- serve(ctx) }()
	return done
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("service did not return")
	}
	return nil
}

func TestHTTPServerService(t *testing.T) {
	t.Parallel()

	t.Run("graceful shutdown", func(t *testing.T) {
		t.Parallel()
		srv := newFakeServer(nil)
		svc := NewHTTPServerService(srv, time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		done := serveAsync(ctx, svc.Serve)

		cancel()
		if err := waitErr(t, done); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
		if srv.shutdowns.Load() != 1 {
			t.Errorf("Shutdown called %d times", srv.shutdowns.Load())
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("address in use")
		svc := NewHTTPServerService(newFakeServer(boom), 0)

		err := waitErr(t, serveAsync(context.Background(), svc.Serve))
		if !errors.Is(err, boom) {
			t.Errorf("Serve() = %v, want %v", err, boom)
		}
	})

	if got := NewHTTPServerService(newFakeServer(nil), 0).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}

type fakeBus struct {
	startErr error
	running  atomic.Bool
	stopped  atomic.Int32
}

func (b *fakeBus) Start(context.Context) error {
	if b.startErr != nil {
		return b.startErr
	}
	b.running.Store(true)
	return nil
}

func (b *fakeBus) Shutdown(context.Context) {
	b.running.Store(false)
	b.stopped.Add(1)
}

func (b *fakeBus) IsRunning() bool { return b.running.Load() }

func TestEventBusService(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	svc := NewEventBusService(bus, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(ctx, svc.Serve)

	deadline := time.Now().Add(time.Second)
	for !bus.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("bus never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := waitErr(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if bus.IsRunning() || bus.stopped.Load() != 1 {
		t.Errorf("bus running=%v stopped=%d", bus.IsRunning(), bus.stopped.Load())
	}

	failing := NewEventBusService(&fakeBus{startErr: errors.New("no transport")}, 0)
	if err := failing.Serve(context.Background()); err == nil {
		t.Error("Serve() with failing Start returned nil")
	}
}

type fakeHub struct{ ran atomic.Bool }

func (h *fakeHub) RunWithContext(ctx context.Context) error {
	h.ran.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubService(t *testing.T) {
	t.Parallel()

	hub := &fakeHub{}
	svc := NewWebSocketHubService(hub)
	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(ctx, svc.Serve)
	cancel()

	if err := waitErr(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if !hub.ran.Load() {
		t.Error("hub loop never ran")
	}
	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q", svc.String())
	}
}

type fakeGC struct {
	runs atomic.Int32
	err  error
}

func (g *fakeGC) RunGC(context.Context) error {
	g.runs.Add(1)
	return g.err
}

func TestStoreGCService(t *testing.T) {
	t.Parallel()

	for _, gcErr := range []error{nil, errors.New("disk full")} {
		gc := &fakeGC{err: gcErr}
		svc := NewStoreGCService(gc, 10*time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())
		done := serveAsync(ctx, svc.Serve)

		deadline := time.Now().Add(2 * time.Second)
		for gc.runs.Load() < 2 {
			if time.Now().After(deadline) {
				t.Fatalf("GC ran %d times", gc.runs.Load())
			}
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
		if err := waitErr(t, done); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
	}
}

type fakeBackups struct {
	runs atomic.Int32
	err  error
}

func (b *fakeBackups) Create(context.Context) (*backup.Backup, error) {
	b.runs.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	return &backup.Backup{ID: "b1"}, nil
}

func TestBackupService(t *testing.T) {
	t.Parallel()

	for _, createErr := range []error{nil, backup.ErrInProgress, errors.New("disk full")} {
		creator := &fakeBackups{err: createErr}
		svc := NewBackupService(creator, 10*time.Millisecond)
		if svc.String() != "backup-scheduler" {
			t.Errorf("String() = %q", svc.String())
		}
		ctx, cancel := context.WithCancel(context.Background())
		done := serveAsync(ctx, svc.Serve)

		deadline := time.Now().Add(2 * time.Second)
		for creator.runs.Load() < 2 {
			if time.Now().After(deadline) {
				t.Fatalf("backup ran %d times", creator.runs.Load())
			}
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
		if err := waitErr(t, done); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
	}
}

type blockingRunner struct{ started chan struct{} }

func (r *blockingRunner) Run(ctx context.Context) error {
	close(r.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestWALServices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		newSvc func(Runner) *WALService
	}{
		{"wal-retry-loop", NewWALRetryLoopService},
		{"wal-compactor", NewWALCompactorService},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &blockingRunner{started: make(chan struct{})}
			svc := tt.newSvc(r)
			if svc.String() != tt.name {
				t.Errorf("String() = %q, want %q", svc.String(), tt.name)
			}

			ctx, cancel := context.WithCancel(context.Background())
			done := serveAsync(ctx, svc.Serve)
			<-r.started
			cancel()
			if err := waitErr(t, done); !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v", err)
			}
		})
	}
}
