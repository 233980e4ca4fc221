// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/metrics"
)

// Transports
const (
	TransportMemory = "memory"
	TransportNATS   = "nats"
)

// ErrBusClosed is returned by Publish after Shutdown.
var ErrBusClosed = errors.New("events: bus is closed")

// Config configures a Bus.
type Config struct {
	Transport  string
	NATSURL    string
	BufferSize int64

	CloseTimeout         time.Duration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// DefaultConfig returns in-memory defaults.
func DefaultConfig() Config {
	return Config{
		Transport:            TransportMemory,
		BufferSize:           64,
		CloseTimeout:         10 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
	}
}

// Handler consumes one event. A returned error triggers a retry.
type Handler func(ctx context.Context, ev *EntryEvent) error

// Bus publishes entry events and dispatches them to registered handlers.
type Bus struct {
	pub    message.Publisher
	sub    message.Subscriber
	router *message.Router
	logger watermill.LoggerAdapter
	shared bool // pub and sub are one object

	mu      sync.Mutex
	closed  bool
	running bool
	done    chan error
	cancel  context.CancelFunc
}

// NewBus creates a bus on the configured transport.
func NewBus(cfg Config) (*Bus, error) {
	def := DefaultConfig()
	if cfg.Transport == "" {
		cfg.Transport = def.Transport
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = def.CloseTimeout
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = def.RetryInitialInterval
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = def.RetryMaxInterval
	}

	logger := logging.NewWatermillAdapter(logging.WithComponent("events"))

	var (
		pub    message.Publisher
		sub    message.Subscriber
		shared bool
		err    error
	)
	switch cfg.Transport {
	case TransportMemory:
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.BufferSize}, logger)
		pub, sub = ch, ch
		shared = true
	case TransportNATS:
		pub, sub, err = newNATSPubSub(cfg.NATSURL, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("events: unknown transport %q", cfg.Transport)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      2.0,
		Logger:          logger,
	}.Middleware)

	return &Bus{pub: pub, sub: sub, router: router, logger: logger, shared: shared}, nil
}

// Handle registers h for each topic. Handlers must be registered before
// Start.
func (b *Bus) Handle(name string, topics []string, h Handler) {
	for _, topic := range topics {
		handlerName := name + "." + topic
		b.router.AddConsumerHandler(handlerName, topic, b.sub, func(msg *message.Message) error {
			ev, err := Unmarshal(msg.Payload)
			if err != nil {
				// Undecodable messages are dropped rather than retried.
				metrics.RecordEventHandled(name, err)
				b.logger.Error("Dropping undecodable event", err, watermill.LogFields{"handler": handlerName})
				return nil
			}
			err = h(msg.Context(), ev)
			metrics.RecordEventHandled(name, err)
			return err
		})
	}
}

// Publish sends ev on its topic.
func (b *Bus) Publish(ctx context.Context, ev *EntryEvent) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	topic := ev.Topic()
	if topic == "" {
		return fmt.Errorf("events: no topic for action %q", ev.Action)
	}
	data, err := Marshal(ev)
	if err != nil {
		return err
	}

	msg := message.NewMessage(ev.EventID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("action", ev.Action)
	msg.Metadata.Set("entry_id", ev.EntryID)
	if rid := logging.RequestIDFromContext(ctx); rid != "" {
		msg.Metadata.Set("request_id", rid)
	}

	if err := b.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.RecordEventPublished(topic)
	return nil
}

// Start runs the router in the background and waits until its handlers
// are subscribed.
func (b *Bus) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("events: bus already running")
	}
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan error, 1)
	b.running = true
	b.mu.Unlock()

	go func() {
		b.done <- b.router.Run(runCtx)
	}()

	select {
	case <-b.router.Running():
		return nil
	case err := <-b.done:
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
		if err == nil {
			err = errors.New("events: router stopped during start")
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether Start succeeded and Shutdown has not run.
func (b *Bus) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Shutdown stops the router and closes the transport.
func (b *Bus) Shutdown(ctx context.Context) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	wasRunning := b.running
	b.running = false
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	if err := b.router.Close(); err != nil {
		logging.Warn().Err(err).Msg("Event router close")
	}
	if cancel != nil {
		cancel()
	}
	if wasRunning && done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			logging.Warn().Msg("Timed out waiting for event router")
		}
	}
	if err := b.pub.Close(); err != nil {
		logging.Warn().Err(err).Msg("Event publisher close")
	}
	if !b.shared {
		if err := b.sub.Close(); err != nil {
			logging.Warn().Err(err).Msg("Event subscriber close")
		}
	}
}
