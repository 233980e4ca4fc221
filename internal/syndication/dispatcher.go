// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package syndication

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/scribe/internal/events"
	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/metrics"
	"github.com/tomtom215/scribe/internal/mf2"
	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store"
)

// maxResponseSize bounds webhook response bodies.
const maxResponseSize = 64 << 10

// MetaSyndication holds the syndicated copies of an entry.
const MetaSyndication = models.MetaMF2Prefix + "syndication"

// errRejected marks a 4xx webhook response; it does not trip the breaker.
var errRejected = errors.New("syndication: webhook rejected the entry")

// DispatcherConfig configures delivery.
type DispatcherConfig struct {
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
	Client        *http.Client
}

// Dispatcher delivers entries to syndication webhooks.
type Dispatcher struct {
	provider *Provider
	entries  store.EntryStore
	client   *http.Client
	limiter  *rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker[string]
}

// Payload is the JSON body POSTed to a webhook.
type Payload struct {
	Action string        `json:"action"`
	Target string        `json:"target"`
	URL    string        `json:"url"`
	Entry  *models.Entry `json:"entry"`
}

type webhookResponse struct {
	URL string `json:"url"`
}

// NewDispatcher creates a dispatcher for the provider's targets.
func NewDispatcher(cfg DispatcherConfig, provider *Provider, entries store.EntryStore) *Dispatcher {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	d := &Dispatcher{
		provider: provider,
		entries:  entries,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breakers: make(map[string]*gobreaker.CircuitBreaker[string]),
	}
	for _, t := range provider.targets {
		d.breakers[t.UID] = newBreaker("syndication-" + t.UID)
	}
	return d
}

func newBreaker(name string) *gobreaker.CircuitBreaker[string] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Syndication circuit breaker state transition")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})
}

// HandleEvent is an events.Handler. Delivery failures are logged and
// counted but not retried; only a failed write-back returns an error.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev *events.EntryEvent) error {
	if ev.Action != "create" && ev.Action != "update" {
		return nil
	}
	if len(ev.SyndicateTo) == 0 || ev.Entry == nil {
		return nil
	}
	logger := logging.Ctx(ctx).With().Str("entry_id", ev.EntryID).Logger()

	var urls []string
	for _, uid := range ev.SyndicateTo {
		target, ok := d.provider.Lookup(uid)
		if !ok || target.Webhook == "" {
			logger.Debug().Str("target", uid).Msg("No webhook for syndication target")
			continue
		}
		u, err := d.deliver(ctx, target, ev)
		metrics.RecordSyndication(uid, err)
		if err != nil {
			logger.Warn().Err(err).Str("target", uid).Msg("Syndication delivery failed")
			continue
		}
		logger.Info().Str("target", uid).Str("syndication_url", u).Msg("Entry syndicated")
		if u != "" {
			urls = append(urls, u)
		}
	}

	if len(urls) == 0 {
		return nil
	}
	return d.recordURLs(ctx, ev.EntryID, urls)
}

func (d *Dispatcher) deliver(ctx context.Context, target Target, ev *events.EntryEvent) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(Payload{Action: ev.Action, Target: target.UID, URL: ev.URL, Entry: ev.Entry})
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	breaker := d.breakers[target.UID]
	if breaker == nil {
		breaker = newBreaker("syndication-" + target.UID)
	}
	return breaker.Execute(func() (string, error) {
		return d.post(ctx, target.Webhook, body)
	})
}

func (d *Dispatcher) post(ctx context.Context, webhook string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Scribe")
	if rid := logging.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", webhook, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("webhook returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("%w: status %d", errRejected, resp.StatusCode)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "json") || len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}
	var out webhookResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return strings.TrimSpace(out.URL), nil
}

// recordURLs appends urls to the entry's syndication property.
func (d *Dispatcher) recordURLs(ctx context.Context, entryID string, urls []string) error {
	e, err := d.entries.GetEntry(ctx, entryID)
	if err != nil {
		return fmt.Errorf("load entry %s: %w", entryID, err)
	}

	var vals []mf2.Value
	if raw, ok := e.Meta[MetaSyndication]; ok {
		if err := json.Unmarshal(raw, &vals); err != nil {
			return fmt.Errorf("decode %s: %w", MetaSyndication, err)
		}
	}
	changed := false
	for _, u := range urls {
		if !containsText(vals, u) {
			vals = append(vals, mf2.Scalar(u))
			changed = true
		}
	}
	if !changed {
		return nil
	}

	raw, err := json.Marshal(vals)
	if err != nil {
		return fmt.Errorf("encode %s: %w", MetaSyndication, err)
	}
	e.SetMeta(MetaSyndication, raw)
	if err := d.entries.UpdateEntry(ctx, e); err != nil {
		return fmt.Errorf("update entry %s: %w", entryID, err)
	}
	return nil
}

func containsText(vals []mf2.Value, s string) bool {
	for _, v := range vals {
		if v.Text() == s {
			return true
		}
	}
	return false
}
