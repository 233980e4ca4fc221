// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package syndication

import (
	"context"

	"github.com/tomtom215/scribe/internal/micropub"
)

// Target is a configured syndication destination.
type Target struct {
	UID     string
	Name    string
	Webhook string
}

// Provider serves the configured targets to every user.
type Provider struct {
	targets []Target
}

var _ micropub.SyndicationTargetProvider = (*Provider)(nil)

// NewProvider creates a provider over targets.
func NewProvider(targets []Target) *Provider {
	return &Provider{targets: append([]Target(nil), targets...)}
}

// SyndicationTargets implements micropub.SyndicationTargetProvider.
func (p *Provider) SyndicationTargets(context.Context, string) ([]micropub.SyndicationTarget, error) {
	out := make([]micropub.SyndicationTarget, 0, len(p.targets))
	for _, t := range p.targets {
		out = append(out, micropub.SyndicationTarget{UID: t.UID, Name: t.Name})
	}
	return out, nil
}

// Lookup returns the target with uid.
func (p *Provider) Lookup(uid string) (Target, bool) {
	for _, t := range p.targets {
		if t.UID == uid {
			return t, true
		}
	}
	return Target{}, false
}
