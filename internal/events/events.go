// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/validation"
)

// Topics
const (
	TopicEntryCreated   = "entry.created"
	TopicEntryUpdated   = "entry.updated"
	TopicEntryDeleted   = "entry.deleted"
	TopicEntryUndeleted = "entry.undeleted"
)

// AllTopics lists every entry topic.
var AllTopics = []string{TopicEntryCreated, TopicEntryUpdated, TopicEntryDeleted, TopicEntryUndeleted}

var actionTopics = map[string]string{
	"create":   TopicEntryCreated,
	"update":   TopicEntryUpdated,
	"delete":   TopicEntryDeleted,
	"undelete": TopicEntryUndeleted,
}

// TopicForAction returns the topic for a Micropub action.
func TopicForAction(action string) (string, bool) {
	t, ok := actionTopics[action]
	return t, ok
}

// EntryEvent describes one completed Micropub write.
type EntryEvent struct {
	EventID string `json:"event_id" validate:"required"`
	Action  string `json:"action" validate:"required,oneof=create update delete undelete"`
	EntryID string `json:"entry_id" validate:"required"`
	URL     string `json:"url" validate:"required,url"`
	UserID  string `json:"user_id,omitempty"`

	// SyndicateTo holds the mp-syndicate-to uids of the request.
	SyndicateTo []string `json:"syndicate_to,omitempty"`

	Entry      *models.Entry `json:"entry,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewEntryEvent builds an event for action on e.
func NewEntryEvent(action string, e *models.Entry, userID string, syndicateTo []string) *EntryEvent {
	return &EntryEvent{
		EventID:     uuid.NewString(),
		Action:      action,
		EntryID:     e.ID,
		URL:         e.URL,
		UserID:      userID,
		SyndicateTo: syndicateTo,
		Entry:       e,
		OccurredAt:  time.Now().UTC(),
	}
}

// Topic returns the topic the event is published on.
func (e *EntryEvent) Topic() string {
	return actionTopics[e.Action]
}

// Validate checks required fields.
func (e *EntryEvent) Validate() error {
	if verr := validation.ValidateStruct(e); verr != nil {
		return verr
	}
	return nil
}

// Marshal validates and encodes an event.
func Marshal(e *EntryEvent) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal decodes an event.
func Unmarshal(data []byte) (*EntryEvent, error) {
	var e EntryEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &e, nil
}
