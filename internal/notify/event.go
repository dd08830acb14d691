// Package notify fans reservation change events out to live viewers.
//
// Events are advisory: they tell a viewer that a group changed, not what it
// now contains. Viewers refetch on receipt, so dropping an event for a slow
// subscriber only delays a refresh.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Channel is the Postgres LISTEN/NOTIFY and Redis Pub/Sub channel name.
const Channel = "reservation_events"

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

type ChangeEvent struct {
	Type    EventType `json:"type"`
	GroupID string    `json:"groupId"`
}

type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// Subscriber hands out a stream of events published after the call. The
// stream closes when ctx is done or the returned func is called.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan ChangeEvent, func())
}

type Notifier interface {
	Publisher
	Subscriber
}

func Encode(ev ChangeEvent) ([]byte, error) {
	return json.Marshal(ev)
}

func Decode(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	switch ev.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return ChangeEvent{}, fmt.Errorf("decode change event: unknown type %q", ev.Type)
	}
	if ev.GroupID == "" {
		return ChangeEvent{}, fmt.Errorf("decode change event: empty groupId")
	}
	return ev, nil
}
