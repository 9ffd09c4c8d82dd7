// Package transport carries room-scoped publish/subscribe messaging.
// Each room owns two topics: "actions" (player intents toward the host)
// and "state" (canonical snapshots from the host toward everyone).
package transport

import (
	"context"
	"errors"
)

// Handler receives every payload delivered on a subscribed topic.
// Durable topics redeliver until acknowledged, so consumers must
// tolerate duplicates.
type Handler func(topic string, payload []byte)

// Subscription is an active topic subscription; Close stops delivery.
type Subscription interface {
	Close() error
}

// PubSub carries two delivery grades. Publish/Subscribe is fire-and-forget
// fanout, used for state snapshots: a missed snapshot is repaired by the
// next one through the version counter. PublishDurable/SubscribeDurable is
// at-least-once with acknowledgement, used for the actions topic, where a
// lost message is a lost player intent with no later message to heal it.
type PubSub interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error)
	PublishDurable(ctx context.Context, topic string, payload []byte) error
	SubscribeDurable(ctx context.Context, topic string, h Handler) (Subscription, error)
	Close() error
}

// Connection failures are split into two kinds so callers can present the
// right retry prompt.
var (
	ErrUnreachable  = errors.New("transport: broker unreachable")
	ErrUnauthorized = errors.New("transport: broker rejected credentials")
)

// Topics derives a room's topic names from the configured prefix.
type Topics struct {
	Prefix string
	Room   string
}

func (t Topics) Actions() string { return t.Prefix + "/" + t.Room + "/actions" }

func (t Topics) State() string { return t.Prefix + "/" + t.Room + "/state" }
