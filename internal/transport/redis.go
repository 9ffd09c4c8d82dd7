package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis is the production PubSub. State snapshots ride pub/sub channels;
// the durable grade rides streams with a consumer group, so an action
// published while the consumer is briefly disconnected is held and
// redelivered instead of lost. Reconnection with bounded backoff rides the
// client's built-in retry.
type Redis struct {
	client *redis.Client

	mu   sync.Mutex
	subs []Subscription
}

// Dial connects to the broker and verifies the connection. Failures are
// classified as ErrUnauthorized (bad credentials) or ErrUnreachable so the
// caller can surface the right retry prompt.
func Dial(ctx context.Context, rawURL string) (*Redis, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing url: %v", ErrUnreachable, err)
	}
	opt.MinRetryBackoff = 250 * time.Millisecond
	opt.MaxRetryBackoff = 5 * time.Second

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return &Redis{client: client}, nil
}

func isAuthError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "NOAUTH") || strings.Contains(msg, "WRONGPASS")
}

func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := r.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error) {
	ps := r.client.Subscribe(ctx, topic)

	// Wait for the subscription to be confirmed before returning, so a
	// snapshot published right after Subscribe is not missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	sub := &redisSub{ps: ps}
	go func() {
		for msg := range ps.Channel() {
			h(msg.Channel, []byte(msg.Payload))
		}
	}()

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	return sub, nil
}

// streamGroup is the consumer group every durable subscriber joins. One
// group suffices: each topic has exactly one consuming host.
const streamGroup = "host"

// maxStreamLen bounds a room's action history; far more entries than any
// session produces.
const maxStreamLen = 4096

func (r *Redis) PublishDurable(ctx context.Context, topic string, payload []byte) error {
	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]any{"payload": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("appending to %s: %w", topic, err)
	}
	return nil
}

func (r *Redis) SubscribeDurable(ctx context.Context, topic string, h Handler) (Subscription, error) {
	err := r.client.XGroupCreateMkStream(ctx, topic, streamGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("creating consumer group on %s: %w", topic, err)
	}

	sub := &streamSub{done: make(chan struct{})}
	consumer := "consumer-" + uuid.NewString()

	go func() {
		// The "0" cursor first drains entries that were delivered but never
		// acknowledged before a restart; ">" then follows new entries.
		cursor := "0"
		for {
			select {
			case <-sub.done:
				return
			default:
			}

			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			res, err := r.client.XReadGroup(rctx, &redis.XReadGroupArgs{
				Group:    streamGroup,
				Consumer: consumer,
				Streams:  []string{topic, cursor},
				Count:    16,
				Block:    time.Second,
			}).Result()
			cancel()

			if errors.Is(err, redis.Nil) {
				cursor = ">"
				continue
			}
			if err != nil {
				select {
				case <-sub.done:
					return
				case <-time.After(250 * time.Millisecond):
				}
				continue
			}

			empty := true
			for _, stream := range res {
				for _, msg := range stream.Messages {
					empty = false
					if payload, ok := msg.Values["payload"].(string); ok {
						h(topic, []byte(payload))
					}
					// Ack after the handler returns, so a crash mid-handle
					// redelivers rather than drops.
					r.client.XAck(context.Background(), topic, streamGroup, msg.ID)
				}
			}
			if cursor == "0" && empty {
				cursor = ">"
			}
		}
	}()

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	return sub, nil
}

type streamSub struct {
	done chan struct{}
	once sync.Once
}

func (s *streamSub) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (r *Redis) Close() error {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return r.client.Close()
}

// Ping reports broker liveness for health checks.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type redisSub struct {
	ps   *redis.PubSub
	once sync.Once
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() { err = s.ps.Close() })
	return err
}
