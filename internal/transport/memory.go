package transport

import (
	"context"
	"sync"
)

// Memory is an in-process PubSub for tests and single-node runs. Plain
// subscribers get a buffered channel and drop when slow; durable topics
// keep a per-topic log that subscribers replay from the start, so nothing
// is ever dropped and a late subscriber still sees the backlog.
type Memory struct {
	mu    sync.RWMutex
	subs  map[string]map[*memorySub]struct{}
	logs  map[string][][]byte
	dsubs map[string]map[*durableSub]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		subs:  make(map[string]map[*memorySub]struct{}),
		logs:  make(map[string][][]byte),
		dsubs: make(map[string]map[*durableSub]struct{}),
	}
}

func (m *Memory) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for sub := range m.subs[topic] {
		select {
		case sub.ch <- append([]byte(nil), payload...):
		default:
			// Drop if subscriber is slow.
		}
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, topic string, h Handler) (Subscription, error) {
	sub := &memorySub{
		broker: m,
		topic:  topic,
		ch:     make(chan []byte, 16),
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	if m.subs[topic] == nil {
		m.subs[topic] = make(map[*memorySub]struct{})
	}
	m.subs[topic][sub] = struct{}{}
	m.mu.Unlock()

	go func() {
		for {
			select {
			case payload := <-sub.ch:
				h(topic, payload)
			case <-sub.done:
				return
			}
		}
	}()

	return sub, nil
}

func (m *Memory) PublishDurable(_ context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	m.logs[topic] = append(m.logs[topic], append([]byte(nil), payload...))
	subs := make([]*durableSub, 0, len(m.dsubs[topic]))
	for sub := range m.dsubs[topic] {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.wake()
	}
	return nil
}

func (m *Memory) SubscribeDurable(_ context.Context, topic string, h Handler) (Subscription, error) {
	sub := &durableSub{
		broker: m,
		topic:  topic,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	if m.dsubs[topic] == nil {
		m.dsubs[topic] = make(map[*durableSub]struct{})
	}
	m.dsubs[topic][sub] = struct{}{}
	m.mu.Unlock()

	go func() {
		for {
			m.mu.RLock()
			log := m.logs[topic]
			var payload []byte
			if sub.pos < len(log) {
				payload = log[sub.pos]
			}
			m.mu.RUnlock()

			if payload != nil {
				h(topic, payload)
				sub.pos++
				continue
			}

			select {
			case <-sub.notify:
			case <-sub.done:
				return
			}
		}
	}()

	return sub, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, subs := range m.subs {
		for sub := range subs {
			sub.stop()
		}
	}
	for _, subs := range m.dsubs {
		for sub := range subs {
			sub.stop()
		}
	}
	m.subs = make(map[string]map[*memorySub]struct{})
	m.dsubs = make(map[string]map[*durableSub]struct{})
	m.logs = make(map[string][][]byte)
	return nil
}

type memorySub struct {
	broker *Memory
	topic  string
	ch     chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *memorySub) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *memorySub) Close() error {
	s.broker.mu.Lock()
	delete(s.broker.subs[s.topic], s)
	if len(s.broker.subs[s.topic]) == 0 {
		delete(s.broker.subs, s.topic)
	}
	s.broker.mu.Unlock()

	s.stop()
	return nil
}

// durableSub replays a topic's log in order. pos is owned by the delivery
// goroutine; the log itself is guarded by the broker lock.
type durableSub struct {
	broker *Memory
	topic  string
	pos    int
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *durableSub) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *durableSub) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *durableSub) Close() error {
	s.broker.mu.Lock()
	delete(s.broker.dsubs[s.topic], s)
	s.broker.mu.Unlock()

	s.stop()
	return nil
}
