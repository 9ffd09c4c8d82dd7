package transport

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"
)

func collect(t *testing.T) (Handler, <-chan []byte) {
	t.Helper()
	ch := make(chan []byte, 32)
	return func(_ string, payload []byte) { ch <- payload }, ch
}

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func TestMemoryDeliversToSubscribers(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	h1, ch1 := collect(t)
	h2, ch2 := collect(t)
	if _, err := m.Subscribe(context.Background(), "rooms/AB/state", h1); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Subscribe(context.Background(), "rooms/AB/state", h2); err != nil {
		t.Fatal(err)
	}

	if err := m.Publish(context.Background(), "rooms/AB/state", []byte("hello")); err != nil {
		t.Fatal(err)
	}

	if got := string(recv(t, ch1)); got != "hello" {
		t.Errorf("sub1 got %q", got)
	}
	if got := string(recv(t, ch2)); got != "hello" {
		t.Errorf("sub2 got %q", got)
	}
}

func TestMemoryTopicIsolation(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	h, ch := collect(t)
	if _, err := m.Subscribe(context.Background(), "rooms/AB/actions", h); err != nil {
		t.Fatal(err)
	}

	if err := m.Publish(context.Background(), "rooms/CD/actions", []byte("other room")); err != nil {
		t.Fatal(err)
	}
	if err := m.Publish(context.Background(), "rooms/AB/actions", []byte("mine")); err != nil {
		t.Fatal(err)
	}

	if got := string(recv(t, ch)); got != "mine" {
		t.Errorf("got %q, want only own-topic message", got)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra delivery %q", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryUnsubscribeStopsDelivery(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	h, ch := collect(t)
	sub, err := m.Subscribe(context.Background(), "rooms/AB/state", h)
	if err != nil {
		t.Fatal(err)
	}
	if err := sub.Close(); err != nil {
		t.Fatal(err)
	}

	if err := m.Publish(context.Background(), "rooms/AB/state", []byte("late")); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-ch:
		t.Errorf("delivery after close: %q", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryPublishCopiesPayload(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	h, ch := collect(t)
	if _, err := m.Subscribe(context.Background(), "t", h); err != nil {
		t.Fatal(err)
	}

	payload := []byte("original")
	if err := m.Publish(context.Background(), "t", payload); err != nil {
		t.Fatal(err)
	}
	payload[0] = 'X'

	if got := string(recv(t, ch)); got != "original" {
		t.Errorf("got %q, publisher reuse of the buffer must not leak", got)
	}
}

func TestDurableReplaysBacklog(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	ctx := context.Background()
	for _, p := range []string{"one", "two", "three"} {
		if err := m.PublishDurable(ctx, "rooms/AB/actions", []byte(p)); err != nil {
			t.Fatal(err)
		}
	}

	// A subscriber arriving after the publishes still sees everything.
	h, ch := collect(t)
	if _, err := m.SubscribeDurable(ctx, "rooms/AB/actions", h); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"one", "two", "three"} {
		if got := string(recv(t, ch)); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestDurableNeverDrops(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	ctx := context.Background()
	var mu sync.Mutex
	var got []string
	_, err := m.SubscribeDurable(ctx, "rooms/AB/actions", func(_ string, p []byte) {
		mu.Lock()
		got = append(got, string(p))
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}

	// Well past any internal buffer; every payload must arrive, in order.
	const n = 100
	for i := range n {
		if err := m.PublishDurable(ctx, "rooms/AB/actions", []byte(strconv.Itoa(i))); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := len(got) == n
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != n {
		t.Fatalf("delivered %d of %d payloads", len(got), n)
	}
	for i, p := range got {
		if p != strconv.Itoa(i) {
			t.Fatalf("payload %d = %q, out of order", i, p)
		}
	}
}

func TestDurableUnsubscribeStopsDelivery(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	ctx := context.Background()
	h, ch := collect(t)
	sub, err := m.SubscribeDurable(ctx, "rooms/AB/actions", h)
	if err != nil {
		t.Fatal(err)
	}
	if err := sub.Close(); err != nil {
		t.Fatal(err)
	}

	if err := m.PublishDurable(ctx, "rooms/AB/actions", []byte("late")); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-ch:
		t.Errorf("delivery after close: %q", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTopics(t *testing.T) {
	tp := Topics{Prefix: "hayawan-v2", Room: "AB12C"}
	if got := tp.Actions(); got != "hayawan-v2/AB12C/actions" {
		t.Errorf("Actions() = %q", got)
	}
	if got := tp.State(); got != "hayawan-v2/AB12C/state" {
		t.Errorf("State() = %q", got)
	}
}
