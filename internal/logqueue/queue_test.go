package logqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/telemetry"
)

// MockSink is a test implementation of Sink
type MockSink struct {
	mu      sync.Mutex
	events  []model.Event
	err     error
	block   chan struct{}
	started chan struct{}
	closed  int
}

func (m *MockSink) Write(ctx context.Context, event model.Event) error {
	if m.started != nil {
		select {
		case m.started <- struct{}{}:
		default:
		}
	}
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *MockSink) Events() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Event(nil), m.events...)
}

// MockClock is a test implementation of Clock
type MockClock struct {
	now time.Time
}

func (m *MockClock) Now() time.Time {
	return m.now
}

func TestQueue_LogAndFlush(t *testing.T) {
	sink := &MockSink{}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	q := New(sink, &MockClock{now: now}, zerolog.Nop(), 10)
	defer q.Close()

	q.Log(model.Event{EventName: "purchase", User: model.User{UserID: "u1"}})
	q.Log(model.Event{EventName: "signup", User: model.User{UserID: "u2"}, Time: now.Add(-time.Hour)})

	if err := q.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	events := sink.Events()
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if !events[0].Time.Equal(now) {
		t.Errorf("Expected zero time to be stamped with %v, got %v", now, events[0].Time)
	}
	if !events[1].Time.Equal(now.Add(-time.Hour)) {
		t.Errorf("Expected caller time to be kept, got %v", events[1].Time)
	}
}

func TestQueue_LogExposure(t *testing.T) {
	sink := &MockSink{}
	q := New(sink, nil, zerolog.Nop(), 10)
	defer q.Close()

	q.LogExposure(model.Exposure{
		Kind:     model.ExposureConfig,
		User:     model.User{UserID: "u1"},
		Name:     "pricing",
		Metadata: map[string]string{"config": "pricing", "ruleID": "r"},
	})
	_ = q.Flush(context.Background())

	events := sink.Events()
	if len(events) != 1 || events[0].EventName != model.ConfigExposureEvent {
		t.Fatalf("Expected one config exposure event, got %v", events)
	}
	if events[0].Metadata["config"] != "pricing" {
		t.Errorf("Unexpected metadata %v", events[0].Metadata)
	}
}

func TestQueue_DropsWhenFull(t *testing.T) {
	sink := &MockSink{block: make(chan struct{}), started: make(chan struct{}, 1)}
	q := New(sink, nil, zerolog.Nop(), 1)

	before := testutil.ToFloat64(telemetry.LogQueueDropped)

	q.Log(model.Event{EventName: "first"})
	<-sink.started // worker is now stuck writing "first"
	q.Log(model.Event{EventName: "second"})
	q.Log(model.Event{EventName: "third"})

	if got := testutil.ToFloat64(telemetry.LogQueueDropped) - before; got != 1 {
		t.Errorf("Expected 1 dropped event, got %v", got)
	}

	close(sink.block)
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := len(sink.Events()); got != 2 {
		t.Errorf("Expected 2 written events, got %d", got)
	}
}

func TestQueue_CloseDrainsAndClosesSink(t *testing.T) {
	sink := &MockSink{}
	q := New(sink, nil, zerolog.Nop(), 100)

	for i := 0; i < 50; i++ {
		q.Log(model.Event{EventName: "e"})
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}

	if got := len(sink.Events()); got != 50 {
		t.Errorf("Expected 50 drained events, got %d", got)
	}
	if sink.closed != 1 {
		t.Errorf("Expected sink closed once, got %d", sink.closed)
	}
}

func TestQueue_LogAfterClose(t *testing.T) {
	sink := &MockSink{}
	q := New(sink, nil, zerolog.Nop(), 10)
	_ = q.Close()

	q.Log(model.Event{EventName: "late"})

	if err := q.Flush(context.Background()); err != nil {
		t.Errorf("Expected flush after close to be a no-op, got %v", err)
	}
	if len(sink.Events()) != 0 {
		t.Error("Expected event after close to be dropped")
	}
}

func TestQueue_FlushHonorsContext(t *testing.T) {
	sink := &MockSink{block: make(chan struct{}), started: make(chan struct{}, 1)}
	q := New(sink, nil, zerolog.Nop(), 10)
	defer func() {
		close(sink.block)
		_ = q.Close()
	}()

	q.Log(model.Event{EventName: "slow"})
	<-sink.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestQueue_SinkErrorDoesNotStopWorker(t *testing.T) {
	sink := &MockSink{err: errors.New("disk full")}
	q := New(sink, nil, zerolog.Nop(), 10)
	defer q.Close()

	q.Log(model.Event{EventName: "a"})
	q.Log(model.Event{EventName: "b"})
	if err := q.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	sink := &MockSink{}
	q := New(sink, nil, zerolog.Nop(), 1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q.Log(model.Event{EventName: "e"})
			}
		}()
	}
	wg.Wait()
	_ = q.Close()

	if got := len(sink.Events()); got != 500 {
		t.Errorf("Expected 500 events, got %d", got)
	}
}
