package bus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/threadwarden/threadwarden/internal/common/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      "debug",
		Format:     "console",
		OutputPath: "stdout",
	})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

func TestNewMemoryEventBus(t *testing.T) {
	bus := NewMemoryEventBus(newTestLogger(t))

	if bus == nil {
		t.Fatal("expected non-nil bus")
	}
	if !bus.IsConnected() {
		t.Error("expected bus to be connected")
	}
}

func TestMemoryEventBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryEventBus(newTestLogger(t))
	defer bus.Close()

	ctx := context.Background()
	received := make(chan *Event, 1)

	sub, err := bus.Subscribe(SubjectThreadNotified, func(ctx context.Context, event *Event) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	event := NewEvent(SubjectThreadNotified, "scanner", map[string]interface{}{"thread_id": "t-1"})
	if err := bus.Publish(ctx, SubjectThreadNotified, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case e := <-received:
		if e.ID != event.ID {
			t.Errorf("expected event ID %s, got %s", event.ID, e.ID)
		}
		if e.Data["thread_id"] != "t-1" {
			t.Errorf("expected thread_id t-1, got %v", e.Data["thread_id"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestMemoryEventBus_WildcardSubscription(t *testing.T) {
	bus := NewMemoryEventBus(newTestLogger(t))
	defer bus.Close()

	ctx := context.Background()
	var count int32

	_, err := bus.Subscribe("thread.*", func(ctx context.Context, event *Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	subjects := []string{SubjectThreadNotified, SubjectThreadArchived, SubjectThreadContinued}
	for _, subject := range subjects {
		event := NewEvent(subject, "test", nil)
		if err := bus.Publish(ctx, subject, event); err != nil {
			t.Fatalf("Publish to %s failed: %v", subject, err)
		}
	}

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&count) < int32(len(subjects)) {
		select {
		case <-deadline:
			t.Fatalf("expected %d events, got %d", len(subjects), atomic.LoadInt32(&count))
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryEventBus(newTestLogger(t))
	defer bus.Close()

	ctx := context.Background()
	var count int32

	sub, err := bus.Subscribe(SubjectThreadArchived, func(ctx context.Context, event *Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if sub.IsValid() {
		t.Error("expected subscription to be invalid after unsubscribe")
	}

	event := NewEvent(SubjectThreadArchived, "test", nil)
	if err := bus.Publish(ctx, SubjectThreadArchived, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&count) != 0 {
		t.Errorf("expected no deliveries after unsubscribe, got %d", atomic.LoadInt32(&count))
	}
}

func TestMemoryEventBus_PublishAfterClose(t *testing.T) {
	bus := NewMemoryEventBus(newTestLogger(t))
	bus.Close()

	if bus.IsConnected() {
		t.Error("expected bus to be disconnected after close")
	}

	event := NewEvent(SubjectThreadNotified, "test", nil)
	if err := bus.Publish(context.Background(), SubjectThreadNotified, event); err == nil {
		t.Error("expected error publishing to closed bus")
	}
}
