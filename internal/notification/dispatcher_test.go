package notification

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testIntent(event Event) Intent {
	return NewIntent(event, Recipient{UserID: 1, Email: "p@example.com"}, "Title", "Message", TypeAppointment)
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("smtp down")}
	ok := &recordingSink{name: "ok"}
	metrics := &mockDispatchMetrics{}

	d := NewDispatcher(8, 2, []Sink{failing, ok}, WithMetrics(metrics))
	d.Start()

	for i := 0; i < 3; i++ {
		if err := d.Enqueue(context.Background(), testIntent(EventNewBooking)); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Expected clean drain, got: %v", err)
	}

	if failing.count() != 3 || ok.count() != 3 {
		t.Errorf("Expected 3 deliveries per sink, got failing=%d ok=%d", failing.count(), ok.count())
	}
	if metrics.outcomes["failing:error"] != 3 || metrics.outcomes["ok:success"] != 3 {
		t.Errorf("Expected outcomes recorded per sink, got %v", metrics.outcomes)
	}
}

func TestDispatcher_QueueFullDoesNotBlock(t *testing.T) {
	sink := &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
	metrics := &mockDispatchMetrics{}

	d := NewDispatcher(1, 1, []Sink{sink}, WithMetrics(metrics))
	d.Start()

	// First intent occupies the only worker, second fills the queue.
	if err := d.Enqueue(context.Background(), testIntent(EventReminder)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	<-sink.started
	if err := d.Enqueue(context.Background(), testIntent(EventReminder)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- d.Enqueue(context.Background(), testIntent(EventReminder)) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueFull) {
			t.Errorf("Expected ErrQueueFull, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
	if metrics.dropped != 1 {
		t.Errorf("Expected 1 dropped intent, got %d", metrics.dropped)
	}

	close(sink.release)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Expected clean drain, got: %v", err)
	}
}

func TestDispatcher_EnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(1, 1, nil)
	d.Start()
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if err := d.Enqueue(context.Background(), testIntent(EventReminder)); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got: %v", err)
	}
	// Closing twice is harmless.
	if err := d.Close(context.Background()); err != nil {
		t.Errorf("Expected second close to succeed, got: %v", err)
	}
}

func TestDispatcher_CloseHonoursDeadline(t *testing.T) {
	sink := &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(1, 1, []Sink{sink})
	d.Start()
	defer close(sink.release)

	_ = d.Enqueue(context.Background(), testIntent(EventReminder))
	<-sink.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got: %v", err)
	}
}

func TestNewIntent(t *testing.T) {
	a := testIntent(EventSlotFreed)
	b := testIntent(EventSlotFreed)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected unique ids, got %q and %q", a.ID, b.ID)
	}
	if a.Inbox || a.Email {
		t.Error("Expected channels to be off by default")
	}
}
