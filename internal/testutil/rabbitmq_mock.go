package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/messaging"
)

// PublishedEvent is one captured Publish call.
type PublishedEvent struct {
	RoutingKey string
	EventData  interface{}
	Timestamp  time.Time
	RawJSON    []byte
}

// Notification decodes the captured payload as a notification event.
func (e PublishedEvent) Notification(t *testing.T) messaging.NotificationEvent {
	t.Helper()
	var evt messaging.NotificationEvent
	if err := json.Unmarshal(e.RawJSON, &evt); err != nil {
		t.Fatalf("Failed to decode %s payload: %v", e.RoutingKey, err)
	}
	return evt
}

// MockPublisher keeps published events in memory instead of talking to a
// broker.
type MockPublisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{
		RoutingKey: routingKey,
		EventData:  eventData,
		Timestamp:  time.Now(),
		RawJSON:    jsonData,
	})
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// GetEventsByKey returns the events published under routingKey, oldest first.
func (m *MockPublisher) GetEventsByKey(routingKey string) []PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []PublishedEvent
	for _, event := range m.events {
		if event.RoutingKey == routingKey {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func (m *MockPublisher) GetEventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// WaitForEvent polls until an event with routingKey arrives or timeout
// passes. Notifications are delivered by background workers.
func (m *MockPublisher) WaitForEvent(t *testing.T, routingKey string, timeout time.Duration) PublishedEvent {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if events := m.GetEventsByKey(routingKey); len(events) > 0 {
			return events[len(events)-1]
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for event '%s'", routingKey)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// AssertEventNotPublished asserts that no events with the given routing key were published
func (m *MockPublisher) AssertEventNotPublished(t *testing.T, routingKey string) {
	t.Helper()

	if count := len(m.GetEventsByKey(routingKey)); count > 0 {
		t.Errorf("Expected no events with routing key '%s', but found %d", routingKey, count)
	}
}

var _ messaging.PublisherInterface = (*MockPublisher)(nil)
