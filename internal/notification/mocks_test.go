package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/go-gomail/gomail"
)

type MockInboxStore struct {
	CreateFunc        func(ctx context.Context, n *Notification) error
	ListForUserFunc   func(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error)
	UnreadCountFunc   func(ctx context.Context, userID int64) (int, error)
	MarkAsReadFunc    func(ctx context.Context, id, userID int64) error
	MarkAllAsReadFunc func(ctx context.Context, userID int64) (int, error)
}

func (m *MockInboxStore) Create(ctx context.Context, n *Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	return errors.New("not implemented")
}

func (m *MockInboxStore) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID, unreadOnly, limit)
	}
	return nil, errors.New("not implemented")
}

func (m *MockInboxStore) UnreadCount(ctx context.Context, userID int64) (int, error) {
	if m.UnreadCountFunc != nil {
		return m.UnreadCountFunc(ctx, userID)
	}
	return 0, errors.New("not implemented")
}

func (m *MockInboxStore) MarkAsRead(ctx context.Context, id, userID int64) error {
	if m.MarkAsReadFunc != nil {
		return m.MarkAsReadFunc(ctx, id, userID)
	}
	return errors.New("not implemented")
}

func (m *MockInboxStore) MarkAllAsRead(ctx context.Context, userID int64) (int, error) {
	if m.MarkAllAsReadFunc != nil {
		return m.MarkAllAsReadFunc(ctx, userID)
	}
	return 0, errors.New("not implemented")
}

// recordingSink keeps every delivered intent and can be told to fail.
type recordingSink struct {
	name string
	err  error

	mu        sync.Mutex
	delivered []Intent
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(ctx context.Context, intent Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, intent)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

// blockingSink holds every delivery until release is closed.
type blockingSink struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Deliver(ctx context.Context, intent Intent) error {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []any
	err    error
}

func (p *mockPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, eventData)
	return p.err
}

func (p *mockPublisher) Close() error { return nil }

type mockSender struct {
	sent []*gomail.Message
	err  error
}

func (s *mockSender) DialAndSend(m ...*gomail.Message) error {
	s.sent = append(s.sent, m...)
	return s.err
}

type mockDispatchMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	dropped  int
}

func (m *mockDispatchMetrics) RecordNotification(ctx context.Context, sink, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[sink+":"+outcome]++
}

func (m *mockDispatchMetrics) RecordNotificationDropped(ctx context.Context, event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}
