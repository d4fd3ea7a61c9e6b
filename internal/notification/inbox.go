package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("notification not found")

// DefaultInboxLimit is how many notifications a listing returns when the
// caller does not ask for a number.
const DefaultInboxLimit = 20

// Notification is one persisted inbox row.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// InboxStore is the persistence behind the in-app inbox.
type InboxStore interface {
	Create(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkAsRead(ctx context.Context, id, userID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) (int, error)
}

type InboxRepository struct {
	db *sql.DB
}

func NewInboxRepository(db *sql.DB) *InboxRepository {
	return &InboxRepository{db: db}
}

var _ InboxStore = (*InboxRepository)(nil)

func (r *InboxRepository) Create(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (user_id, title, message, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_read, created_at`

	err := r.db.QueryRowContext(ctx, query, n.UserID, n.Title, n.Message, string(n.Type)).
		Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *InboxRepository) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = DefaultInboxLimit
	}

	query := `
		SELECT id, user_id, title, message, type, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		var typ string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = Type(typ)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}

func (r *InboxRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkAsRead only touches rows owned by userID; anything else is reported
// as not found.
func (r *InboxRepository) MarkAsRead(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *InboxRepository) MarkAllAsRead(ctx context.Context, userID int64) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return int(n), nil
}

// InboxSink writes intents that ask for an inbox entry.
type InboxSink struct {
	store InboxStore
}

func NewInboxSink(store InboxStore) *InboxSink {
	return &InboxSink{store: store}
}

func (s *InboxSink) Name() string { return "inbox" }

func (s *InboxSink) Deliver(ctx context.Context, intent Intent) error {
	if !intent.Inbox || intent.Recipient.UserID == 0 {
		return nil
	}
	n := &Notification{
		UserID:  intent.Recipient.UserID,
		Title:   intent.Title,
		Message: intent.Message,
		Type:    intent.Type,
	}
	if n.Type == "" {
		n.Type = TypeSystem
	}
	return s.store.Create(ctx, n)
}
