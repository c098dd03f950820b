package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/db"
)

// ListFilter controls which notifications are returned by List.
type ListFilter struct {
	TeamID    string
	Type      EventType
	Delivered *bool
	Since     time.Time
	Limit     int
	Offset    int
}

// Store provides persistence for notifications.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new notification. If n.ID is empty a UUID is generated.
// The stored record is returned.
func (s *Store) Create(ctx context.Context, n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Severity == "" {
		n.Severity = SeverityInfo
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	delivered := 0
	if n.Delivered {
		delivered = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, team_id, type, severity, title, message, matter_id, delivered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.TeamID, string(n.Type), string(n.Severity), n.Title, n.Message,
		n.MatterID, delivered, n.CreatedAt,
	)
	if err != nil {
		return Notification{}, fmt.Errorf("inserting notification: %w", err)
	}
	return n, nil
}

// GetByID retrieves a single notification. A missing notification returns
// nil, nil.
func (s *Store) GetByID(ctx context.Context, id string) (*Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, team_id, type, severity, title, message, matter_id, delivered, created_at
		FROM notifications WHERE id = ?`, id)

	n, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification %s: %w", id, err)
	}
	return n, nil
}

// List returns notifications matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Notification, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.TeamID != "" {
		clauses = append(clauses, "team_id = ?")
		args = append(args, filter.TeamID)
	}
	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Delivered != nil {
		v := 0
		if *filter.Delivered {
			v = 1
		}
		clauses = append(clauses, "delivered = ?")
		args = append(args, v)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := "SELECT id, team_id, type, severity, title, message, matter_id, delivered, created_at FROM notifications"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanInto(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

// MarkDelivered sets delivered=1 for the given notification.
func (s *Store) MarkDelivered(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET delivered = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking notification delivered: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("notification %s not found", id)
	}
	return nil
}

// GetPending returns all undelivered notifications.
func (s *Store) GetPending(ctx context.Context) ([]Notification, error) {
	delivered := false
	return s.List(ctx, ListFilter{Delivered: &delivered})
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Notification, error) {
	var (
		n               Notification
		ntype, severity string
		delivered       int
	)

	err := sc.Scan(&n.ID, &n.TeamID, &ntype, &severity, &n.Title, &n.Message,
		&n.MatterID, &delivered, &n.CreatedAt)
	if err != nil {
		return nil, err
	}

	n.Type = EventType(ntype)
	n.Severity = Severity(severity)
	n.Delivered = delivered != 0
	return &n, nil
}
