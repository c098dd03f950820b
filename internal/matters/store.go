// Package matters persists the matters created at the end of an intake.
package matters

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

// Status is the review status of a matter.
type Status string

const (
	StatusNew      Status = "new"
	StatusInReview Status = "in_review"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusInReview, StatusAccepted, StatusDeclined:
		return true
	}
	return false
}

// Matter is a submitted intake.
type Matter struct {
	ID            string    `json:"id"`
	TeamID        string    `json:"team_id"`
	SessionID     string    `json:"session_id"`
	ClientName    string    `json:"client_name"`
	MatterType    string    `json:"matter_type"`
	Description   string    `json:"description,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Location      string    `json:"location,omitempty"`
	OpposingParty string    `json:"opposing_party,omitempty"`
	Summary       string    `json:"summary"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListFilter controls which matters are returned by List.
type ListFilter struct {
	TeamID string
	Status Status
	Limit  int
}

// Store provides persistence for matters.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Submit stores a new matter and returns it with its ID. It is the
// submission collaborator used by the create_matter tool.
func (s *Store) Submit(ctx context.Context, m Matter) (Matter, error) {
	if m.TeamID == "" || m.ClientName == "" || m.MatterType == "" {
		return Matter{}, fmt.Errorf("team, client name and matter type are required")
	}
	return s.Create(ctx, m)
}

// Create inserts m. If m.ID is empty a UUID is generated.
func (s *Store) Create(ctx context.Context, m Matter) (Matter, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = StatusNew
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matters (id, team_id, session_id, client_name, matter_type, description,
			email, phone, location, opposing_party, summary, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.TeamID, m.SessionID, m.ClientName, m.MatterType, m.Description,
		m.Email, m.Phone, m.Location, m.OpposingParty, m.Summary, string(m.Status), m.CreatedAt,
	)
	if err != nil {
		return Matter{}, fmt.Errorf("inserting matter: %w", err)
	}
	return m, nil
}

const selectColumns = `SELECT id, team_id, session_id, client_name, matter_type, description,
	email, phone, location, opposing_party, summary, status, created_at FROM matters`

// Get retrieves a matter. A missing matter returns nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*Matter, error) {
	m, err := scanMatter(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting matter %s: %w", id, err)
	}
	return m, nil
}

// List returns matters matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Matter, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.TeamID != "" {
		clauses = append(clauses, "team_id = ?")
		args = append(args, filter.TeamID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := selectColumns
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying matters: %w", err)
	}
	defer rows.Close()

	var out []Matter
	for rows.Next() {
		m, err := scanMatter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning matter: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// UpdateStatus changes a matter's review status.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid status %q", status)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE matters SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("updating matter status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("matter %s not found", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatter(sc scanner) (*Matter, error) {
	var (
		m      Matter
		status string
	)
	err := sc.Scan(&m.ID, &m.TeamID, &m.SessionID, &m.ClientName, &m.MatterType, &m.Description,
		&m.Email, &m.Phone, &m.Location, &m.OpposingParty, &m.Summary, &status, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Status = Status(status)
	return &m, nil
}
