package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/db"
)

// Record is a stored artifact.
type Record struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	SessionID   string    `json:"session_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Content     []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists rendered artifacts.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts r. If r.ID is empty a UUID is generated. The stored record
// is returned.
func (s *Store) Create(ctx context.Context, r Record) (Record, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, team_id, session_id, filename, content_type, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TeamID, r.SessionID, r.Filename, r.ContentType, r.Content, r.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("inserting artifact: %w", err)
	}
	return r, nil
}

// Get retrieves an artifact. A missing artifact returns nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var r Record
	err := s.db.QueryRowContext(ctx, `
		SELECT id, team_id, session_id, filename, content_type, content, created_at
		FROM artifacts WHERE id = ?`, id,
	).Scan(&r.ID, &r.TeamID, &r.SessionID, &r.Filename, &r.ContentType, &r.Content, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting artifact %s: %w", id, err)
	}
	return &r, nil
}

// ListBySession returns metadata for a session's artifacts, newest first.
func (s *Store) ListBySession(ctx context.Context, teamID, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, session_id, filename, content_type, created_at
		FROM artifacts WHERE team_id = ? AND session_id = ?
		ORDER BY created_at DESC`, teamID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.TeamID, &r.SessionID, &r.Filename, &r.ContentType, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
