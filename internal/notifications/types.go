package notifications

import (
	"context"
	"time"
)

// Severity indicates the importance of a notification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// EventType categorises the intake event that triggered the notification.
type EventType string

const (
	TypeMatterCreated         EventType = "matter_created"
	TypeContactCollected      EventType = "contact_collected"
	TypeLawyerReviewRequested EventType = "lawyer_review_requested"
)

// Notification is a single stored notification record.
type Notification struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	MatterID  string    `json:"matter_id,omitempty"`
	Delivered bool      `json:"delivered"`
	CreatedAt time.Time `json:"created_at"`
}

// MatterInfo describes the matter an event is about.
type MatterInfo struct {
	ID         string `json:"id,omitempty"`
	TeamID     string `json:"team_id"`
	SessionID  string `json:"session_id"`
	MatterType string `json:"matter_type,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Urgency    string `json:"urgency,omitempty"`
	Complexity string `json:"complexity,omitempty"`
}

// ClientInfo describes the prospective client.
type ClientInfo struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// Notifier delivers intake events to the firm. Callers treat failures as
// soft unless the notification is the deliverable.
type Notifier interface {
	Notify(ctx context.Context, event EventType, matter MatterInfo, client ClientInfo) error
}

// WebhookResolver returns the webhook URL for a team, or "" when the team
// has none.
type WebhookResolver func(teamID string) string
