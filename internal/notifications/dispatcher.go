package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// webhookPayload is what a team's webhook receives.
type webhookPayload struct {
	Notification Notification `json:"notification"`
	Matter       MatterInfo   `json:"matter"`
	Client       ClientInfo   `json:"client"`
}

// Dispatcher persists intake notifications and delivers them to the team
// webhook. It implements Notifier.
type Dispatcher struct {
	store    *Store
	client   *http.Client
	webhooks WebhookResolver
	log      *zap.Logger
}

// NewDispatcher creates a Dispatcher backed by the given store. webhooks may
// be nil, in which case notifications are only stored.
func NewDispatcher(store *Store, webhooks WebhookResolver, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:    store,
		webhooks: webhooks,
		log:      logger.Named("notifications"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Notify records the event and posts it to the team webhook, if any. The
// notification is always stored before delivery is attempted; an error means
// it was not delivered.
func (d *Dispatcher) Notify(ctx context.Context, event EventType, matter MatterInfo, client ClientInfo) error {
	n, err := d.store.Create(ctx, Notification{
		TeamID:   matter.TeamID,
		Type:     event,
		Severity: severityFor(event, matter.Urgency),
		Title:    titleFor(event, matter),
		Message:  messageFor(event, matter, client),
		MatterID: matter.ID,
	})
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	url := ""
	if d.webhooks != nil {
		url = d.webhooks(matter.TeamID)
	}
	if url == "" {
		return nil
	}

	payload, err := json.Marshal(webhookPayload{Notification: n, Matter: matter, Client: client})
	if err != nil {
		return fmt.Errorf("marshalling webhook payload: %w", err)
	}
	if err := d.SendWebhook(ctx, url, payload); err != nil {
		return err
	}
	if err := d.store.MarkDelivered(ctx, n.ID); err != nil {
		d.log.Warn("marking notification delivered failed", zap.String("notification_id", n.ID), zap.Error(err))
	}
	return nil
}

// SendWebhook POSTs payload to the given URL.
func (d *Dispatcher) SendWebhook(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func severityFor(event EventType, urgency string) Severity {
	switch strings.ToLower(urgency) {
	case "urgent":
		return SeverityCritical
	case "high":
		return SeverityWarning
	}
	if event == TypeLawyerReviewRequested {
		return SeverityWarning
	}
	return SeverityInfo
}

func titleFor(event EventType, m MatterInfo) string {
	matterType := m.MatterType
	if matterType == "" {
		matterType = "General"
	}
	switch event {
	case TypeMatterCreated:
		return fmt.Sprintf("New %s matter", matterType)
	case TypeContactCollected:
		return "Contact details collected"
	case TypeLawyerReviewRequested:
		return fmt.Sprintf("Lawyer review requested (%s)", matterType)
	}
	return string(event)
}

// messageFor is the stored body. It carries the client name but no contact
// details; those only travel in the webhook payload.
func messageFor(event EventType, m MatterInfo, c ClientInfo) string {
	who := c.Name
	if who == "" {
		who = "A prospective client"
	}
	switch event {
	case TypeMatterCreated:
		return fmt.Sprintf("%s submitted a %s matter.", who, orGeneral(m.MatterType))
	case TypeContactCollected:
		return fmt.Sprintf("%s shared contact details.", who)
	case TypeLawyerReviewRequested:
		msg := fmt.Sprintf("%s asked to speak with a lawyer.", who)
		if m.Urgency != "" {
			msg += " Urgency: " + m.Urgency + "."
		}
		return msg
	}
	return who
}

func orGeneral(s string) string {
	if s == "" {
		return "general"
	}
	return s
}
