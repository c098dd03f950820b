package artifacts

import (
	"context"
	"fmt"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
)

// Service renders drafts and stores the result.
type Service struct {
	renderer Renderer
	store    *Store
}

// NewService combines a renderer with a store. A nil store skips
// persistence and only reports metadata.
func NewService(renderer Renderer, store *Store) *Service {
	return &Service{renderer: renderer, store: store}
}

// Generate renders draft for the session and returns the stored metadata.
func (s *Service) Generate(ctx context.Context, sessionID, teamID string, draft conversation.CaseDraft, clientName string, branding conversation.Branding) (conversation.ArtifactInfo, error) {
	a, err := s.renderer.Render(ctx, draft, clientName, branding)
	if err != nil {
		return conversation.ArtifactInfo{}, fmt.Errorf("rendering artifact: %w", err)
	}

	rec := Record{
		TeamID:      teamID,
		SessionID:   sessionID,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Content:     a.Content,
	}
	if s.store != nil {
		rec, err = s.store.Create(ctx, rec)
		if err != nil {
			return conversation.ArtifactInfo{}, err
		}
	}

	return conversation.ArtifactInfo{
		ID:          rec.ID,
		Filename:    rec.Filename,
		ContentType: rec.ContentType,
		Size:        len(rec.Content),
		GeneratedAt: rec.CreatedAt,
	}, nil
}
