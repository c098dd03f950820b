// Package contextstore persists conversation contexts between turns. Loads
// never fail and saves are best effort: the conversation continues with the
// in-memory context whatever the backend does.
package contextstore

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/errs"
)

// Store loads and saves the context of one (session, team) pair.
type Store interface {
	Load(ctx context.Context, sessionID, teamID string) conversation.Context
	Save(ctx context.Context, c conversation.Context) bool
}

// Options configures a backed store.
type Options struct {
	TTL         time.Duration
	LoadTimeout time.Duration
	SaveTimeout time.Duration
	Logger      *zap.Logger
}

const (
	defaultTTL     = 24 * time.Hour
	defaultTimeout = 2 * time.Second
)

// BackedStore implements Store over a Backend.
type BackedStore struct {
	backend Backend
	opts    Options
	log     *zap.Logger
}

// New creates a store over backend. Zero options take defaults.
func New(backend Backend, opts Options) *BackedStore {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaultTimeout
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = defaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &BackedStore{backend: backend, opts: opts, log: log.Named("contextstore")}
}

// Key returns the backend key for a (session, team) pair. Both parts are
// query-escaped so the separator can never appear inside either of them.
func Key(sessionID, teamID string) string {
	return "intake:ctx:" + url.QueryEscape(teamID) + ":" + url.QueryEscape(sessionID)
}

// Load returns the stored context, or a fresh default when it is absent,
// expired, unreadable or corrupt.
func (s *BackedStore) Load(ctx context.Context, sessionID, teamID string) conversation.Context {
	fresh := conversation.New(sessionID, teamID)

	ctx, cancel := context.WithTimeout(ctx, s.opts.LoadTimeout)
	defer cancel()

	raw, ok, err := s.backend.Get(ctx, Key(sessionID, teamID))
	if err != nil {
		errs.Log(s.log, errs.Infrastructure(errs.CodeStoreUnavailable, err, map[string]any{
			"session_id": sessionID, "team_id": teamID, "op": "load",
		}), "context load failed, starting fresh")
		return fresh
	}
	if !ok {
		return fresh
	}

	var c conversation.Context
	if err := json.Unmarshal(raw, &c); err != nil {
		s.log.Warn("discarding corrupt context",
			zap.String("session_id", sessionID),
			zap.String("team_id", teamID),
			zap.Int("content_len", len(raw)),
			zap.Error(err))
		return fresh
	}

	// The key is authoritative for identity.
	c.SessionID, c.TeamID = sessionID, teamID
	if c.EstablishedMatters == nil {
		c.EstablishedMatters = []string{}
	}
	return c
}

// Save writes c and refreshes its TTL. It reports whether the write
// succeeded; failures are logged here.
func (s *BackedStore) Save(ctx context.Context, c conversation.Context) bool {
	raw, err := json.Marshal(c)
	if err != nil {
		errs.Log(s.log, errs.New(errs.CodeInternal, errs.GenericApology, errs.WithCause(err)), "encoding context")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.SaveTimeout)
	defer cancel()

	if err := s.backend.Put(ctx, Key(c.SessionID, c.TeamID), raw, s.opts.TTL); err != nil {
		errs.Log(s.log, errs.Infrastructure(errs.CodeStoreUnavailable, err, map[string]any{
			"session_id": c.SessionID, "team_id": c.TeamID, "op": "save",
		}), "context save failed, continuing with in-memory context")
		return false
	}
	return true
}
