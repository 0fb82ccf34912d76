// Package drafts keeps unsaved submission forms per user so a reload or a second
// device does not lose work.
package drafts

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
	"github.com/rs/zerolog/log"
)

// NewProjectKey addresses the draft of a submission that has no project yet.
const NewProjectKey = "new"

// Draft is a saved form payload. Stale is set on read when the project it edits
// changed after SavedAt.
type Draft struct {
	Key     string          `json:"key"`
	Payload json.RawMessage `json:"payload"`
	SavedAt time.Time       `json:"saved_at"`
	Stale   bool            `json:"stale"`
}

type Store interface {
	Get(ctx context.Context, profileID uuid.UUID, key string) (*Draft, error)
	Put(ctx context.Context, profileID uuid.UUID, d *Draft) error
	Delete(ctx context.Context, profileID uuid.UUID, key string) error
}

// StorageKey scopes a draft key to its owner.
func StorageKey(profileID uuid.UUID, key string) string {
	return "draft:" + profileID.String() + ":" + key
}

// ParseKey accepts "new" or a project id.
func ParseKey(raw string) (string, *uuid.UUID, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == NewProjectKey {
		return key, nil, nil
	}
	id, err := uuid.Parse(key)
	if err != nil {
		return "", nil, errs.NewInvalidFieldError("draftKey", "must be \"new\" or a project id")
	}
	return id.String(), &id, nil
}

// MemoryStore is used when no Redis address is configured, and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	draft     Draft
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, profileID uuid.UUID, key string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	storageKey := StorageKey(profileID, key)
	entry, ok := s.entries[storageKey]
	if !ok {
		return nil, errs.NewNotFound("draft")
	}
	if s.ttl > 0 && !s.now().Before(entry.expiresAt) {
		delete(s.entries, storageKey)
		return nil, errs.NewNotFound("draft")
	}
	d := entry.draft
	return &d, nil
}

func (s *MemoryStore) Put(_ context.Context, profileID uuid.UUID, d *Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[StorageKey(profileID, d.Key)] = memoryEntry{draft: *d, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, profileID uuid.UUID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, StorageKey(profileID, key))
	return nil
}

// ProjectFinder is the slice of the project store needed to flag stale drafts.
type ProjectFinder interface {
	FindProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// Manager wraps a Store with payload checks and stale detection.
type Manager struct {
	store    Store
	projects ProjectFinder
	now      func() time.Time
}

func NewManager(store Store, projects ProjectFinder) *Manager {
	return &Manager{store: store, projects: projects, now: time.Now}
}

// Load returns the caller's draft. A draft for an existing project is flagged stale
// when the project was updated after it was saved, or no longer exists. It is never
// merged with the stored project.
func (m *Manager) Load(ctx context.Context, profileID uuid.UUID, rawKey string) (*Draft, error) {
	key, projectID, err := ParseKey(rawKey)
	if err != nil {
		return nil, err
	}
	d, err := m.store.Get(ctx, profileID, key)
	if err != nil {
		return nil, err
	}
	if projectID == nil {
		return d, nil
	}

	p, err := m.projects.FindProject(ctx, *projectID)
	switch {
	case errs.IsNotFound(err):
		d.Stale = true
	case err != nil:
		return nil, err
	default:
		d.Stale = p.UpdatedAt.After(d.SavedAt)
	}
	return d, nil
}

func (m *Manager) Save(ctx context.Context, profileID uuid.UUID, rawKey string, payload json.RawMessage) (*Draft, error) {
	key, _, err := ParseKey(rawKey)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, errs.NewInvalidFieldError("payload", "must be a JSON document")
	}
	d := &Draft{Key: key, Payload: payload, SavedAt: m.now().UTC()}
	if err := m.store.Put(ctx, profileID, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (m *Manager) Discard(ctx context.Context, profileID uuid.UUID, rawKey string) error {
	key, _, err := ParseKey(rawKey)
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, profileID, key)
}

// Clear drops a draft after its form was saved. A failure only leaves a stale draft
// behind, so it is logged and swallowed.
func (m *Manager) Clear(ctx context.Context, profileID uuid.UUID, rawKey string) {
	if m == nil {
		return
	}
	if err := m.Discard(ctx, profileID, rawKey); err != nil {
		log.Warn().Err(err).Str("draftKey", rawKey).Msg("Failed to clear draft")
	}
}
