package drafts

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type projectMap map[uuid.UUID]models.Project

func (m projectMap) FindProject(_ context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := m[id]
	if !ok {
		return nil, errs.NewNotFound("project")
	}
	return &p, nil
}

func TestStorageKey(t *testing.T) {
	id := uuid.MustParse("6f1c8f0e-2d0b-4d8e-9a44-3f8c1b2a9e10")
	assert.Equal(t, "draft:6f1c8f0e-2d0b-4d8e-9a44-3f8c1b2a9e10:new", StorageKey(id, NewProjectKey))
}

func TestParseKey(t *testing.T) {
	key, id, err := ParseKey(" NEW ")
	require.NoError(t, err)
	assert.Equal(t, NewProjectKey, key)
	assert.Nil(t, id)

	projectID := uuid.New()
	key, id, err = ParseKey(projectID.String())
	require.NoError(t, err)
	assert.Equal(t, projectID.String(), key)
	require.NotNil(t, id)
	assert.Equal(t, projectID, *id)

	_, _, err = ParseKey("../other")
	assert.True(t, errs.IsInvalidFieldError(err))
}

func TestMemoryStore_ScopesByProfileAndExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	clock := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	alice, bob := uuid.New(), uuid.New()
	require.NoError(t, store.Put(ctx, alice, &Draft{Key: NewProjectKey, Payload: json.RawMessage(`{"title":"x"}`)}))

	_, err := store.Get(ctx, bob, NewProjectKey)
	assert.True(t, errs.IsNotFound(err))

	d, err := store.Get(ctx, alice, NewProjectKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"x"}`, string(d.Payload))

	clock = clock.Add(2 * time.Hour)
	_, err = store.Get(ctx, alice, NewProjectKey)
	assert.True(t, errs.IsNotFound(err))
}

func TestManager_SaveLoadDiscard(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(time.Hour), projectMap{})
	owner := uuid.New()

	_, err := m.Save(ctx, owner, "new", json.RawMessage(`not json`))
	assert.True(t, errs.IsInvalidFieldError(err))

	saved, err := m.Save(ctx, owner, "new", json.RawMessage(`{"title":"Crop yield"}`))
	require.NoError(t, err)
	assert.Equal(t, NewProjectKey, saved.Key)

	loaded, err := m.Load(ctx, owner, "new")
	require.NoError(t, err)
	assert.False(t, loaded.Stale)

	require.NoError(t, m.Discard(ctx, owner, "new"))
	_, err = m.Load(ctx, owner, "new")
	assert.True(t, errs.IsNotFound(err))
}

func TestManager_FlagsStaleEditDrafts(t *testing.T) {
	ctx := context.Background()
	saved := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	fresh, edited, gone := uuid.New(), uuid.New(), uuid.New()
	projects := projectMap{
		fresh:  {ID: fresh, UpdatedAt: saved.Add(-time.Minute)},
		edited: {ID: edited, UpdatedAt: saved.Add(time.Minute)},
	}
	m := NewManager(NewMemoryStore(time.Hour), projects)
	m.now = func() time.Time { return saved }
	owner := uuid.New()

	tests := []struct {
		name  string
		id    uuid.UUID
		stale bool
	}{
		{"project unchanged since save", fresh, false},
		{"project updated after save", edited, true},
		{"project deleted", gone, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Save(ctx, owner, tt.id.String(), json.RawMessage(`{"abstract":"draft"}`))
			require.NoError(t, err)

			d, err := m.Load(ctx, owner, tt.id.String())
			require.NoError(t, err)
			assert.Equal(t, tt.stale, d.Stale)
			assert.JSONEq(t, `{"abstract":"draft"}`, string(d.Payload))
		})
	}
}

func TestManager_ClearIsNilSafe(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() { m.Clear(context.Background(), uuid.New(), "new") })
}
