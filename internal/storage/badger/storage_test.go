package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/common"
	"github.com/ternarybob/kapture/internal/models"
)

func testDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStorage(testDB(t), arbor.NewLogger())

	state := &models.SessionState{
		ID:         "sess-1",
		SiteDomain: "myservice.example.com",
		Cookies: []models.SessionCookie{
			{Name: "glide_user_session", Value: "abc", Domain: "myservice.example.com", Path: "/"},
		},
		UserAgent: "Mozilla/5.0",
	}
	require.NoError(t, store.StoreSession(ctx, state))

	got, err := store.GetSessionByDomain(ctx, "myservice.example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sess-1", got.ID)
	require.Len(t, got.Cookies, 1)
	assert.Equal(t, "glide_user_session", got.Cookies[0].Name)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestSessionStorageUnknownDomain(t *testing.T) {
	store := NewSessionStorage(testDB(t), arbor.NewLogger())

	got, err := store.GetSessionByDomain(context.Background(), "other.example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStorageLatestWins(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStorage(testDB(t), arbor.NewLogger())

	old := &models.SessionState{ID: "sess-old", SiteDomain: "portal.example.com"}
	require.NoError(t, store.StoreSession(ctx, old))
	time.Sleep(5 * time.Millisecond)
	fresh := &models.SessionState{ID: "sess-new", SiteDomain: "portal.example.com"}
	require.NoError(t, store.StoreSession(ctx, fresh))

	got, err := store.GetSessionByDomain(ctx, "portal.example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sess-new", got.ID)
}

func TestSessionStorageDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStorage(testDB(t), arbor.NewLogger())

	require.NoError(t, store.StoreSession(ctx, &models.SessionState{ID: "sess-1", SiteDomain: "d.example.com"}))
	require.NoError(t, store.DeleteSession(ctx, "sess-1"))
	require.NoError(t, store.DeleteSession(ctx, "sess-1"), "double delete is not an error")

	got, err := store.GetSessionByDomain(ctx, "d.example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResultStorageListByRunOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewResultStorage(testDB(t), arbor.NewLogger())

	records := []*models.ResultRecord{
		{ID: "r-3", RunID: "run-1", TargetID: "KB0000003", Row: 3, Status: models.StatusOK},
		{ID: "r-1", RunID: "run-1", TargetID: "KB0000001", Row: 1, Status: models.StatusFailed, Error: "login required"},
		{ID: "r-2", RunID: "run-1", TargetID: "KB0000002", Row: 2, Status: models.StatusThinContent},
		{ID: "other", RunID: "run-2", TargetID: "KB0000009", Row: 1, Status: models.StatusOK},
	}
	for _, r := range records {
		require.NoError(t, store.StoreResult(ctx, r))
	}

	got, err := store.ListResultsByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "KB0000001", got[0].TargetID)
	assert.Equal(t, "KB0000002", got[1].TargetID)
	assert.Equal(t, "KB0000003", got[2].TargetID)
	assert.Equal(t, models.StatusThinContent, got[1].Status)
}

func TestResultStorageRequiresIDs(t *testing.T) {
	store := NewResultStorage(testDB(t), arbor.NewLogger())

	err := store.StoreResult(context.Background(), &models.ResultRecord{RunID: "run-1"})
	assert.Error(t, err)

	err = store.StoreResult(context.Background(), &models.ResultRecord{ID: "r-1"})
	assert.Error(t, err)
}
