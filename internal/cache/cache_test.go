package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func testProject() *models.Project {
	return &models.Project{
		ID:      "proj-1",
		OwnerID: "user-1",
		Title:   "Summer reel",
		Status:  models.ProjectStatusDraft,
		Document: models.Document{
			Tracks: []models.Track{
				{Type: models.TrackTypeVideo, Clips: []models.Clip{
					{ID: "v1", Src: "https://cdn.example.com/a.mp4", Start: 0, End: 12},
				}},
			},
		},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	project := testProject()

	require.NoError(t, cache.SetProject(ctx, project, time.Minute))

	got, err := cache.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, project.ID, got.ID)
	assert.Equal(t, project.Document, got.Document)
}

func TestCacheMiss(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	got, err := cache.GetProject(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheDelete(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	project := testProject()

	require.NoError(t, cache.SetProject(ctx, project, time.Minute))
	require.NoError(t, cache.DeleteProject(ctx, project.ID))

	got, err := cache.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheTTLExpiry(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	project := testProject()

	require.NoError(t, cache.SetProject(ctx, project, time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := cache.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
