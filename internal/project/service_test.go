package project

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/internal/mediaref"
	"github.com/clipforge/clipforge/pkg/models"
)

// fakeRepo is an in-memory project repository
type fakeRepo struct {
	mu             sync.Mutex
	projects       map[string]*models.Project
	documentWrites []models.Document
	failWrites     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{projects: map[string]*models.Project{}}
}

func (r *fakeRepo) CreateProject(ctx context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project.CreatedAt = time.Now()
	project.UpdatedAt = project.CreatedAt
	clone := *project
	r.projects[project.ID] = &clone
	return nil
}

func (r *fakeRepo) GetProject(ctx context.Context, id string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	clone := *project
	return &clone, nil
}

func (r *fakeRepo) ListProjectsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Project
	for _, p := range r.projects {
		if p.OwnerID == ownerID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateProjectDocument(ctx context.Context, id string, doc models.Document, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return r.failWrites
	}
	project, ok := r.projects[id]
	if !ok {
		return ErrProjectNotFound
	}
	project.Document = doc
	project.UpdatedAt = updatedAt
	r.documentWrites = append(r.documentWrites, doc)
	return nil
}

func (r *fakeRepo) UpdateProjectTitle(ctx context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok {
		return ErrProjectNotFound
	}
	project.Title = title
	return nil
}

func (r *fakeRepo) UpdateProjectStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok {
		return ErrProjectNotFound
	}
	project.Status = status
	return nil
}

func (r *fakeRepo) SetProjectOutput(ctx context.Context, id, status, outputURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok {
		return ErrProjectNotFound
	}
	project.Status = status
	project.OutputURL = outputURL
	return nil
}

func (r *fakeRepo) DeleteProject(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return ErrProjectNotFound
	}
	delete(r.projects, id)
	return nil
}

func (r *fakeRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.documentWrites)
}

// fakePublisher records render requests
type fakePublisher struct {
	mu       sync.Mutex
	requests []*models.RenderRequest
}

func (p *fakePublisher) PublishRenderRequest(ctx context.Context, req *models.RenderRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return nil
}

func TestCreateAssignsDurableID(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Options{})

	project, err := svc.Create(context.Background(), "user-1", "")
	require.NoError(t, err)

	assert.NotEmpty(t, project.ID)
	assert.Equal(t, "user-1", project.OwnerID)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)
	assert.Equal(t, "Untitled reel", project.Title)
	assert.Empty(t, project.Document.Tracks)

	// Persisted exactly once
	stored, err := repo.GetProject(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, stored.ID)
}

func TestLoadEnforcesOwnership(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Options{})
	ctx := context.Background()

	project, err := svc.Create(ctx, "user-1", "Mine")
	require.NoError(t, err)

	_, err = svc.Load(ctx, "user-2", project.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := svc.Load(ctx, "user-1", project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Title)
}

func TestLoadMissingProject(t *testing.T) {
	svc := NewService(newFakeRepo(), Options{})

	_, err := svc.Load(context.Background(), "user-1", "nope")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestLoadOrCreate(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Options{})
	ctx := context.Background()

	created, err := svc.LoadOrCreate(ctx, "user-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	loaded, err := svc.LoadOrCreate(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
}

func TestSaveDocumentRejectsEphemeralReferences(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Options{})
	ctx := context.Background()

	project, err := svc.Create(ctx, "user-1", "")
	require.NoError(t, err)

	doc := &models.Document{Tracks: []models.Track{
		{Type: models.TrackTypeVideo, Clips: []models.Clip{
			{ID: "v1", Src: "blob:null/123", Start: 0, End: 5},
		}},
	}}

	err = svc.SaveDocument(ctx, project.ID, doc)
	assert.ErrorIs(t, err, mediaref.ErrEphemeralReference)
	assert.Zero(t, repo.writeCount())
}

func TestSaveDocumentSizeCap(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Options{MaxDocumentBytes: 64})
	ctx := context.Background()

	project, err := svc.Create(ctx, "user-1", "")
	require.NoError(t, err)

	doc := &models.Document{Tracks: []models.Track{
		{Type: models.TrackTypeText, Clips: []models.Clip{
			{ID: "t1", Content: "a very long piece of overlay text that will not fit", Start: 0, End: 5},
		}},
	}}

	err = svc.SaveDocument(ctx, project.ID, doc)
	assert.ErrorIs(t, err, ErrDocumentTooBig)
}

func TestRequestRender(t *testing.T) {
	repo := newFakeRepo()
	publisher := &fakePublisher{}
	svc := NewService(repo, Options{Publisher: publisher})
	ctx := context.Background()

	project, err := svc.Create(ctx, "user-1", "")
	require.NoError(t, err)

	doc := &models.Document{Tracks: []models.Track{
		{Type: models.TrackTypeVideo, Clips: []models.Clip{
			{ID: "v1", Src: "https://cdn.example.com/a.mp4", Start: 0, End: 15},
		}},
	}}
	require.NoError(t, svc.SaveDocument(ctx, project.ID, doc))

	require.NoError(t, svc.RequestRender(ctx, "user-1", project.ID))

	require.Len(t, publisher.requests, 1)
	assert.Equal(t, project.ID, publisher.requests[0].ProjectID)

	stored, err := repo.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusRendering, stored.Status)
}

func TestHandleRenderResult(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Options{})
	ctx := context.Background()

	project, err := svc.Create(ctx, "user-1", "")
	require.NoError(t, err)

	result := &models.RenderResult{
		ProjectID: project.ID,
		Status:    models.ProjectStatusDone,
		OutputURL: "https://cdn.example.com/out/final.mp4",
	}
	require.NoError(t, svc.HandleRenderResult(ctx, result))

	stored, err := repo.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDone, stored.Status)
	assert.Equal(t, "https://cdn.example.com/out/final.mp4", stored.OutputURL)

	err = svc.HandleRenderResult(ctx, &models.RenderResult{ProjectID: project.ID, Status: "weird"})
	assert.Error(t, err)
}

func TestSessionEndToEnd(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Options{AutosaveDebounce: 20 * time.Millisecond})
	ctx := context.Background()

	var cbErr error
	var cbMu sync.Mutex
	sess, err := svc.OpenSession(ctx, "user-1", "", func(err error) {
		cbMu.Lock()
		cbErr = err
		cbMu.Unlock()
	})
	require.NoError(t, err)
	defer sess.Close()

	// Fresh draft parses to an empty layer model
	assert.Equal(t, models.DefaultDuration, sess.Layers().Duration)

	doc := models.Document{Tracks: []models.Track{
		{Type: models.TrackTypeVideo, Clips: []models.Clip{
			{ID: "v1", Src: "https://cdn.example.com/a.mp4", Start: 0, End: 15},
		}},
		{Type: models.TrackTypeText, Clips: []models.Clip{
			{ID: "t1", Content: "Hi", Start: 2, End: 6},
		}},
	}}

	layers := sess.UpdateDocument(doc)
	assert.Equal(t, 15.0, layers.Duration)
	require.Len(t, layers.VideoLayers, 1)
	require.Len(t, layers.TextLayers, 1)

	// The trim window defaults to the full derived duration
	assert.Equal(t, 15.0, layers.ClipEnd)

	// After the debounce, exactly one unmodified document reaches storage
	require.Eventually(t, func() bool { return repo.writeCount() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, doc, repo.documentWrites[0])

	cbMu.Lock()
	assert.NoError(t, cbErr)
	cbMu.Unlock()

	// Quiet window: no duplicate write
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, repo.writeCount())
}

func TestSessionUpdateProjectData(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Options{})

	sess, err := svc.OpenSession(context.Background(), "user-1", "", nil)
	require.NoError(t, err)
	defer sess.Close()

	title := "Renamed"
	doc := models.Document{Settings: &models.DocumentSettings{Duration: 12}}
	sess.UpdateProjectData(ProjectPatch{Title: &title, Document: &doc})

	assert.Equal(t, "Renamed", sess.Project().Title)
	assert.Equal(t, 12.0, sess.Layers().Duration)
	// In-session only: nothing persisted yet
	assert.Zero(t, repo.writeCount())
}

func TestSessionSaveNow(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Options{AutosaveDebounce: time.Hour})
	ctx := context.Background()

	sess, err := svc.OpenSession(ctx, "user-1", "", nil)
	require.NoError(t, err)
	defer sess.Close()

	doc := models.Document{Tracks: []models.Track{
		{Type: models.TrackTypeVideo, Clips: []models.Clip{
			{ID: "v1", Src: "https://cdn.example.com/a.mp4", Start: 0, End: 5},
		}},
	}}
	sess.UpdateProjectData(ProjectPatch{Document: &doc})

	require.NoError(t, sess.SaveNow(ctx))
	assert.Equal(t, 1, repo.writeCount())
}

func TestSessionPersistFailureSurfacesAndRetries(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Options{AutosaveDebounce: 10 * time.Millisecond})
	ctx := context.Background()

	sess, err := svc.OpenSession(ctx, "user-1", "", nil)
	require.NoError(t, err)
	defer sess.Close()

	boom := errors.New("write refused")
	repo.mu.Lock()
	repo.failWrites = boom
	repo.mu.Unlock()

	sess.UpdateDocument(models.Document{Tracks: []models.Track{
		{Type: models.TrackTypeVideo, Clips: []models.Clip{
			{ID: "v1", Src: "https://cdn.example.com/a.mp4", Start: 0, End: 5},
		}},
	}})

	require.Eventually(t, func() bool { return sess.Autosave.State().Err != nil },
		time.Second, 5*time.Millisecond)
	assert.True(t, sess.Autosave.State().PendingChanges)

	repo.mu.Lock()
	repo.failWrites = nil
	repo.mu.Unlock()

	require.NoError(t, sess.SaveNow(ctx))
	assert.Equal(t, 1, repo.writeCount())
}
