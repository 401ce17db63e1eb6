// Package project owns the load/create lifecycle of editing projects and
// ties the parser, timeline engine and autosave pipeline together into an
// editing session.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/autosave"
	"github.com/clipforge/clipforge/internal/database"
	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/mediaref"
	"github.com/clipforge/clipforge/internal/metrics"
	"github.com/clipforge/clipforge/pkg/models"
)

// Sentinel errors, matched with errors.Is
var (
	ErrProjectNotFound = database.ErrProjectNotFound
	ErrNotOwner        = errors.New("project belongs to another user")
	ErrDocumentTooBig  = errors.New("document exceeds the configured size limit")
)

// Repository is the persistence collaborator for projects
type Repository interface {
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjectsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Project, error)
	UpdateProjectDocument(ctx context.Context, id string, doc models.Document, updatedAt time.Time) error
	UpdateProjectTitle(ctx context.Context, id, title string) error
	UpdateProjectStatus(ctx context.Context, id, status string) error
	SetProjectOutput(ctx context.Context, id, status, outputURL string) error
	DeleteProject(ctx context.Context, id string) error
}

// ProjectCache is the optional read-through cache in front of the repository
type ProjectCache interface {
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
	SetProject(ctx context.Context, project *models.Project, ttl time.Duration) error
	DeleteProject(ctx context.Context, projectID string) error
}

// RenderPublisher hands documents to the external render pipeline
type RenderPublisher interface {
	PublishRenderRequest(ctx context.Context, req *models.RenderRequest) error
}

// Options configures a Service
type Options struct {
	Cache            ProjectCache
	Publisher        RenderPublisher
	CacheTTL         time.Duration
	MaxDocumentBytes int64
	AutosaveDebounce time.Duration
	Logger           *logging.Logger
}

// Service provides project lifecycle operations
type Service struct {
	repo             Repository
	cache            ProjectCache
	publisher        RenderPublisher
	cacheTTL         time.Duration
	maxDocumentBytes int64
	autosaveDebounce time.Duration
	log              *logging.Logger
}

// NewService creates a new project service
func NewService(repo Repository, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}

	return &Service{
		repo:             repo,
		cache:            opts.Cache,
		publisher:        opts.Publisher,
		cacheTTL:         opts.CacheTTL,
		maxDocumentBytes: opts.MaxDocumentBytes,
		autosaveDebounce: opts.AutosaveDebounce,
		log:              opts.Logger,
	}
}

// Load fetches a project and verifies ownership
func (s *Service) Load(ctx context.Context, ownerID, projectID string) (*models.Project, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetProject(ctx, projectID); err == nil && cached != nil {
			if cached.OwnerID != ownerID {
				return nil, ErrNotOwner
			}
			return cached, nil
		}
	}

	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project.OwnerID != ownerID {
		return nil, ErrNotOwner
	}

	if s.cache != nil {
		if err := s.cache.SetProject(ctx, project, s.cacheTTL); err != nil {
			s.log.WithError(err).Warn("Failed to cache project")
		}
	}

	return project, nil
}

// Create synthesizes a new draft project with an empty document and
// persists it once to obtain a durable identifier.
func (s *Service) Create(ctx context.Context, ownerID, title string) (*models.Project, error) {
	if title == "" {
		title = "Untitled reel"
	}

	project := &models.Project{
		ID:       uuid.New().String(),
		OwnerID:  ownerID,
		Title:    title,
		Status:   models.ProjectStatusDraft,
		Document: models.Document{},
	}

	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	metrics.ProjectsCreatedTotal.Inc()
	s.log.WithProjectID(project.ID).WithOwnerID(ownerID).Info("Project created")
	return project, nil
}

// LoadOrCreate loads an existing project or, with an empty projectID,
// creates a fresh draft.
func (s *Service) LoadOrCreate(ctx context.Context, ownerID, projectID string) (*models.Project, error) {
	if projectID == "" {
		return s.Create(ctx, ownerID, "")
	}
	return s.Load(ctx, ownerID, projectID)
}

// List returns an owner's projects
func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]*models.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListProjectsByOwner(ctx, ownerID, limit, offset)
}

// SaveDocument is the explicit, non-debounced write path. Every write is
// gated on the ephemeral-reference check and the document size cap, then
// the cache entry is invalidated.
func (s *Service) SaveDocument(ctx context.Context, projectID string, doc *models.Document) error {
	if err := mediaref.ValidateDocument(doc); err != nil {
		return err
	}
	if err := s.checkDocumentSize(doc); err != nil {
		return err
	}

	if err := s.repo.UpdateProjectDocument(ctx, projectID, *doc, time.Now()); err != nil {
		return err
	}

	s.invalidate(ctx, projectID)
	return nil
}

// Rename updates a project title. Title edits are discrete actions and
// bypass the autosave debounce.
func (s *Service) Rename(ctx context.Context, ownerID, projectID, title string) error {
	if _, err := s.Load(ctx, ownerID, projectID); err != nil {
		return err
	}

	if err := s.repo.UpdateProjectTitle(ctx, projectID, title); err != nil {
		return err
	}

	s.invalidate(ctx, projectID)
	return nil
}

// Delete removes a project
func (s *Service) Delete(ctx context.Context, ownerID, projectID string) error {
	if _, err := s.Load(ctx, ownerID, projectID); err != nil {
		return err
	}

	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		return err
	}

	s.invalidate(ctx, projectID)
	return nil
}

// RequestRender validates the current document and hands it to the render
// pipeline, flipping the project into the rendering state.
func (s *Service) RequestRender(ctx context.Context, ownerID, projectID string) error {
	if s.publisher == nil {
		return errors.New("render pipeline is not configured")
	}

	project, err := s.Load(ctx, ownerID, projectID)
	if err != nil {
		return err
	}

	if err := mediaref.ValidateDocument(&project.Document); err != nil {
		return err
	}

	req := &models.RenderRequest{
		ProjectID:   project.ID,
		OwnerID:     project.OwnerID,
		Document:    project.Document,
		RequestedAt: time.Now(),
	}
	if err := s.publisher.PublishRenderRequest(ctx, req); err != nil {
		return fmt.Errorf("failed to publish render request: %w", err)
	}

	if err := s.repo.UpdateProjectStatus(ctx, projectID, models.ProjectStatusRendering); err != nil {
		return err
	}

	s.invalidate(ctx, projectID)
	metrics.RenderRequestsTotal.Inc()
	s.log.WithProjectID(projectID).Info("Render requested")
	return nil
}

// HandleRenderResult applies a completed render result from the pipeline
func (s *Service) HandleRenderResult(ctx context.Context, result *models.RenderResult) error {
	status := result.Status
	if status != models.ProjectStatusDone && status != models.ProjectStatusFailed {
		return fmt.Errorf("unexpected render result status %q", status)
	}

	if err := s.repo.SetProjectOutput(ctx, result.ProjectID, status, result.OutputURL); err != nil {
		return err
	}

	s.invalidate(ctx, result.ProjectID)
	s.log.WithProjectID(result.ProjectID).Infof("Render finished with status %s", status)
	return nil
}

// Persister binds the explicit save path to one project so the autosave
// pipeline can flush to it.
func (s *Service) Persister(projectID string) autosave.Persister {
	return &documentPersister{svc: s, projectID: projectID}
}

type documentPersister struct {
	svc       *Service
	projectID string
}

func (p *documentPersister) Persist(ctx context.Context, doc *models.Document) error {
	return p.svc.SaveDocument(ctx, p.projectID, doc)
}

func (s *Service) checkDocumentSize(doc *models.Document) error {
	if s.maxDocumentBytes <= 0 {
		return nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to measure document: %w", err)
	}
	if int64(len(data)) > s.maxDocumentBytes {
		return fmt.Errorf("%w: %d bytes", ErrDocumentTooBig, len(data))
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, projectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteProject(ctx, projectID); err != nil {
		s.log.WithError(err).WithProjectID(projectID).Warn("Failed to invalidate project cache")
	}
}
