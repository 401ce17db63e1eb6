package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clipforge/clipforge/pkg/models"
)

// ErrProjectNotFound marks a lookup for a project that does not exist
var ErrProjectNotFound = errors.New("project not found")

// Repository provides database operations for projects
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks if the underlying database is reachable
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// CreateProject creates a new project record
func (r *Repository) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if project.Status == "" {
		project.Status = models.ProjectStatusDraft
	}

	query := `
		INSERT INTO projects (id, owner_id, title, status, output_url, document)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		project.ID, project.OwnerID, project.Title, project.Status,
		project.OutputURL, project.Document,
	).Scan(&project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetProject retrieves a project by ID
func (r *Repository) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project

	query := `
		SELECT id, owner_id, title, status, output_url, document, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&project.ID, &project.OwnerID, &project.Title, &project.Status,
		&project.OutputURL, &project.Document, &project.CreatedAt, &project.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// ListProjectsByOwner retrieves an owner's projects with pagination
func (r *Repository) ListProjectsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Project, error) {
	query := `
		SELECT id, owner_id, title, status, output_url, document, created_at, updated_at
		FROM projects
		WHERE owner_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var project models.Project
		err := rows.Scan(
			&project.ID, &project.OwnerID, &project.Title, &project.Status,
			&project.OutputURL, &project.Document, &project.CreatedAt, &project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &project)
	}

	return projects, nil
}

// UpdateProjectDocument persists a new document payload for a project.
// Only the document and the updated_at timestamp change; status and
// output_url belong to the render pipeline.
func (r *Repository) UpdateProjectDocument(ctx context.Context, id string, doc models.Document, updatedAt time.Time) error {
	query := `
		UPDATE projects
		SET document = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, doc, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update project document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// UpdateProjectTitle renames a project
func (r *Repository) UpdateProjectTitle(ctx context.Context, id, title string) error {
	query := `
		UPDATE projects
		SET title = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, title)
	if err != nil {
		return fmt.Errorf("failed to update project title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// UpdateProjectStatus moves a project through its render lifecycle
func (r *Repository) UpdateProjectStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE projects
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// SetProjectOutput records the rendered output location and final status
func (r *Repository) SetProjectOutput(ctx context.Context, id, status, outputURL string) error {
	query := `
		UPDATE projects
		SET status = $2, output_url = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, status, outputURL)
	if err != nil {
		return fmt.Errorf("failed to set project output: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// DeleteProject permanently removes a project
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	return nil
}
