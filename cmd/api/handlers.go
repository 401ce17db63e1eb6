package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/internal/cache"
	"github.com/clipforge/clipforge/internal/database"
	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/mediaref"
	"github.com/clipforge/clipforge/internal/metrics"
	"github.com/clipforge/clipforge/internal/middleware"
	"github.com/clipforge/clipforge/internal/project"
	"github.com/clipforge/clipforge/internal/storage"
	"github.com/clipforge/clipforge/internal/tracing"
	"github.com/clipforge/clipforge/pkg/models"
)

type API struct {
	svc            *project.Service
	repo           *database.Repository
	cache          *cache.Cache
	storage        *storage.Storage
	maxUploadBytes int64
	log            *logging.Logger
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.repo.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	if err := api.cache.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Create project endpoint
func (api *API) createProject(c *gin.Context) {
	ownerID, ok := middleware.GetOwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proj, err := api.svc.Create(c.Request.Context(), ownerID, req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create project: %v", err)})
		return
	}

	c.JSON(http.StatusCreated, proj)
}

// Get project endpoint
func (api *API) getProject(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	proj, err := api.svc.Load(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		api.renderLoadError(c, err)
		return
	}

	c.JSON(http.StatusOK, proj)
}

// List projects endpoint
func (api *API) listProjects(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	limit := 20
	offset := 0

	projects, err := api.svc.List(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"limit":    limit,
		"offset":   offset,
	})
}

// Rename project endpoint
func (api *API) renameProject(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := api.svc.Rename(c.Request.Context(), ownerID, c.Param("id"), req.Title); err != nil {
		api.renderLoadError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project renamed", "project_id": c.Param("id")})
}

// Delete project endpoint
func (api *API) deleteProject(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)
	projectID := c.Param("id")

	if err := api.svc.Delete(c.Request.Context(), ownerID, projectID); err != nil {
		api.renderLoadError(c, err)
		return
	}

	// Media files are removed after the record so a failed delete keeps them
	// reachable through the listing.
	media, err := api.storage.ListProjectMedia(c.Request.Context(), projectID)
	if err != nil {
		api.log.WithError(err).WithProjectID(projectID).Warn("Failed to list project media during delete")
	}
	for _, object := range media {
		if err := api.storage.Delete(c.Request.Context(), object); err != nil {
			api.log.WithError(err).WithProjectID(projectID).Warnf("Failed to delete media object %s", object)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted", "project_id": projectID})
}

// Save document endpoint
func (api *API) saveDocument(c *gin.Context) {
	span, ctx := tracing.StartSpan(c.Request.Context(), "api.saveDocument")
	defer tracing.FinishSpan(span)

	ownerID, _ := middleware.GetOwnerID(c)
	projectID := c.Param("id")
	tracing.SetTag(span, "project_id", projectID)

	if _, err := api.svc.Load(ctx, ownerID, projectID); err != nil {
		api.renderLoadError(c, err)
		return
	}

	var doc models.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := api.svc.SaveDocument(ctx, projectID, &doc); err != nil {
		tracing.LogError(span, err)
		switch {
		case errors.Is(err, mediaref.ErrEphemeralReference):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, project.ErrDocumentTooBig):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to save document: %v", err)})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document saved", "project_id": projectID})
}

// Request render endpoint
func (api *API) requestRender(c *gin.Context) {
	span, ctx := tracing.StartSpan(c.Request.Context(), "api.requestRender")
	defer tracing.FinishSpan(span)

	ownerID, _ := middleware.GetOwnerID(c)
	projectID := c.Param("id")
	tracing.SetTag(span, "project_id", projectID)

	if err := api.svc.RequestRender(ctx, ownerID, projectID); err != nil {
		tracing.LogError(span, err)
		switch {
		case errors.Is(err, project.ErrProjectNotFound), errors.Is(err, project.ErrNotOwner):
			api.renderLoadError(c, err)
		case errors.Is(err, mediaref.ErrEphemeralReference):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to request render: %v", err)})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Render requested", "project_id": projectID})
}

// Upload media endpoint. The returned URL is durable and safe to embed in
// a document.
func (api *API) uploadMedia(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)
	projectID := c.Param("id")

	if _, err := api.svc.Load(c.Request.Context(), ownerID, projectID); err != nil {
		api.renderLoadError(c, err)
		return
	}

	file, err := c.FormFile("media")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No media file provided"})
		return
	}

	if api.maxUploadBytes > 0 && file.Size > api.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Media file exceeds the upload size limit"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read media file"})
		return
	}
	defer src.Close()

	url, err := api.storage.UploadMedia(c.Request.Context(), projectID, file.Filename, src, file.Size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to upload media: %v", err)})
		return
	}

	metrics.MediaUploadsTotal.Inc()
	metrics.MediaUploadSizeBytes.Observe(float64(file.Size))
	api.log.WithProjectID(projectID).Infof("Media uploaded: %s (%d bytes)", file.Filename, file.Size)

	c.JSON(http.StatusCreated, gin.H{
		"url":        url,
		"filename":   file.Filename,
		"size":       file.Size,
		"project_id": projectID,
	})
}

// List media endpoint
func (api *API) listMedia(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)
	projectID := c.Param("id")

	if _, err := api.svc.Load(c.Request.Context(), ownerID, projectID); err != nil {
		api.renderLoadError(c, err)
		return
	}

	media, err := api.storage.ListProjectMedia(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"media": media})
}

func (api *API) renderLoadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
	case errors.Is(err, project.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "Project belongs to another user"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
