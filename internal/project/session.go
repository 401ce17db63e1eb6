package project

import (
	"context"
	"sync"

	"github.com/clipforge/clipforge/internal/autosave"
	"github.com/clipforge/clipforge/internal/metrics"
	"github.com/clipforge/clipforge/internal/parser"
	"github.com/clipforge/clipforge/internal/timeline"
	"github.com/clipforge/clipforge/pkg/models"
)

// Session is one live editing session: the held project, the layer model
// parsed from its document, the timeline engine and the autosave pipeline.
// A session is single-writer; concurrent sessions on the same project are
// last-write-wins at the persistence layer.
type Session struct {
	svc *Service

	mu      sync.Mutex
	project *models.Project
	layers  *models.LayerModel

	Timeline *timeline.Engine
	Autosave *autosave.Pipeline
}

// OpenSession loads (or creates) a project and builds the editing state
// around it.
func (s *Service) OpenSession(ctx context.Context, ownerID, projectID string, onError func(error)) (*Session, error) {
	proj, err := s.LoadOrCreate(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}

	layers := parser.Parse(&proj.Document)
	metrics.ParseRunsTotal.Inc()

	sess := &Session{
		svc:      s,
		project:  proj,
		layers:   layers,
		Timeline: timeline.New(layers),
		Autosave: autosave.New(s.Persister(proj.ID), autosave.Options{
			ProjectID: proj.ID,
			Debounce:  s.autosaveDebounce,
			OnError:   onError,
			Logger:    s.log,
		}),
	}

	return sess, nil
}

// Project returns the held project
func (sess *Session) Project() *models.Project {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.project
}

// Layers returns the current layer model
func (sess *Session) Layers() *models.LayerModel {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.layers
}

// UpdateDocument replaces the in-session document, rebuilds the layer
// model wholesale and queues a debounced save. The layer model is never
// patched in place; rebuilding keeps it from diverging from the document.
func (sess *Session) UpdateDocument(doc models.Document) *models.LayerModel {
	sess.mu.Lock()
	sess.project.Document = doc
	sess.layers = parser.Parse(&doc)
	layers := sess.layers
	sess.mu.Unlock()

	metrics.ParseRunsTotal.Inc()
	sess.Autosave.QueueSave(&doc)
	return layers
}

// UpdateProjectData shallow-merges a partial update into the held project.
// Only in-session state changes; persistence goes through SaveNow or the
// autosave pipeline.
func (sess *Session) UpdateProjectData(patch ProjectPatch) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if patch.Title != nil {
		sess.project.Title = *patch.Title
	}
	if patch.Document != nil {
		sess.project.Document = *patch.Document
		sess.layers = parser.Parse(patch.Document)
		metrics.ParseRunsTotal.Inc()
	}
}

// ProjectPatch is a partial in-session update
type ProjectPatch struct {
	Title    *string
	Document *models.Document
}

// SaveNow flushes the current document immediately, bypassing the debounce
func (sess *Session) SaveNow(ctx context.Context) error {
	sess.mu.Lock()
	doc := sess.project.Document
	sess.mu.Unlock()

	return sess.Autosave.SaveNow(ctx, &doc)
}

// Close tears the session down: the autosave pipeline stops scheduling and
// the timeline engine detaches from its media handle.
func (sess *Session) Close() {
	sess.Autosave.Close()
	sess.Timeline.DetachHandle()
}
