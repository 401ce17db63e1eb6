// Package autosave decouples frequent small edits from persistence cost.
// Saves are debounced so only the most recently queued document in a quiet
// window is written, and every write is gated on the ephemeral-reference
// check: a document pointing at session-local media is never persisted.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/mediaref"
	"github.com/clipforge/clipforge/internal/metrics"
	"github.com/clipforge/clipforge/pkg/models"
)

const (
	DefaultDebounce    = time.Second
	DefaultSaveTimeout = 10 * time.Second
)

// ErrSaveInFlight is returned by SaveNow when a persist call is already
// running. The queued document is kept; callers may retry once the running
// save settles.
var ErrSaveInFlight = errors.New("a save is already in flight")

// ErrClosed is returned when the pipeline has been torn down
var ErrClosed = errors.New("autosave pipeline is closed")

// Persister is the persistence collaborator the pipeline flushes to
type Persister interface {
	Persist(ctx context.Context, doc *models.Document) error
}

// Options configures a Pipeline
type Options struct {
	ProjectID   string
	Debounce    time.Duration
	SaveTimeout time.Duration
	OnError     func(err error)
	Logger      *logging.Logger
}

// State is an observer snapshot of the pipeline
type State struct {
	IsSaving       bool
	LastSaveTime   time.Time
	Err            error
	PendingChanges bool
	SaveCount      int
}

// Pipeline schedules debounced document saves for one editing session
type Pipeline struct {
	persister   Persister
	projectID   string
	debounce    time.Duration
	saveTimeout time.Duration
	onError     func(err error)
	log         *logging.Logger

	mu             sync.Mutex
	timer          *time.Timer
	pending        *models.Document
	pendingChanges bool
	isSaving       bool
	lastSaveTime   time.Time
	saveCount      int
	err            error
	closed         bool
}

// New creates a pipeline over the given persistence collaborator
func New(persister Persister, opts Options) *Pipeline {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = DefaultSaveTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}

	return &Pipeline{
		persister:   persister,
		projectID:   opts.ProjectID,
		debounce:    opts.Debounce,
		saveTimeout: opts.SaveTimeout,
		onError:     opts.OnError,
		log:         opts.Logger,
	}
}

// QueueSave records doc as the latest pending document and restarts the
// debounce timer. The pending-changes flag is raised synchronously so
// observers can show an unsaved indicator without waiting on the window.
func (p *Pipeline) QueueSave(doc *models.Document) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.pending = doc
	p.pendingChanges = true

	if p.timer != nil {
		p.timer.Stop()
		metrics.DebounceResets.Inc()
	}
	p.timer = time.AfterFunc(p.debounce, p.flush)
}

// SaveNow cancels any pending debounce timer and immediately persists the
// supplied document, or the last queued one when doc is nil.
func (p *Pipeline) SaveNow(ctx context.Context, doc *models.Document) error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.isSaving {
		p.mu.Unlock()
		return ErrSaveInFlight
	}

	p.stopTimerLocked()
	if doc == nil {
		doc = p.pending
	}
	if doc == nil {
		p.mu.Unlock()
		return nil
	}

	p.pending = doc
	p.pendingChanges = true
	p.isSaving = true
	p.mu.Unlock()

	return p.persist(ctx, doc)
}

// ClearPending cancels any pending timer and discards the queued document
// without persisting. Used on session abandonment.
func (p *Pipeline) ClearPending() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimerLocked()
	p.pending = nil
	p.pendingChanges = false
}

// Close tears the pipeline down. Any outstanding debounce timer is
// cancelled so no write reaches a disposed session.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimerLocked()
	p.pending = nil
	p.closed = true
}

// State returns an observer snapshot
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return State{
		IsSaving:       p.isSaving,
		LastSaveTime:   p.lastSaveTime,
		Err:            p.err,
		PendingChanges: p.pendingChanges,
		SaveCount:      p.saveCount,
	}
}

func (p *Pipeline) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// flush runs on debounce expiry. Only one persist call is in flight at a
// time; if the timer fires mid-save the flush is re-armed for the next
// window instead of racing the running one.
func (p *Pipeline) flush() {
	p.mu.Lock()

	if p.closed || p.pending == nil {
		p.mu.Unlock()
		return
	}
	if p.isSaving {
		p.timer = time.AfterFunc(p.debounce, p.flush)
		p.mu.Unlock()
		return
	}

	doc := p.pending
	p.isSaving = true
	p.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.saveTimeout)
		defer cancel()
		p.persist(ctx, doc)
	}()
}

// persist validates and writes one document. The caller must have set
// isSaving; persist clears it.
func (p *Pipeline) persist(ctx context.Context, doc *models.Document) error {
	if verr := mediaref.ValidateDocument(doc); verr != nil {
		metrics.SavesTotal.WithLabelValues(metrics.SaveOutcomeValidationError).Inc()
		metrics.SaveValidationFailures.Inc()

		p.mu.Lock()
		p.isSaving = false
		p.err = verr
		p.mu.Unlock()

		p.log.LogSaveEvent(p.projectID, "validation_failed", p.State().SaveCount, verr)
		p.notify(verr)
		return verr
	}

	start := time.Now()
	err := p.persister.Persist(ctx, doc)
	metrics.SaveDuration.Observe(time.Since(start).Seconds())

	p.mu.Lock()
	p.isSaving = false

	if err != nil {
		wrapped := fmt.Errorf("failed to persist document: %w", err)
		p.err = wrapped
		// Restore the flag so the next debounce cycle or manual save retries
		p.pendingChanges = true
		p.mu.Unlock()

		metrics.SavesTotal.WithLabelValues(metrics.SaveOutcomePersistError).Inc()
		p.log.LogSaveEvent(p.projectID, "persist_failed", p.State().SaveCount, err)
		p.notify(wrapped)
		return wrapped
	}

	p.lastSaveTime = time.Now()
	p.saveCount++
	p.err = nil
	if p.pending == doc {
		p.pending = nil
		p.pendingChanges = false
	}
	count := p.saveCount
	p.mu.Unlock()

	metrics.SavesTotal.WithLabelValues(metrics.SaveOutcomeSuccess).Inc()
	p.log.LogSaveEvent(p.projectID, "saved", count, nil)
	return nil
}

func (p *Pipeline) notify(err error) {
	if p.onError != nil {
		p.onError(err)
	}
}
