// Package timeline owns the mutable editing state of a reel session:
// playhead, zoom, trim bounds and scrub mode, plus the pixel/seconds
// mapping used to render the ruler. Synchronization with the live media
// handle is one-way in each direction: handle events flow in through the
// On* methods, user commands flow out through explicit calls on the handle.
package timeline

import (
	"sync"
	"time"

	"github.com/clipforge/clipforge/pkg/models"
)

// MediaHandle is the live playback surface the engine drives. All engine
// operations no-op safely while no handle is attached.
type MediaHandle interface {
	CurrentTime() float64
	SetCurrentTime(t float64)
	Duration() float64
	Paused() bool
	Play()
	Pause()
}

// Media handle event names the embedding layer forwards to the engine
const (
	EventTimeUpdate     = "timeupdate"
	EventPlay           = "play"
	EventPause          = "pause"
	EventLoadedMetadata = "loadedmetadata"
)

const (
	MinZoom     = 1
	MaxZoom     = 20
	DefaultZoom = 10

	// PixelsPerZoomStep scales timeline pixel density linearly with zoom:
	// 10 px/s at minimum zoom, 200 px/s at maximum.
	PixelsPerZoomStep = 10.0

	// MinTrimWindow is the smallest allowed [clipStart, clipEnd] span
	MinTrimWindow = 0.5

	// updateThrottle bounds the frequency of playhead state updates, for
	// both natural playback and pointer-move driven scrubbing.
	updateThrottle = 16 * time.Millisecond
)

// State is a point-in-time snapshot of the engine for rendering
type State struct {
	Duration    float64
	ZoomLevel   int
	CurrentTime float64
	IsScrubbing bool
	IsPlaying   bool
	ClipStart   float64
	ClipEnd     float64
}

// Engine is the timeline state machine for one editing session
type Engine struct {
	mu     sync.Mutex
	handle MediaHandle

	duration    float64
	zoomLevel   int
	currentTime float64
	isScrubbing bool
	isPlaying   bool
	clipStart   float64
	clipEnd     float64

	lastUpdate time.Time
	now        func() time.Time
}

// New creates an engine initialized from a parsed layer model. A nil model
// starts the session at the default document length.
func New(model *models.LayerModel) *Engine {
	e := &Engine{
		duration:  models.DefaultDuration,
		zoomLevel: DefaultZoom,
		clipEnd:   models.DefaultDuration,
		now:       time.Now,
	}

	if model != nil {
		e.duration = model.Duration
		e.clipStart = model.ClipStart
		e.clipEnd = model.ClipEnd
	}

	return e
}

// AttachHandle connects the engine to a live media handle
func (e *Engine) AttachHandle(h MediaHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle = h
}

// DetachHandle disconnects the media handle. Called on session teardown so
// late events cannot reach a disposed handle.
func (e *Engine) DetachHandle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle = nil
	e.isPlaying = false
	e.isScrubbing = false
}

// HandleEvent forwards a named media handle event into the engine. This is
// the adapter the embedding layer wires the handle's subscriptions to.
func (e *Engine) HandleEvent(event string) {
	e.mu.Lock()
	h := e.handle
	e.mu.Unlock()
	if h == nil {
		return
	}

	switch event {
	case EventTimeUpdate:
		e.OnTimeUpdate(h.CurrentTime())
	case EventPlay:
		e.OnPlay()
	case EventPause:
		e.OnPause()
	case EventLoadedMetadata:
		e.OnLoadedMetadata(h.Duration())
	}
}

// OnTimeUpdate mirrors the handle position into the engine while not
// scrubbing, and enforces the trim loop when playback reaches clipEnd.
func (e *Engine) OnTimeUpdate(pos float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isScrubbing {
		return
	}

	if e.clipEnd > 0 && pos >= e.clipEnd {
		if e.handle != nil {
			e.handle.SetCurrentTime(e.clipStart)
		}
		e.currentTime = e.clipStart
		e.lastUpdate = e.now()
		return
	}

	if e.now().Sub(e.lastUpdate) < updateThrottle {
		return
	}

	e.currentTime = pos
	e.lastUpdate = e.now()
}

// OnPlay records that the handle started playing
func (e *Engine) OnPlay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isPlaying = true
}

// OnPause records that the handle paused
func (e *Engine) OnPause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isPlaying = false
}

// OnLoadedMetadata adopts the handle's duration. A clipEnd still sitting at
// the stale duration follows the corrected value; an explicit partial trim
// is preserved.
func (e *Engine) OnLoadedMetadata(duration float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if duration <= 0 {
		return
	}

	old := e.duration
	e.duration = duration
	if e.clipEnd == old || e.clipEnd > duration {
		e.clipEnd = duration
	}
	if e.clipStart > e.clipEnd-MinTrimWindow {
		e.clipStart = 0
	}
}

// Seek clamps t into [0, duration], pushes it to the handle and updates the
// playhead synchronously rather than waiting for the handle's own event to
// echo back.
func (e *Engine) Seek(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seekLocked(t)
}

func (e *Engine) seekLocked(t float64) {
	t = clamp(t, 0, e.duration)
	if e.handle != nil {
		e.handle.SetCurrentTime(t)
	}
	e.currentTime = t
}

// StartScrub pauses playback and gates out passive timeupdate handling so
// the engine does not fight the user's drag.
func (e *Engine) StartScrub() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle != nil && !e.handle.Paused() {
		e.handle.Pause()
	}
	e.isPlaying = false
	e.isScrubbing = true
}

// UpdateScrub behaves like Seek but is called once per pointer move and is
// throttled to the same floor as natural playback updates.
func (e *Engine) UpdateScrub(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isScrubbing {
		return
	}
	if e.now().Sub(e.lastUpdate) < updateThrottle {
		return
	}

	e.seekLocked(t)
	e.lastUpdate = e.now()
}

// EndScrub re-enables passive synchronization from the handle
func (e *Engine) EndScrub() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isScrubbing = false
}

// TogglePlayPause starts or stops playback. Resuming from at or beyond the
// trimmed end first rewinds to clipStart, which is the loop-within-trim
// behavior.
func (e *Engine) TogglePlayPause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil {
		return
	}

	if e.handle.Paused() {
		if e.clipEnd > 0 && e.handle.CurrentTime() >= e.clipEnd {
			e.handle.SetCurrentTime(e.clipStart)
			e.currentTime = e.clipStart
		}
		e.handle.Play()
		e.isPlaying = true
	} else {
		e.handle.Pause()
		e.isPlaying = false
	}
}

// SetZoom clamps level into [MinZoom, MaxZoom]
func (e *Engine) SetZoom(level int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if level < MinZoom {
		level = MinZoom
	}
	if level > MaxZoom {
		level = MaxZoom
	}
	e.zoomLevel = level
}

// ZoomIn increases the zoom level by one step
func (e *Engine) ZoomIn() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.zoomLevel < MaxZoom {
		e.zoomLevel++
	}
}

// ZoomOut decreases the zoom level by one step
func (e *Engine) ZoomOut() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.zoomLevel > MinZoom {
		e.zoomLevel--
	}
}

// SetTrimStart moves the left trim bound, keeping at least MinTrimWindow of
// selectable range before clipEnd.
func (e *Engine) SetTrimStart(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clipStart = clamp(t, 0, e.clipEnd-MinTrimWindow)
}

// SetTrimEnd moves the right trim bound, keeping at least MinTrimWindow of
// selectable range after clipStart.
func (e *Engine) SetTrimEnd(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clipEnd = clamp(t, e.clipStart+MinTrimWindow, e.duration)
}

// PixelsPerSecond returns the current timeline pixel density
func (e *Engine) PixelsPerSecond() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return PixelsPerZoomStep * float64(e.zoomLevel)
}

// TimeToPixels converts media seconds to ruler pixels
func (e *Engine) TimeToPixels(t float64) float64 {
	return t * e.PixelsPerSecond()
}

// PixelsToTime converts ruler pixels to media seconds
func (e *Engine) PixelsToTime(p float64) float64 {
	return p / e.PixelsPerSecond()
}

// RulerWidth returns the rendered timeline width in pixels
func (e *Engine) RulerWidth() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration * PixelsPerZoomStep * float64(e.zoomLevel)
}

// State returns a snapshot of the engine for rendering
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return State{
		Duration:    e.duration,
		ZoomLevel:   e.zoomLevel,
		CurrentTime: e.currentTime,
		IsScrubbing: e.isScrubbing,
		IsPlaying:   e.isPlaying,
		ClipStart:   e.clipStart,
		ClipEnd:     e.clipEnd,
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
