package models

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"
)

// Project represents a reel editing project in the system
type Project struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Title     string    `json:"title" db:"title"`
	Status    string    `json:"status" db:"status"`
	OutputURL string    `json:"output_url,omitempty" db:"output_url"`
	Document  Document  `json:"document" db:"document"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Document is the persisted edit payload: an ordered set of tracks plus
// optional global settings and transcripts. It is the only part of a Project
// the editing core mutates; status and output_url belong to the render
// pipeline.
type Document struct {
	Tracks      []Track           `json:"tracks,omitempty"`
	Settings    *DocumentSettings `json:"settings,omitempty"`
	Transcripts []Transcript      `json:"transcripts,omitempty"`
}

// DocumentSettings holds global output settings for a document
type DocumentSettings struct {
	Duration  float64 `json:"duration,omitempty"`
	FrameRate float64 `json:"frame_rate,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	ClipStart float64 `json:"clip_start,omitempty"`
	ClipEnd   float64 `json:"clip_end,omitempty"`
}

// Track is an ordered collection of clips of one semantic type.
// Clip order is significant: it drives z-ordering for overlay-like tracks
// and duration derivation for the video track.
type Track struct {
	Type  string `json:"type"`
	Clips []Clip `json:"clips,omitempty"`
}

// Clip is one timed element on a track. The persisted shape is loosely
// typed: which fields are meaningful depends on the owning track's type,
// and most fields are optional with documented defaults.
type Clip struct {
	ID       string    `json:"id"`
	Src      string    `json:"src,omitempty"`
	Content  string    `json:"content,omitempty"`
	Start    float64   `json:"start"`
	End      float64   `json:"end"`
	Duration *float64  `json:"duration,omitempty"`
	Volume   *float64  `json:"volume,omitempty"`
	Position *Position `json:"position,omitempty"`
	Scale    *float64  `json:"scale,omitempty"`
	Rotation *float64  `json:"rotation,omitempty"`

	// Video clips only
	Filter *VideoFilter `json:"filter,omitempty"`

	// Audio clips only
	SourceType string `json:"source_type,omitempty"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`

	// Text clips only
	Style     *TextStyle `json:"style,omitempty"`
	Animation string     `json:"animation,omitempty"`
}

// Position is a percentage-based 2-D placement, {50,50} meaning centered
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// VideoFilter holds per-clip color adjustments
type VideoFilter struct {
	Brightness  float64 `json:"brightness"`
	Contrast    float64 `json:"contrast"`
	Saturation  float64 `json:"saturation"`
	Temperature float64 `json:"temperature"`
	Blur        float64 `json:"blur"`
}

// TextStyle holds rendering style for a text clip
type TextStyle struct {
	FontFamily string  `json:"font_family"`
	FontSize   float64 `json:"font_size"`
	Color      string  `json:"color"`
	FontWeight string  `json:"font_weight"`
	FontStyle  string  `json:"font_style"`
	Align      string  `json:"align"`
}

// Transcript is a generated caption track attached to a document
type Transcript struct {
	ID       string            `json:"id"`
	Language string            `json:"language,omitempty"`
	Segments []TranscriptEntry `json:"segments,omitempty"`
}

// TranscriptEntry is one timed caption line
type TranscriptEntry struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Value implements driver.Valuer for database storage
func (d Document) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for database retrieval
func (d *Document) Scan(value interface{}) error {
	if value == nil {
		*d = Document{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, d)
}

// ProjectStatus constants
const (
	ProjectStatusDraft     = "draft"
	ProjectStatusRendering = "rendering"
	ProjectStatusDone      = "done"
	ProjectStatusFailed    = "failed"
)

// TrackType constants
const (
	TrackTypeVideo   = "video"
	TrackTypeAudio   = "audio"
	TrackTypeOverlay = "overlay"
	TrackTypeText    = "text"
	TrackTypeImage   = "image"
)

// Clip defaults and bounds
const (
	DefaultVolume = 1.0
	MaxVolume     = 4.0
	DefaultScale  = 1.0
)

// DefaultDuration is the fallback document length in seconds when no video
// clip and no settings duration is available.
const DefaultDuration = 30.0

// DefaultPosition returns the centered placement
func DefaultPosition() Position {
	return Position{X: 50, Y: 50}
}

// NeutralFilter returns the identity color filter
func NeutralFilter() VideoFilter {
	return VideoFilter{
		Brightness: 1,
		Contrast:   1,
		Saturation: 1,
	}
}

// DefaultTextStyle returns the style applied to text clips that carry none
func DefaultTextStyle() TextStyle {
	return TextStyle{
		FontFamily: "Inter",
		FontSize:   24,
		Color:      "#ffffff",
		FontWeight: "bold",
		FontStyle:  "normal",
		Align:      "center",
	}
}

// Ref returns the clip's media or content reference, whichever is set
func (c *Clip) Ref() string {
	if c.Src != "" {
		return c.Src
	}
	return c.Content
}

// EffectiveVolume normalizes the clip volume: absent means the default
// multiplier, and stored values are clamped into [0, MaxVolume].
func (c *Clip) EffectiveVolume() float64 {
	if c.Volume == nil {
		return DefaultVolume
	}
	v := *c.Volume
	if v < 0 {
		return 0
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// EffectivePosition returns the clip position, centered when absent
func (c *Clip) EffectivePosition() Position {
	if c.Position == nil {
		return DefaultPosition()
	}
	return *c.Position
}

// EffectiveScale returns the clip scale; absent or non-positive values fall
// back to the default.
func (c *Clip) EffectiveScale() float64 {
	if c.Scale == nil || *c.Scale <= 0 {
		return DefaultScale
	}
	return *c.Scale
}

// EffectiveRotation returns the clip rotation normalized into [0, 360)
func (c *Clip) EffectiveRotation() float64 {
	if c.Rotation == nil {
		return 0
	}
	r := math.Mod(*c.Rotation, 360)
	if r < 0 {
		r += 360
	}
	return r
}

// EffectiveFilter returns the clip's color filter, neutral when absent
func (c *Clip) EffectiveFilter() VideoFilter {
	if c.Filter == nil {
		return NeutralFilter()
	}
	return *c.Filter
}

// EffectiveStyle returns the clip's text style, defaulted when absent
func (c *Clip) EffectiveStyle() TextStyle {
	if c.Style == nil {
		return DefaultTextStyle()
	}
	return *c.Style
}
