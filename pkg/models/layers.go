package models

// LayerModel is the in-memory, editor-ready expansion of a Document.
// It is rebuilt wholesale whenever the document changes and is never
// persisted directly.
type LayerModel struct {
	VideoLayers []VideoLayer `json:"video_layers"`
	AudioTrack  *AudioLayer  `json:"audio_track,omitempty"`
	EmojiLayers []EmojiLayer `json:"emoji_layers"`
	TextLayers  []TextLayer  `json:"text_layers"`
	ImageLayers []ImageLayer `json:"image_layers"`

	// Filter is the single active color filter, taken from the first video
	// layer, or neutral when there is none.
	Filter VideoFilter `json:"filter"`

	Duration  float64 `json:"duration"`
	ClipStart float64 `json:"clip_start"`
	ClipEnd   float64 `json:"clip_end"`

	Transcript *Transcript `json:"transcript,omitempty"`

	// IgnoredTracks counts tracks dropped because another track of the same
	// semantic type appeared earlier in the document.
	IgnoredTracks int `json:"ignored_tracks,omitempty"`
}

// VideoLayer is one video clip placed on the timeline
type VideoLayer struct {
	ID       string      `json:"id"`
	Src      string      `json:"src"`
	Start    float64     `json:"start"`
	End      float64     `json:"end"`
	Duration float64     `json:"duration,omitempty"`
	Volume   float64     `json:"volume"`
	Position Position    `json:"position"`
	Scale    float64     `json:"scale"`
	Rotation float64     `json:"rotation"`
	Filter   VideoFilter `json:"filter"`
}

// AudioLayer is the single background audio track of a document
type AudioLayer struct {
	ID         string  `json:"id"`
	Src        string  `json:"src"`
	SourceType string  `json:"source_type,omitempty"`
	Title      string  `json:"title,omitempty"`
	Artist     string  `json:"artist,omitempty"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Volume     float64 `json:"volume"`
}

// TextLayer is one text overlay
type TextLayer struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Start     float64   `json:"start"`
	End       float64   `json:"end"`
	Position  Position  `json:"position"`
	Scale     float64   `json:"scale"`
	Rotation  float64   `json:"rotation"`
	Style     TextStyle `json:"style"`
	Animation string    `json:"animation,omitempty"`
}

// ImageLayer is one image overlay
type ImageLayer struct {
	ID       string   `json:"id"`
	Src      string   `json:"src"`
	Start    float64  `json:"start"`
	End      float64  `json:"end"`
	Position Position `json:"position"`
	Scale    float64  `json:"scale"`
	Rotation float64  `json:"rotation"`
}

// EmojiLayer is one emoji/sticker overlay
type EmojiLayer struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Start    float64  `json:"start"`
	End      float64  `json:"end"`
	Position Position `json:"position"`
	Scale    float64  `json:"scale"`
	Rotation float64  `json:"rotation"`
}
