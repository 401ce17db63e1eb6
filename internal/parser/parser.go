// Package parser expands a persisted Document into the editor-ready layer
// model. Parsing is pure and total: malformed or missing fields resolve to
// documented defaults, never to an error, so a partially written or legacy
// document can always be opened.
package parser

import (
	"github.com/clipforge/clipforge/pkg/models"
)

// Parse builds a LayerModel from a document. For each semantic track type
// only the first matching track is consulted; later duplicates are counted
// in IgnoredTracks. A nil document parses like an empty one.
func Parse(doc *models.Document) *models.LayerModel {
	model := &models.LayerModel{
		VideoLayers: []models.VideoLayer{},
		EmojiLayers: []models.EmojiLayer{},
		TextLayers:  []models.TextLayer{},
		ImageLayers: []models.ImageLayer{},
		Filter:      models.NeutralFilter(),
	}

	if doc == nil {
		model.Duration = models.DefaultDuration
		model.ClipEnd = models.DefaultDuration
		return model
	}

	for _, track := range firstTracksByType(doc.Tracks, model) {
		switch track.Type {
		case models.TrackTypeVideo:
			for i := range track.Clips {
				model.VideoLayers = append(model.VideoLayers, videoLayer(&track.Clips[i]))
			}
		case models.TrackTypeAudio:
			if len(track.Clips) > 0 {
				layer := audioLayer(&track.Clips[0])
				model.AudioTrack = &layer
			}
		case models.TrackTypeOverlay:
			for i := range track.Clips {
				model.EmojiLayers = append(model.EmojiLayers, emojiLayer(&track.Clips[i]))
			}
		case models.TrackTypeText:
			for i := range track.Clips {
				model.TextLayers = append(model.TextLayers, textLayer(&track.Clips[i]))
			}
		case models.TrackTypeImage:
			for i := range track.Clips {
				model.ImageLayers = append(model.ImageLayers, imageLayer(&track.Clips[i]))
			}
		}
	}

	if len(model.VideoLayers) > 0 {
		model.Filter = model.VideoLayers[0].Filter
	}

	model.Duration = deriveDuration(model.VideoLayers, doc.Settings)
	model.ClipStart = 0
	if doc.Settings != nil && doc.Settings.ClipStart > 0 {
		model.ClipStart = doc.Settings.ClipStart
	}
	model.ClipEnd = model.Duration

	if len(doc.Transcripts) > 0 {
		transcript := doc.Transcripts[0]
		model.Transcript = &transcript
	}

	return model
}

// firstTracksByType keeps the first track of each semantic type, preserving
// document order, and records how many duplicates were dropped.
func firstTracksByType(tracks []models.Track, model *models.LayerModel) []models.Track {
	seen := make(map[string]bool, len(tracks))
	kept := make([]models.Track, 0, len(tracks))

	for _, track := range tracks {
		switch track.Type {
		case models.TrackTypeVideo, models.TrackTypeAudio, models.TrackTypeOverlay,
			models.TrackTypeText, models.TrackTypeImage:
		default:
			// Unknown track types are skipped without counting: they are
			// forward-compatibility noise, not dropped edits.
			continue
		}

		if seen[track.Type] {
			model.IgnoredTracks++
			continue
		}
		seen[track.Type] = true
		kept = append(kept, track)
	}

	return kept
}

// deriveDuration picks the document length: the furthest video layer end if
// any exist, else the settings duration, else the hard default.
func deriveDuration(layers []models.VideoLayer, settings *models.DocumentSettings) float64 {
	if len(layers) == 0 {
		if settings != nil && settings.Duration > 0 {
			return settings.Duration
		}
		return models.DefaultDuration
	}

	max := 0.0
	for _, layer := range layers {
		end := layer.End
		if end <= 0 {
			end = layer.Duration
		}
		if end <= 0 {
			end = models.DefaultDuration
		}
		if end > max {
			max = end
		}
	}
	return max
}

func videoLayer(c *models.Clip) models.VideoLayer {
	layer := models.VideoLayer{
		ID:       c.ID,
		Src:      c.Src,
		Start:    c.Start,
		End:      c.End,
		Volume:   c.EffectiveVolume(),
		Position: c.EffectivePosition(),
		Scale:    c.EffectiveScale(),
		Rotation: c.EffectiveRotation(),
		Filter:   c.EffectiveFilter(),
	}
	if c.Duration != nil {
		layer.Duration = *c.Duration
	}
	return layer
}

func audioLayer(c *models.Clip) models.AudioLayer {
	return models.AudioLayer{
		ID:         c.ID,
		Src:        c.Src,
		SourceType: c.SourceType,
		Title:      c.Title,
		Artist:     c.Artist,
		Start:      c.Start,
		End:        c.End,
		Volume:     c.EffectiveVolume(),
	}
}

func textLayer(c *models.Clip) models.TextLayer {
	return models.TextLayer{
		ID:        c.ID,
		Content:   c.Content,
		Start:     c.Start,
		End:       c.End,
		Position:  c.EffectivePosition(),
		Scale:     c.EffectiveScale(),
		Rotation:  c.EffectiveRotation(),
		Style:     c.EffectiveStyle(),
		Animation: c.Animation,
	}
}

func imageLayer(c *models.Clip) models.ImageLayer {
	return models.ImageLayer{
		ID:       c.ID,
		Src:      c.Src,
		Start:    c.Start,
		End:      c.End,
		Position: c.EffectivePosition(),
		Scale:    c.EffectiveScale(),
		Rotation: c.EffectiveRotation(),
	}
}

func emojiLayer(c *models.Clip) models.EmojiLayer {
	return models.EmojiLayer{
		ID:       c.ID,
		Content:  c.Ref(),
		Start:    c.Start,
		End:      c.End,
		Position: c.EffectivePosition(),
		Scale:    c.EffectiveScale(),
		Rotation: c.EffectiveRotation(),
	}
}
