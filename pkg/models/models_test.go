package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestClipEffectiveVolume(t *testing.T) {
	tests := []struct {
		name   string
		volume *float64
		want   float64
	}{
		{"absent defaults to 1", nil, 1},
		{"zero stays zero", f64(0), 0},
		{"in range unchanged", f64(2.5), 2.5},
		{"negative clamps to 0", f64(-1), 0},
		{"above max clamps to 4", f64(100), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Clip{Volume: tt.volume}
			assert.Equal(t, tt.want, c.EffectiveVolume())
		})
	}
}

func TestClipEffectiveRotation(t *testing.T) {
	tests := []struct {
		name     string
		rotation *float64
		want     float64
	}{
		{"absent defaults to 0", nil, 0},
		{"in range unchanged", f64(45), 45},
		{"full turn wraps", f64(360), 0},
		{"over a turn wraps", f64(450), 90},
		{"negative wraps positive", f64(-90), 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Clip{Rotation: tt.rotation}
			assert.Equal(t, tt.want, c.EffectiveRotation())
		})
	}
}

func TestClipEffectiveScale(t *testing.T) {
	assert.Equal(t, 1.0, (&Clip{}).EffectiveScale())
	assert.Equal(t, 1.0, (&Clip{Scale: f64(0)}).EffectiveScale())
	assert.Equal(t, 1.0, (&Clip{Scale: f64(-2)}).EffectiveScale())
	assert.Equal(t, 0.5, (&Clip{Scale: f64(0.5)}).EffectiveScale())
}

func TestClipRef(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a.mp4", (&Clip{Src: "https://cdn.example.com/a.mp4"}).Ref())
	assert.Equal(t, "Hello", (&Clip{Content: "Hello"}).Ref())
	assert.Equal(t, "", (&Clip{}).Ref())
}

func TestDocumentValueScan(t *testing.T) {
	doc := Document{
		Tracks: []Track{
			{Type: TrackTypeVideo, Clips: []Clip{{ID: "c1", Src: "https://cdn.example.com/a.mp4", Start: 0, End: 12}}},
		},
		Settings: &DocumentSettings{Duration: 12, FrameRate: 30},
	}

	value, err := doc.Value()
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, doc, decoded)

	var empty Document
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty.Tracks)
}

func TestDocumentJSONOmitsAbsentFields(t *testing.T) {
	data, err := json.Marshal(Document{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestNeutralFilter(t *testing.T) {
	f := NeutralFilter()
	assert.Equal(t, 1.0, f.Brightness)
	assert.Equal(t, 1.0, f.Contrast)
	assert.Equal(t, 1.0, f.Saturation)
	assert.Equal(t, 0.0, f.Temperature)
	assert.Equal(t, 0.0, f.Blur)
}
