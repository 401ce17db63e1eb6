// Package mediaref classifies media references as durable or ephemeral and
// scans documents for references that must not be persisted.
package mediaref

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clipforge/clipforge/pkg/models"
)

// ErrEphemeralReference marks a document that still points at session-local
// media. Callers use errors.Is(); the save must be aborted and the media
// re-uploaded before retrying.
var ErrEphemeralReference = errors.New("document references ephemeral media")

// ephemeralSchemes are in-process or inline-data locators that stop
// resolving the moment the editing session ends.
var ephemeralSchemes = []string{"blob:", "data:", "file:", "mem:"}

// IsDurableReference reports whether url survives the end of the editing
// session (network-addressable).
func IsDurableReference(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// IsEphemeralReference reports whether url is only valid inside the current
// session. Empty references are neither durable nor ephemeral.
func IsEphemeralReference(url string) bool {
	for _, scheme := range ephemeralSchemes {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return url != "" && !IsDurableReference(url)
}

// ValidationError identifies the first offending clip in a document
type ValidationError struct {
	TrackType string
	ClipID    string
	Ref       string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("clip %q on %s track references ephemeral media %q: %v",
		e.ClipID, e.TrackType, e.Ref, ErrEphemeralReference)
}

func (e *ValidationError) Unwrap() error {
	return ErrEphemeralReference
}

// ValidateDocument checks every clip src in every track. Text and emoji
// content is literal, not a locator, so only Src fields are inspected.
// Returns nil when the document is safe to persist.
func ValidateDocument(doc *models.Document) error {
	if doc == nil {
		return nil
	}

	for _, track := range doc.Tracks {
		for i := range track.Clips {
			src := track.Clips[i].Src
			if src == "" {
				continue
			}
			if IsEphemeralReference(src) {
				return &ValidationError{
					TrackType: track.Type,
					ClipID:    track.Clips[i].ID,
					Ref:       src,
				}
			}
		}
	}

	return nil
}
