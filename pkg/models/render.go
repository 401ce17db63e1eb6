package models

import "time"

// RenderRequest is the message published when a user asks for an export.
// The render pipeline consuming it is external to this service.
type RenderRequest struct {
	ProjectID   string    `json:"project_id"`
	OwnerID     string    `json:"owner_id"`
	Document    Document  `json:"document"`
	RequestedAt time.Time `json:"requested_at"`
}

// RenderResult is the message the render pipeline publishes back once a
// request finishes. Status is done or failed.
type RenderResult struct {
	ProjectID   string    `json:"project_id"`
	Status      string    `json:"status"`
	OutputURL   string    `json:"output_url,omitempty"`
	ErrorMsg    string    `json:"error_msg,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
