// Package journal records every clip request and its outcome in SQLite.
// Clip files themselves are never persisted; only the request history is.
package journal

import "time"

const (
	StatusPending    = "pending"
	StatusResolving  = "resolving"
	StatusExtracting = "extracting"
	StatusDelivering = "delivering"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Active reports whether a status is non-terminal.
func Active(status string) bool {
	return status != StatusCompleted && status != StatusFailed
}

// Request is one journaled clip command.
type Request struct {
	ID           string    `json:"id"`
	ChatID       int64     `json:"chat_id"`
	SourceURL    string    `json:"source_url"`
	StartSeconds int       `json:"start_seconds"`
	EndSeconds   int       `json:"end_seconds"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
