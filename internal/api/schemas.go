package api

import (
	"time"

	"github.com/NikitosKh/clipbot/internal/journal"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State          string `json:"state"`
	LastError      string `json:"last_error,omitempty"`
	RequestsTotal  int    `json:"requests_total"`
	ActiveRequests int    `json:"active_requests"`
	Workers        int    `json:"workers"`
}

type RequestResponse struct {
	ID           string `json:"id"`
	ChatID       int64  `json:"chat_id"`
	SourceURL    string `json:"source_url"`
	StartSeconds int    `json:"start_seconds"`
	EndSeconds   int    `json:"end_seconds"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

type RequestsResponse struct {
	Requests []RequestResponse `json:"requests"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func RequestToResponse(r *journal.Request) RequestResponse {
	resp := RequestResponse{
		ID:           r.ID,
		ChatID:       r.ChatID,
		SourceURL:    r.SourceURL,
		StartSeconds: r.StartSeconds,
		EndSeconds:   r.EndSeconds,
		Status:       r.Status,
		Error:        r.Error,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	if !r.UpdatedAt.IsZero() {
		resp.UpdatedAt = r.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}
