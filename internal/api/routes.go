package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NikitosKh/clipbot/internal/journal"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/requests", listRequestsHandler(cfg))
		r.Get("/requests/{id}", getRequestHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		total, _ := cfg.Repository.CountRequests(ctx)
		recent, _ := cfg.Repository.ListRequests(ctx, 50)

		state := "idle"
		active := 0
		lastError := ""

		for _, req := range recent {
			if journal.Active(req.Status) {
				state = "clipping"
				active++
			}
			if req.Status == journal.StatusFailed && lastError == "" {
				lastError = req.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:          state,
			LastError:      lastError,
			RequestsTotal:  total,
			ActiveRequests: active,
			Workers:        cfg.Workers,
		})
	}
}

func listRequestsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests, err := cfg.Repository.ListRequests(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list requests", "INTERNAL_ERROR")
			return
		}

		resp := RequestsResponse{Requests: make([]RequestResponse, len(requests))}
		for i, req := range requests {
			resp.Requests[i] = RequestToResponse(req)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getRequestHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "request id required", "BAD_REQUEST")
			return
		}

		req, err := cfg.Repository.GetRequest(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if req == nil {
			WriteError(w, http.StatusNotFound, "request not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, RequestToResponse(req))
	}
}
