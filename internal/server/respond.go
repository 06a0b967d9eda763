package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/flows"
	"github.com/debug-flow/debug-flow/internal/git"
)

var (
	errBadRequest    = errors.New("bad request")
	errRouteNotFound = errors.New("no such route")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", slog.Any("error", err))
	}
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, contracts.StatusDetailResponse{
		Status:  status,
		Reason:  http.StatusText(status),
		Message: message,
	})
}

// writeError maps err to a status code and writes it as a status detail
// body. Joined errors are listed one per detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	body := contracts.StatusDetailResponse{
		Status:  status,
		Reason:  http.StatusText(status),
		Message: err.Error(),
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			body.Details = append(body.Details, e.Error())
		}
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
	}
	writeJSON(w, status, body)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, git.ErrRevisionNotFound),
		errors.Is(err, flows.ErrNotFound),
		errors.Is(err, errRouteNotFound):
		return http.StatusNotFound
	case errors.Is(err, git.ErrInvalidRevision),
		errors.Is(err, flows.ErrEmptyName),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, git.ErrAlreadyExists),
		errors.Is(err, git.ErrDirtyWorktree):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
