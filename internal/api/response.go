package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the envelope for message and error bodies.
type Response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// dataResponse always carries the data key so an empty list renders as
// {"data":[]} rather than {}.
type dataResponse struct {
	Data any `json:"data"`
}

type PaginatedResponse struct {
	Data       any   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("writing response body", "error", err)
	}
}

func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataResponse{Data: data})
}

func JSONMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Message: message})
}

func JSONPaginated(w http.ResponseWriter, status int, data any, totalCount int64, page, pageSize int) {
	writeJSON(w, status, PaginatedResponse{
		Data:       data,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

func JSONError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, Response{Error: err.Error()})
}

func JSONErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Error: message})
}
