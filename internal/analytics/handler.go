package analytics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/impify/impify/internal/api"
	"github.com/impify/impify/internal/auth"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// ListEvents returns the caller's analytics events, newest first.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	params := parseListParams(r)

	events, total, err := h.repo.ListByUser(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing analytics events", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, events, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) ListParams {
	params := DefaultListParams()
	q := r.URL.Query()

	params.EventType = q.Get("event_type")
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		params.Page = p
	}
	if ps, err := strconv.Atoi(q.Get("page_size")); err == nil && ps > 0 && ps <= 100 {
		params.PageSize = ps
	}
	if t, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		params.From = &t
	}
	if t, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		params.To = &t
	}
	return params
}
