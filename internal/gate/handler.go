package gate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/impify/impify/internal/api"
	"github.com/impify/impify/internal/auth"
	"github.com/impify/impify/internal/database"
)

type AdmitRequest struct {
	Action string `json:"action" validate:"required,oneof=chat file_chat upload"`
}

type Handler struct {
	svc      *Service
	validate *validator.Validate
	now      func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Admit answers whether the caller may perform the action, charging tokens
// if needed. Denials are a normal 200 response with admitted=false.
func (h *Handler) Admit(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var req AdmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	action := Action(req.Action)
	d, err := h.svc.Decide(r.Context(), userID, action, h.svc.CostFor(action), h.now())
	switch {
	case errors.Is(err, ErrUnknownAction):
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	case errors.Is(err, database.ErrConcurrencyConflict):
		api.HandleError(w, api.ErrTryAgain)
		return
	case err != nil:
		slog.Error("admitting action", "error", err, "user_id", userID, "action", action)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, d)
}

// Usage returns the caller's free allowance usage for today.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	u, err := h.svc.Usage(r.Context(), userID, h.now())
	if err != nil {
		slog.Error("reading gate usage", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, u)
}
