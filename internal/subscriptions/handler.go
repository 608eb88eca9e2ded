package subscriptions

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/impify/impify/internal/api"
	"github.com/impify/impify/internal/auth"
)

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

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, h.svc.Catalog().All())
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status, err := h.svc.Status(r.Context(), userID, h.now())
	if err != nil {
		slog.Error("loading subscription status", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, struct {
		Status
		Plan Plan `json:"plan"`
	}{status, h.svc.Catalog().Plan(status.Tier)})
}

// Activate is the admin operation that grants a subscription to any user.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	now := h.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		api.HandleError(w, api.NewValidationError("expires_at must be in the future"))
		return
	}

	userID := uuid.MustParse(req.UserID)
	sub, err := h.svc.Activate(r.Context(), userID, Tier(req.Tier), req.ExpiresAt, now)
	if err != nil {
		slog.Error("activating subscription", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, sub)
}
