package economy

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/impify/impify/internal/api"
	"github.com/impify/impify/internal/auth"
	"github.com/impify/impify/internal/database"
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

func (h *Handler) TokenInfo(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	info, err := h.svc.TokenInfo(r.Context(), userID, h.now())
	if err != nil {
		handleServiceError(w, "loading token info", err)
		return
	}

	api.JSON(w, http.StatusOK, info)
}

func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var req RecordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	kind := ActivityKind(req.ActivityType)
	var opts []Option
	if kind == ActivityLogin {
		opts = append(opts, SkipMonthlyReset())
	}

	res, err := h.svc.RecordActivity(r.Context(), userID, kind, h.now(), opts...)
	if err != nil {
		handleServiceError(w, "recording activity", err)
		return
	}

	api.JSON(w, http.StatusOK, res)
}

// Credit is the admin operation that adds tokens to any user's balance.
func (h *Handler) Credit(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid user ID"))
		return
	}

	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	e, err := h.svc.Credit(r.Context(), userID, req.Amount, h.now())
	if err != nil {
		handleServiceError(w, "crediting tokens", err)
		return
	}

	var admin string
	if claims := auth.GetUserClaims(r.Context()); claims != nil {
		admin = claims.UserID
	}
	slog.Info("tokens credited by admin", "user_id", userID, "amount", req.Amount, "admin", admin)
	api.JSON(w, http.StatusOK, e)
}

func handleServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		api.HandleError(w, api.NewValidationError(err.Error()))
	case errors.Is(err, database.ErrConcurrencyConflict):
		api.HandleError(w, api.ErrTryAgain)
	default:
		slog.Error(op, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}
