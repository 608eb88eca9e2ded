package flashcards

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/impify/impify/internal/api"
	"github.com/impify/impify/internal/auth"
	"github.com/impify/impify/internal/database"
)

type Handler struct {
	svc          *Service
	validate     *validator.Validate
	defaultLimit int
	now          func() time.Time
}

func NewHandler(svc *Service, defaultDueLimit int) *Handler {
	return &Handler{
		svc:          svc,
		validate:     validator.New(),
		defaultLimit: defaultDueLimit,
		now:          time.Now,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var req CreateFlashcardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	card, err := h.svc.Create(r.Context(), userID, &req, h.now())
	if err != nil {
		slog.Error("creating flashcard", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, card)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	params := DefaultListParams()
	q := r.URL.Query()
	if n := q.Get("note_id"); n != "" {
		noteID, err := uuid.Parse(n)
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid note ID"))
			return
		}
		params.NoteID = &noteID
	}
	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}

	cards, total, err := h.svc.List(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing flashcards", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, cards, total, params.Page, params.PageSize)
}

func (h *Handler) Due(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	limit := ParseLimit(r.URL.Query().Get("limit"), h.defaultLimit)
	cards, err := h.svc.SelectDue(r.Context(), userID, h.now(), limit)
	if err != nil {
		slog.Error("selecting due flashcards", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, cards)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	card := GetCardFromContext(r.Context())
	if card == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	api.JSON(w, http.StatusOK, card)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	card := GetCardFromContext(r.Context())
	if card == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	res, err := h.svc.Grade(r.Context(), card.UserID, card.ID, *req.WasCorrect, h.now())
	switch {
	case errors.Is(err, ErrNotFound):
		api.HandleError(w, api.NewNotFoundError("flashcard not found"))
		return
	case errors.Is(err, database.ErrConcurrencyConflict):
		api.HandleError(w, api.ErrTryAgain)
		return
	case err != nil:
		slog.Error("grading flashcard", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, res)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	card := GetCardFromContext(r.Context())
	if card == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), card.UserID, card.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			api.HandleError(w, api.NewNotFoundError("flashcard not found"))
			return
		}
		slog.Error("deleting flashcard", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "flashcard deleted successfully")
}

// OwnershipMiddleware loads the card named in the URL and rejects requests
// from anyone but its owner. Foreign cards are reported as missing.
func (h *Handler) OwnershipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserID(r.Context())
		if err != nil {
			api.HandleError(w, err)
			return
		}

		cardID, err := uuid.Parse(chi.URLParam(r, "cardID"))
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid flashcard ID"))
			return
		}

		card, err := h.svc.repo.GetByID(r.Context(), cardID)
		if err != nil {
			slog.Error("fetching flashcard for ownership check", "error", err)
			api.HandleError(w, api.ErrInternalServer)
			return
		}
		if card == nil {
			api.HandleError(w, api.NewNotFoundError("flashcard not found"))
			return
		}

		if card.UserID != userID {
			slog.Warn("ownership violation attempt",
				"flashcard_id", cardID,
				"owner", card.UserID,
				"requester", userID,
				"path", r.URL.Path,
				"method", r.Method,
			)
			api.HandleError(w, api.NewNotFoundError("flashcard not found"))
			return
		}

		ctx := SetCardInContext(r.Context(), card)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
