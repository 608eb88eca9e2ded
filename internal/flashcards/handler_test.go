package flashcards

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impify/impify/internal/auth"
)

func newTestRouter(t *testing.T) (http.Handler, *memRepo) {
	t.Helper()
	svc, repo, _, _ := newTestService()
	h := NewHandler(svc, DefaultDueLimit)
	h.now = func() time.Time { return now }

	r := chi.NewRouter()
	r.Route("/flashcards", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/due", h.Due)
		r.Route("/{cardID}", func(r chi.Router) {
			r.Use(h.OwnershipMiddleware)
			r.Get("/", h.Get)
			r.Patch("/review", h.Review)
			r.Delete("/", h.Delete)
		})
	})
	return r, repo
}

func do(h http.Handler, method, path, body string, userID uuid.UUID) *httptest.ResponseRecorder {
	return doAs(h, method, path, body, userID.String())
}

func doAs(h http.Handler, method, path, body, uid string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.AccessClaims{UserID: uid}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateAndReview(t *testing.T) {
	r, repo := newTestRouter(t)
	userID := uuid.New()

	rec := do(r, http.MethodPost, "/flashcards", `{"question":"Capital of France?","answer":"Paris"}`, userID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data Flashcard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	card := repo.cards[created.Data.ID]
	card.DifficultyScore = 0.5
	repo.cards[card.ID] = card

	rec = do(r, http.MethodPatch, "/flashcards/"+card.ID.String()+"/review", `{"was_correct":true}`, userID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reviewed struct {
		Data ReviewResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviewed))
	assert.Equal(t, 1.0, reviewed.Data.CorrectRatio)
	assert.Equal(t, 1, reviewed.Data.ReviewCount)
	assert.True(t, now.Add(8*day).Equal(*reviewed.Data.NextReview))
}

func TestHandler_ReviewRequiresWasCorrect(t *testing.T) {
	r, repo := newTestRouter(t)
	userID := uuid.New()
	card := seed(t, repo, userID, 0.2, nil)

	rec := do(r, http.MethodPatch, "/flashcards/"+card.ID.String()+"/review", `{}`, userID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, repo.cards[card.ID].ReviewCount)
}

func TestHandler_ForeignCardIsNotFound(t *testing.T) {
	r, repo := newTestRouter(t)
	card := seed(t, repo, uuid.New(), 0.2, nil)
	intruder := uuid.New()

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/flashcards/" + card.ID.String(), ""},
		{http.MethodPatch, "/flashcards/" + card.ID.String() + "/review", `{"was_correct":false}`},
		{http.MethodDelete, "/flashcards/" + card.ID.String(), ""},
	} {
		rec := do(r, tc.method, tc.path, tc.body, intruder)
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.method)
	}
	assert.Contains(t, repo.cards, card.ID)

	rec := do(r, http.MethodGet, "/flashcards/not-a-uuid", "", intruder)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_OwnerWithNonCanonicalUID(t *testing.T) {
	r, repo := newTestRouter(t)
	userID := uuid.New()
	card := seed(t, repo, userID, 0.2, nil)

	for _, uid := range []string{
		strings.ToUpper(userID.String()),
		"urn:uuid:" + userID.String(),
	} {
		rec := doAs(r, http.MethodGet, "/flashcards/"+card.ID.String(), "", uid)
		assert.Equal(t, http.StatusOK, rec.Code, uid)
	}

	rec := doAs(r, http.MethodPatch, "/flashcards/"+card.ID.String()+"/review", `{"was_correct":true}`, strings.ToUpper(userID.String()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, repo.cards[card.ID].ReviewCount)

	rec = doAs(r, http.MethodDelete, "/flashcards/"+card.ID.String(), "", strings.ToUpper(userID.String()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, repo.cards, card.ID)
}

func TestHandler_Due(t *testing.T) {
	r, repo := newTestRouter(t)
	userID := uuid.New()
	for i := 0; i < 25; i++ {
		seed(t, repo, userID, float64(i%5)/5, nil)
	}

	for _, tc := range []struct {
		query string
		want  int
	}{
		{"", 20},
		{"?limit=abc", 20},
		{"?limit=-1", 20},
		{"?limit=5", 5},
		{"?limit=1000", 25},
	} {
		rec := do(r, http.MethodGet, "/flashcards/due"+tc.query, "", userID)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data []DueCard `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Data, tc.want, tc.query)
		assert.True(t, body.Data[0].IsNew)
		assert.Equal(t, 0.8, body.Data[0].DifficultyScore)
	}
}

func TestHandler_ListAndDelete(t *testing.T) {
	r, repo := newTestRouter(t)
	userID := uuid.New()
	card := seed(t, repo, userID, 0.2, nil)
	seed(t, repo, userID, 0.2, nil)

	rec := do(r, http.MethodGet, "/flashcards?page_size=1", "", userID)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data       []Flashcard `json:"data"`
		TotalCount int64       `json:"total_count"`
		PageSize   int         `json:"page_size"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.EqualValues(t, 2, page.TotalCount)
	assert.Len(t, page.Data, 1)

	rec = do(r, http.MethodGet, "/flashcards?note_id=bad", "", userID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodDelete, "/flashcards/"+card.ID.String(), "", userID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, repo.cards, card.ID)
}
