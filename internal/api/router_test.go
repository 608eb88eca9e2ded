package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"handler": name})
	}
}

func passThrough(next http.Handler) http.Handler { return next }

func testHandlers(adminAllowed bool) HandlerSet {
	return HandlerSet{
		TokenInfo:            named("token_info"),
		RecordActivity:       named("record_activity"),
		CreditTokens:         named("credit"),
		CreateFlashcard:      named("create_card"),
		ListFlashcards:       named("list_cards"),
		DueFlashcards:        named("due_cards"),
		GetFlashcard:         named("get_card"),
		ReviewFlashcard:      named("review_card"),
		DeleteFlashcard:      named("delete_card"),
		FlashcardOwnership:   passThrough,
		Admit:                named("admit"),
		GateUsage:            named("usage"),
		ListPlans:            named("plans"),
		CurrentSubscription:  named("current"),
		ActivateSubscription: named("activate"),
		ListAnalyticsEvents:  named("analytics"),
		AuthMiddleware:       passThrough,
		AdminMiddleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !adminAllowed {
					HandleError(w, ErrForbidden)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
	}
}

func TestRouter_Routes(t *testing.T) {
	router := NewRouter(nil, nil, nil, RouterConfig{}, testHandlers(true))

	tests := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/api/v1/economy", "token_info"},
		{http.MethodPost, "/api/v1/economy/activity", "record_activity"},
		{http.MethodGet, "/api/v1/flashcards", "list_cards"},
		{http.MethodPost, "/api/v1/flashcards", "create_card"},
		{http.MethodGet, "/api/v1/flashcards/due", "due_cards"},
		{http.MethodGet, "/api/v1/flashcards/5f0c6a2e-52b4-4f59-a3c5-0d5b3c1b9a11", "get_card"},
		{http.MethodPatch, "/api/v1/flashcards/5f0c6a2e-52b4-4f59-a3c5-0d5b3c1b9a11/review", "review_card"},
		{http.MethodDelete, "/api/v1/flashcards/5f0c6a2e-52b4-4f59-a3c5-0d5b3c1b9a11", "delete_card"},
		{http.MethodPost, "/api/v1/gate/admit", "admit"},
		{http.MethodGet, "/api/v1/gate/usage", "usage"},
		{http.MethodGet, "/api/v1/subscriptions/plans", "plans"},
		{http.MethodGet, "/api/v1/subscriptions/current", "current"},
		{http.MethodGet, "/api/v1/analytics/events", "analytics"},
		{http.MethodPost, "/api/v1/admin/users/5f0c6a2e-52b4-4f59-a3c5-0d5b3c1b9a11/tokens", "credit"},
		{http.MethodPost, "/api/v1/admin/subscriptions", "activate"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"handler":"`+tt.want+`"`)
		})
	}
}

func TestRouter_AdminGuard(t *testing.T) {
	router := NewRouter(nil, nil, nil, RouterConfig{}, testHandlers(false))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/subscriptions", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_Health(t *testing.T) {
	router := NewRouter(nil, nil, nil, RouterConfig{}, testHandlers(true))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"nats":"not configured"`)
}
