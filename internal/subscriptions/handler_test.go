package subscriptions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impify/impify/internal/auth"
)

func newTestHandler() (*Handler, *Service) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)
	h.now = func() time.Time { return now }
	return h, svc
}

func TestHandler_Current(t *testing.T) {
	h, svc := newTestHandler()
	userID := uuid.New()
	_, err := svc.Activate(context.Background(), userID, TierBasic, nil, now)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/current", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.AccessClaims{UserID: userID.String()}))
	rec := httptest.NewRecorder()
	h.Current(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Tier   string `json:"tier"`
			Active bool   `json:"active"`
			Plan   Plan   `json:"plan"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "basic", body.Data.Tier)
	assert.True(t, body.Data.Active)
	assert.Equal(t, 50, body.Data.Plan.ChatsPerDay)
}

func TestHandler_CurrentUnauthenticated(t *testing.T) {
	h, _ := newTestHandler()
	rec := httptest.NewRecorder()
	h.Current(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Activate(t *testing.T) {
	h, svc := newTestHandler()
	userID := uuid.New()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"user_id":"` + userID.String() + `","tier":"premium"}`, http.StatusCreated},
		{"bad tier", `{"user_id":"` + userID.String() + `","tier":"gold"}`, http.StatusBadRequest},
		{"bad user", `{"user_id":"nope","tier":"pro"}`, http.StatusBadRequest},
		{"past expiry", `{"user_id":"` + userID.String() + `","tier":"pro","expires_at":"2020-01-01T00:00:00Z"}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/subscriptions", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Activate(rec, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	st, err := svc.Status(context.Background(), userID, now)
	require.NoError(t, err)
	assert.True(t, st.IsPremium())
}

func TestHandler_ListPlans(t *testing.T) {
	h, _ := newTestHandler()
	rec := httptest.NewRecorder()
	h.ListPlans(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []Plan `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 4)
	assert.Equal(t, TierPremium, body.Data[3].Tier)
}
