package subscriptions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impify/impify/internal/database"
	inats "github.com/impify/impify/internal/nats"
)

type memRepo struct {
	mu   sync.Mutex
	rows []*Subscription
}

func (m *memRepo) Active(_ context.Context, userID uuid.UUID, now time.Time) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var live *Subscription
	for _, s := range m.rows {
		if s.UserID != userID || !s.Active {
			continue
		}
		if s.Expired(now) {
			s.Active = false
			continue
		}
		live = s
	}
	return live, nil
}

func (m *memRepo) Activate(ctx context.Context, sub *Subscription, grant GrantFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if grant != nil {
		if err := grant(ctx, nil); err != nil {
			return err
		}
	}
	for _, s := range m.rows {
		if s.UserID == sub.UserID {
			s.Active = false
		}
	}
	m.rows = append(m.rows, sub)
	return nil
}

type grantCall struct {
	userID uuid.UUID
	tokens int
}

type fakeGranter struct {
	calls []grantCall
	err   error
}

func (f *fakeGranter) GrantPlanTokens(_ context.Context, _ database.DBTX, userID uuid.UUID, tokens int, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, grantCall{userID, tokens})
	return nil
}

type recordingPublisher struct{ events []inats.Event }

func (p *recordingPublisher) PublishEvent(_ context.Context, e inats.Event) error {
	p.events = append(p.events, e)
	return nil
}

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memRepo, *fakeGranter, *recordingPublisher) {
	repo := &memRepo{}
	granter := &fakeGranter{}
	pub := &recordingPublisher{}
	return NewService(repo, DefaultCatalog(), granter, pub, 0), repo, granter, pub
}

func TestStatus_NoSubscriptionFallsBackToFree(t *testing.T) {
	svc, _, _, _ := newTestService()

	st, err := svc.Status(context.Background(), uuid.New(), now)
	require.NoError(t, err)
	assert.Equal(t, FreeStatus(), st)
	assert.True(t, st.Active)
	assert.False(t, st.IsPremium())
}

func TestStatus_ExpiredIsDeactivated(t *testing.T) {
	svc, repo, _, _ := newTestService()
	userID := uuid.New()
	past := now.Add(-time.Hour)
	repo.rows = append(repo.rows, &Subscription{ID: uuid.New(), UserID: userID, Tier: TierPremium, Active: true, ExpiresAt: &past})

	st, err := svc.Status(context.Background(), userID, now)
	require.NoError(t, err)
	assert.Equal(t, TierFree, st.Tier)
	assert.False(t, repo.rows[0].Active)
}

func TestStatus_NoExpiryStaysActive(t *testing.T) {
	svc, repo, _, _ := newTestService()
	userID := uuid.New()
	repo.rows = append(repo.rows, &Subscription{ID: uuid.New(), UserID: userID, Tier: TierPremium, Active: true})

	st, err := svc.Status(context.Background(), userID, now.AddDate(5, 0, 0))
	require.NoError(t, err)
	assert.True(t, st.IsPremium())
}

func TestActivate_ReplacesAndGrants(t *testing.T) {
	svc, repo, granter, pub := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Activate(ctx, userID, TierBasic, nil, now)
	require.NoError(t, err)
	sub, err := svc.Activate(ctx, userID, TierPro, nil, now)
	require.NoError(t, err)

	require.NotNil(t, sub.ExpiresAt)
	assert.Equal(t, now.Add(30*24*time.Hour), *sub.ExpiresAt)

	active := 0
	for _, s := range repo.rows {
		if s.Active {
			active++
		}
	}
	assert.Equal(t, 1, active)

	require.Len(t, granter.calls, 2)
	assert.Equal(t, 500, granter.calls[0].tokens)
	assert.Equal(t, 2000, granter.calls[1].tokens)

	require.Len(t, pub.events, 2)
	assert.Equal(t, inats.EventSubscriptionActivated, pub.events[1].Type)

	st, err := svc.Status(ctx, userID, now)
	require.NoError(t, err)
	assert.Equal(t, TierPro, st.Tier)
}

func TestActivate_PremiumGrantsNothing(t *testing.T) {
	svc, repo, granter, pub := newTestService()
	userID := uuid.New()

	_, err := svc.Activate(context.Background(), userID, TierPremium, nil, now)
	require.NoError(t, err)
	assert.Empty(t, granter.calls)
	require.Len(t, repo.rows, 1)
	require.Len(t, pub.events, 1)
	assert.EqualValues(t, Unlimited, pub.events[0].Data["monthly_tokens"])
}

func TestActivate_GrantFailureRollsBack(t *testing.T) {
	svc, repo, granter, pub := newTestService()
	granter.err = errors.New("economy row locked")

	_, err := svc.Activate(context.Background(), uuid.New(), TierBasic, nil, now)
	assert.Error(t, err)
	assert.Empty(t, repo.rows)
	assert.Empty(t, pub.events)
}

func TestActivate_UnknownTier(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Activate(context.Background(), uuid.New(), Tier("gold"), nil, now)
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(3, 1)

	free := c.Plan(TierFree)
	assert.Equal(t, 3, free.ChatsPerDay)
	assert.Equal(t, 1, free.UploadsPerDay)
	assert.Equal(t, 100, free.MonthlyTokens)

	assert.Equal(t, 50, c.Plan(TierBasic).ChatsPerDay)
	assert.Equal(t, Unlimited, c.Plan(TierPro).ChatsPerDay)
	assert.Equal(t, free, c.Plan(Tier("bogus")))
	assert.Len(t, c.All(), 4)
	assert.Equal(t, 100, c.MonthlyAllotment(TierPremium))
	assert.Equal(t, 2000, c.MonthlyAllotment(TierPro))
}
