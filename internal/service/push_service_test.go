package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/models"
)

type mockPushRepo struct {
	mu      sync.Mutex
	subs    []models.PushSubscription
	pruned  []string
	deleted []string
}

func (m *mockPushRepo) Create(ctx context.Context, sub *models.PushSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.ID = "sub-new"
	m.subs = append(m.subs, *sub)
	return nil
}

func (m *mockPushRepo) ListByUser(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PushSubscription
	for _, sub := range m.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *mockPushRepo) ListByFamily(ctx context.Context, familyID, excludeUserID string) ([]models.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PushSubscription
	for _, sub := range m.subs {
		if sub.UserID != excludeUserID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *mockPushRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockPushRepo) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned = append(m.pruned, endpoint)
	return nil
}

func startedPushService(t *testing.T, repo *mockPushRepo) *PushService {
	t.Helper()
	svc := NewPushService(repo, validator.New(), zap.NewNop(), nil, PushServiceConfig{
		Enabled:           true,
		WorkerConcurrency: 1,
		DeliveryTimeout:   2 * time.Second,
	})
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func TestPushServiceSubscribe(t *testing.T) {
	repo := &mockPushRepo{}
	svc := NewPushService(repo, validator.New(), zap.NewNop(), nil, PushServiceConfig{Enabled: true})

	sub, err := svc.Subscribe(context.Background(), "u1", models.SubscribePushRequest{
		Endpoint: "https://push.example.com/abc",
		P256DH:   "key",
		Auth:     "auth",
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-new", sub.ID)
	assert.Equal(t, "u1", sub.UserID)
}

func TestPushServiceSubscribeRequiresEndpoint(t *testing.T) {
	svc := NewPushService(&mockPushRepo{}, validator.New(), zap.NewNop(), nil, PushServiceConfig{Enabled: true})

	_, err := svc.Subscribe(context.Background(), "u1", models.SubscribePushRequest{P256DH: "key", Auth: "auth"})
	require.Error(t, err)
}

func TestPushServiceNotifyFamilyDelivers(t *testing.T) {
	var mu sync.Mutex
	var delivered []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		delivered = append(delivered, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	repo := &mockPushRepo{subs: []models.PushSubscription{
		{ID: "s1", UserID: "u2", Endpoint: server.URL + "/s1"},
		{ID: "s2", UserID: "author", Endpoint: server.URL + "/s2"},
	}}
	svc := startedPushService(t, repo)

	msg := &models.Message{ID: "m1", FamilyID: "fam-1", Content: "hi", Priority: models.PriorityNormal, CreatedBy: "author"}
	require.NoError(t, svc.NotifyFamily(context.Background(), msg))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// The author's own subscription is skipped.
	assert.Equal(t, []string{"/s1"}, delivered)
}

func TestPushServicePrunesGoneEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	repo := &mockPushRepo{subs: []models.PushSubscription{
		{ID: "s1", UserID: "u2", Endpoint: server.URL + "/dead"},
	}}
	svc := startedPushService(t, repo)

	msg := &models.Message{ID: "m1", FamilyID: "fam-1", Content: "hi", CreatedBy: "author"}
	require.NoError(t, svc.NotifyFamily(context.Background(), msg))

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.pruned) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPushServiceDisabledIsNoOp(t *testing.T) {
	repo := &mockPushRepo{subs: []models.PushSubscription{{ID: "s1", UserID: "u2", Endpoint: "https://push.example.com"}}}
	svc := NewPushService(repo, validator.New(), zap.NewNop(), nil, PushServiceConfig{Enabled: false})

	msg := &models.Message{ID: "m1", FamilyID: "fam-1", CreatedBy: "author"}
	require.NoError(t, svc.NotifyFamily(context.Background(), msg))
}
