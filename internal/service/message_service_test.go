package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/models"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
)

type mockMessageRepo struct {
	messages map[string]*models.Message
	listErr  error
	deleted  []string
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{messages: make(map[string]*models.Message)}
}

func (m *mockMessageRepo) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var out []models.Message
	for _, msg := range m.messages {
		if msg.FamilyID == filter.FamilyID {
			out = append(out, *msg)
		}
	}
	return out, len(out), nil
}

func (m *mockMessageRepo) ListForDate(ctx context.Context, familyID string, date time.Time) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range m.messages {
		if msg.FamilyID != familyID {
			continue
		}
		if msg.DisplayForever || msg.DisplayDate.Equal(date) {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *msg
	return &copied, nil
}

func (m *mockMessageRepo) Create(ctx context.Context, message *models.Message) error {
	message.ID = "msg-" + message.Content
	message.CreatedAt = time.Now().UTC()
	m.messages[message.ID] = message
	return nil
}

func (m *mockMessageRepo) Update(ctx context.Context, message *models.Message) error {
	m.messages[message.ID] = message
	return nil
}

func (m *mockMessageRepo) Delete(ctx context.Context, id string) error {
	delete(m.messages, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockBoardCache struct {
	entries     map[string][]byte
	invalidated []string
	published   []models.MessageEvent
}

func newMockBoardCache() *mockBoardCache {
	return &mockBoardCache{entries: make(map[string][]byte)}
}

func (m *mockBoardCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (m *mockBoardCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.entries[key] = nil
	return nil
}

func (m *mockBoardCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	return nil
}

func (m *mockBoardCache) Publish(ctx context.Context, channel string, payload interface{}) error {
	if event, ok := payload.(models.MessageEvent); ok {
		m.published = append(m.published, event)
	}
	return nil
}

type mockPush struct {
	notified []string
}

func (m *mockPush) NotifyFamily(ctx context.Context, msg *models.Message) error {
	m.notified = append(m.notified, msg.ID)
	return nil
}

func validCreateRequest() models.CreateMessageRequest {
	return models.CreateMessageRequest{
		Content:     "pick up groceries",
		Priority:    "normal",
		DisplayDate: "2026-08-31",
	}
}

func TestMessageServiceCreate(t *testing.T) {
	repo := newMockMessageRepo()
	cache := newMockBoardCache()
	push := &mockPush{}
	svc := NewMessageService(repo, cache, push, validator.New(), zap.NewNop(), time.Minute)

	msg, err := svc.Create(context.Background(), "fam-1", "u1", validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "fam-1", msg.FamilyID)
	assert.Equal(t, models.PriorityNormal, msg.Priority)
	assert.Equal(t, 1.0, msg.TTSSpeed)
	assert.Len(t, cache.invalidated, 1)
	require.Len(t, cache.published, 1)
	assert.Equal(t, models.MessageEventCreated, cache.published[0].Type)
	assert.Equal(t, []string{msg.ID}, push.notified)
}

func TestMessageServiceCreateRejectsBadPriority(t *testing.T) {
	svc := NewMessageService(newMockMessageRepo(), nil, nil, validator.New(), zap.NewNop(), time.Minute)

	req := validCreateRequest()
	req.Priority = "critical"
	_, err := svc.Create(context.Background(), "fam-1", "u1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMessageServiceCreateRejectsBadTimeOfDay(t *testing.T) {
	svc := NewMessageService(newMockMessageRepo(), nil, nil, validator.New(), zap.NewNop(), time.Minute)

	bad := "25:00"
	req := validCreateRequest()
	req.DisplayTime = &bad
	_, err := svc.Create(context.Background(), "fam-1", "u1", req)
	require.Error(t, err)
}

func TestMessageServiceCreateValidatesTTSTimes(t *testing.T) {
	svc := NewMessageService(newMockMessageRepo(), nil, nil, validator.New(), zap.NewNop(), time.Minute)

	req := validCreateRequest()
	req.TTSEnabled = true
	req.TTSTimes = []string{"08:00", "9:5"}
	_, err := svc.Create(context.Background(), "fam-1", "u1", req)
	require.Error(t, err)
}

func TestMessageServiceUpdate(t *testing.T) {
	repo := newMockMessageRepo()
	cache := newMockBoardCache()
	svc := NewMessageService(repo, cache, nil, validator.New(), zap.NewNop(), time.Minute)

	msg, err := svc.Create(context.Background(), "fam-1", "u1", validCreateRequest())
	require.NoError(t, err)

	at := "18:30"
	updated, err := svc.Update(context.Background(), "fam-1", msg.ID, models.UpdateMessageRequest{
		Content:     "pick up groceries and milk",
		Priority:    "urgent",
		DisplayDate: "2026-08-31",
		DisplayTime: &at,
		TTSEnabled:  true,
		TTSTimes:    []string{"18:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityUrgent, updated.Priority)
	assert.Equal(t, pq.StringArray{"18:00"}, updated.TTSTimes)
	assert.Equal(t, models.MessageEventUpdated, cache.published[len(cache.published)-1].Type)
}

func TestMessageServiceUpdateWrongFamily(t *testing.T) {
	repo := newMockMessageRepo()
	svc := NewMessageService(repo, nil, nil, validator.New(), zap.NewNop(), time.Minute)

	msg, err := svc.Create(context.Background(), "fam-1", "u1", validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "fam-2", msg.ID, models.UpdateMessageRequest{
		Content: "x", Priority: "normal", DisplayDate: "2026-08-31",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMessageServiceDelete(t *testing.T) {
	repo := newMockMessageRepo()
	cache := newMockBoardCache()
	svc := NewMessageService(repo, cache, nil, validator.New(), zap.NewNop(), time.Minute)

	msg, err := svc.Create(context.Background(), "fam-1", "u1", validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "fam-1", msg.ID))
	assert.Equal(t, []string{msg.ID}, repo.deleted)
	assert.Equal(t, models.MessageEventDeleted, cache.published[len(cache.published)-1].Type)
}

func TestMessageServiceListForBoardCaches(t *testing.T) {
	repo := newMockMessageRepo()
	cache := newMockBoardCache()
	svc := NewMessageService(repo, cache, nil, validator.New(), zap.NewNop(), time.Minute)

	_, err := svc.Create(context.Background(), "fam-1", "u1", validCreateRequest())
	require.NoError(t, err)

	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	msgs, err := svc.ListForBoard(context.Background(), "fam-1", date)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Len(t, cache.entries, 1)
}
