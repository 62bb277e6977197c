package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/middleware"
	"github.com/famboard/famboard-api/internal/models"
	"github.com/famboard/famboard-api/internal/service"
)

type messageRepoMock struct {
	messages map[string]*models.Message
}

func newMessageRepoMock() *messageRepoMock {
	return &messageRepoMock{messages: make(map[string]*models.Message)}
}

func (m *messageRepoMock) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, int, error) {
	var out []models.Message
	for _, msg := range m.messages {
		if msg.FamilyID == filter.FamilyID {
			out = append(out, *msg)
		}
	}
	return out, len(out), nil
}

func (m *messageRepoMock) ListForDate(ctx context.Context, familyID string, date time.Time) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range m.messages {
		if msg.FamilyID == familyID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *messageRepoMock) GetByID(ctx context.Context, id string) (*models.Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return msg, nil
}

func (m *messageRepoMock) Create(ctx context.Context, message *models.Message) error {
	message.ID = "m1"
	m.messages[message.ID] = message
	return nil
}

func (m *messageRepoMock) Update(ctx context.Context, message *models.Message) error {
	m.messages[message.ID] = message
	return nil
}

func (m *messageRepoMock) Delete(ctx context.Context, id string) error {
	delete(m.messages, id)
	return nil
}

func testClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u1", Role: models.RoleMember, FamilyID: "fam-1"}
}

func newMessageHandler(repo *messageRepoMock) *MessageHandler {
	svc := service.NewMessageService(repo, nil, nil, validator.New(), zap.NewNop(), time.Minute)
	return NewMessageHandler(svc)
}

func TestMessageHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newMessageRepoMock()
	handler := newMessageHandler(repo)

	body := `{"content":"dinner at six","priority":"important","display_date":"2026-08-31","display_time":"18:00"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims())

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "fam-1", envelope.Data.FamilyID)
	assert.Equal(t, models.PriorityImportant, envelope.Data.Priority)
	require.NotNil(t, envelope.Data.DisplayTime)
	assert.Equal(t, "18:00", *envelope.Data.DisplayTime)
}

func TestMessageHandlerCreateInvalidPriority(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newMessageHandler(newMessageRepoMock())

	body := `{"content":"x","priority":"severe","display_date":"2026-08-31"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims())

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessageHandlerGetScopedToFamily(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newMessageRepoMock()
	repo.messages["m1"] = &models.Message{ID: "m1", FamilyID: "other-family", Content: "secret"}
	handler := newMessageHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/messages/m1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "m1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessageHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newMessageRepoMock()
	repo.messages["m1"] = &models.Message{ID: "m1", FamilyID: "fam-1"}
	handler := newMessageHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/messages/m1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "m1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, repo.messages)
}

func TestMessageHandlerUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newMessageHandler(newMessageRepoMock())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/messages", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
