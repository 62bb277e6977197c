package handler

import (
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

	"github.com/famboard/famboard-api/internal/board"
	"github.com/famboard/famboard-api/internal/middleware"
	"github.com/famboard/famboard-api/internal/models"
	"github.com/famboard/famboard-api/internal/service"
)

// recordingMessageRepo captures the date the board was loaded for.
type recordingMessageRepo struct {
	*messageRepoMock
	lastDate time.Time
}

func (m *recordingMessageRepo) ListForDate(ctx context.Context, familyID string, date time.Time) ([]models.Message, error) {
	m.lastDate = date
	return m.messageRepoMock.ListForDate(ctx, familyID, date)
}

type settingsRepoMock struct{}

func (settingsRepoMock) GetByFamily(ctx context.Context, familyID string) (*models.DisplaySettings, error) {
	return nil, sql.ErrNoRows
}

func (settingsRepoMock) Upsert(ctx context.Context, settings *models.DisplaySettings) error {
	return nil
}

func newDisplayHandler(repo *recordingMessageRepo, clock board.Clock) *DisplayHandler {
	messages := service.NewMessageService(repo, nil, nil, validator.New(), zap.NewNop(), time.Minute)
	settings := service.NewSettingsService(settingsRepoMock{}, validator.New(), zap.NewNop())
	return NewDisplayHandler(messages, settings, nil, nil, clock, zap.NewNop())
}

func displayRequest(target string) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, target, nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims())
	return w, c
}

func TestDisplayHandlerBoardDefaultsToToday(t *testing.T) {
	gin.SetMode(gin.TestMode)
	eighteen := "18:00"
	repo := &recordingMessageRepo{messageRepoMock: newMessageRepoMock()}
	repo.messages["m1"] = &models.Message{
		ID: "m1", FamilyID: "fam-1", Content: "dinner", DisplayTime: &eighteen,
	}
	clock := board.FixedClock{At: time.Date(2026, 8, 31, 8, 30, 0, 0, time.Local)}
	handler := newDisplayHandler(repo, clock)

	w, c := displayRequest("/display/board")
	handler.Board(c)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.Local), repo.lastDate)

	var envelope struct {
		Data struct {
			Board    board.View              `json:"board"`
			Settings *models.DisplaySettings `json:"settings"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Board.Upcoming, 1)
	assert.Equal(t, "m1", envelope.Data.Board.Upcoming[0].ID)
	require.NotNil(t, envelope.Data.Settings)
	assert.Equal(t, "fam-1", envelope.Data.Settings.FamilyID)
}

func TestDisplayHandlerBoardDateQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &recordingMessageRepo{messageRepoMock: newMessageRepoMock()}
	clock := board.FixedClock{At: time.Date(2026, 8, 31, 8, 30, 0, 0, time.Local)}
	handler := newDisplayHandler(repo, clock)

	w, c := displayRequest("/display/board?date=2026-09-01")
	handler.Board(c)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local), repo.lastDate)
}

func TestDisplayHandlerBoardRejectsMalformedDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &recordingMessageRepo{messageRepoMock: newMessageRepoMock()}
	handler := newDisplayHandler(repo, board.SystemClock())

	w, c := displayRequest("/display/board?date=tomorrow")
	handler.Board(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
