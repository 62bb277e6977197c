package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/board"
	"github.com/famboard/famboard-api/internal/service"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
	"github.com/famboard/famboard-api/pkg/response"
)

// DisplayHandler serves the sorted board view and its realtime event stream.
type DisplayHandler struct {
	messages *service.MessageService
	settings *service.SettingsService
	cache    *service.CacheService
	metrics  *service.MetricsService
	clock    board.Clock
	logger   *zap.Logger
}

// NewDisplayHandler creates a new handler. metrics may be nil.
func NewDisplayHandler(messages *service.MessageService, settings *service.SettingsService, cache *service.CacheService, metrics *service.MetricsService, clock board.Clock, logger *zap.Logger) *DisplayHandler {
	if clock == nil {
		clock = board.SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DisplayHandler{messages: messages, settings: settings, cache: cache, metrics: metrics, clock: clock, logger: logger}
}

type boardResponse struct {
	Board    board.View  `json:"board"`
	Settings interface{} `json:"settings"`
}

// Board godoc
// @Summary Fetch the display board
// @Description Return a day's messages partitioned into upcoming, all-day and passed buckets
// @Tags Display
// @Produce json
// @Param date query string false "Board date YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /display/board [get]
func (h *DisplayHandler) Board(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	now := h.clock.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, now.Location())
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	messages, err := h.messages.ListForBoard(c.Request.Context(), claims.FamilyID, day)
	if err != nil {
		response.Error(c, err)
		return
	}

	view := board.Sort(messages, now)

	settings, err := h.settings.Get(c.Request.Context(), claims.FamilyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordBoardRequest()
	response.JSON(c, http.StatusOK, boardResponse{Board: view, Settings: settings}, nil)
}

// Stream godoc
// @Summary Subscribe to board change events
// @Description Server-sent events fired whenever the family's board changes
// @Tags Display
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /display/stream [get]
func (h *DisplayHandler) Stream(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	sub := h.cache.Subscribe(c.Request.Context(), service.BoardEventChannel)
	if sub == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "event stream unavailable"))
		return
	}
	defer sub.Close()

	h.metrics.StreamClientConnected()
	defer h.metrics.StreamClientDisconnected()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events := sub.Channel()
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-events:
			if !ok {
				return false
			}
			// Events carry the family ID; clients filter on their own.
			c.SSEvent("board", msg.Payload)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
