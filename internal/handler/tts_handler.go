package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/famboard/famboard-api/internal/service"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
	"github.com/famboard/famboard-api/pkg/response"
)

// TTSHandler proxies speech synthesis requests for display clients.
type TTSHandler struct {
	service *service.TTSService
}

// NewTTSHandler creates a new handler.
func NewTTSHandler(svc *service.TTSService) *TTSHandler {
	return &TTSHandler{service: svc}
}

type synthesizeRequest struct {
	Text  string  `json:"text" binding:"required,max=500"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// Synthesize godoc
// @Summary Synthesize speech
// @Description Render text to audio for board announcements
// @Tags TTS
// @Accept json
// @Produce audio/mpeg
// @Param payload body synthesizeRequest true "Synthesis payload"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /tts/synthesize [post]
func (h *TTSHandler) Synthesize(c *gin.Context) {
	var req synthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid synthesis payload"))
		return
	}

	audio, err := h.service.Synthesize(c.Request.Context(), req.Text, req.Voice, req.Speed)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Data(http.StatusOK, "audio/mpeg", audio)
}
