package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/famboard/famboard-api/internal/models"
	"github.com/famboard/famboard-api/internal/service"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
	"github.com/famboard/famboard-api/pkg/response"
)

// PushHandler wires HTTP endpoints to the push service.
type PushHandler struct {
	service *service.PushService
}

// NewPushHandler creates a new handler.
func NewPushHandler(svc *service.PushService) *PushHandler {
	return &PushHandler{service: svc}
}

// Subscribe godoc
// @Summary Register a push subscription
// @Tags Push
// @Accept json
// @Produce json
// @Param payload body models.SubscribePushRequest true "Subscription payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /push/subscriptions [post]
func (h *PushHandler) Subscribe(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SubscribePushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subscription payload"))
		return
	}

	sub, err := h.service.Subscribe(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, sub)
}

// List godoc
// @Summary List push subscriptions
// @Tags Push
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /push/subscriptions [get]
func (h *PushHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	subs, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, subs, nil)
}

// Unsubscribe godoc
// @Summary Remove a push subscription
// @Tags Push
// @Param id path string true "Subscription ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /push/subscriptions/{id} [delete]
func (h *PushHandler) Unsubscribe(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Unsubscribe(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
