package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/famboard/famboard-api/internal/models"
	"github.com/famboard/famboard-api/internal/service"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
	"github.com/famboard/famboard-api/pkg/response"
)

// FamilyHandler wires HTTP endpoints to the family service.
type FamilyHandler struct {
	service *service.FamilyService
}

// NewFamilyHandler creates a new handler.
func NewFamilyHandler(svc *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{service: svc}
}

// Create godoc
// @Summary Create a family
// @Description Create a family and become its owner
// @Tags Families
// @Accept json
// @Produce json
// @Param payload body models.CreateFamilyRequest true "Family payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /families [post]
func (h *FamilyHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid family payload"))
		return
	}

	family, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, family)
}

// Get godoc
// @Summary Get the caller's family
// @Tags Families
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /families/mine [get]
func (h *FamilyHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	family, err := h.service.Get(c.Request.Context(), claims.FamilyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, family, nil)
}

// Join godoc
// @Summary Join a family
// @Description Join an existing family with an invite code
// @Tags Families
// @Accept json
// @Produce json
// @Param payload body models.JoinFamilyRequest true "Join payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /families/join [post]
func (h *FamilyHandler) Join(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.JoinFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid join payload"))
		return
	}

	family, err := h.service.Join(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, family, nil)
}

// RotateInviteCode godoc
// @Summary Rotate invite code
// @Description Replace the family invite code. Owner only.
// @Tags Families
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /families/invite-code [post]
func (h *FamilyHandler) RotateInviteCode(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	family, err := h.service.RotateInviteCode(c.Request.Context(), claims.FamilyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, family, nil)
}

// ListMembers godoc
// @Summary List family members
// @Tags Families
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /families/members [get]
func (h *FamilyHandler) ListMembers(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	members, err := h.service.ListMembers(c.Request.Context(), claims.FamilyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, members, nil)
}

// RemoveMember godoc
// @Summary Remove a family member
// @Description Detach a member from the family. Owner only.
// @Tags Families
// @Param id path string true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /families/members/{id} [delete]
func (h *FamilyHandler) RemoveMember(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), claims.FamilyID, claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Leave godoc
// @Summary Leave the family
// @Tags Families
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /families/leave [post]
func (h *FamilyHandler) Leave(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Leave(c.Request.Context(), claims.FamilyID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
