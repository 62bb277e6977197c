package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/famboard/famboard-api/internal/models"
	"github.com/famboard/famboard-api/internal/service"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
	"github.com/famboard/famboard-api/pkg/response"
)

// DigestHandler wires HTTP endpoints to the digest service.
type DigestHandler struct {
	service *service.DigestService
}

// NewDigestHandler creates a new handler.
func NewDigestHandler(svc *service.DigestService) *DigestHandler {
	return &DigestHandler{service: svc}
}

// Create godoc
// @Summary Create a message digest
// @Description Render the family's messages for a date range as CSV or PDF
// @Tags Digests
// @Accept json
// @Produce json
// @Param payload body models.CreateDigestRequest true "Digest payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /digests [post]
func (h *DigestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateDigestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid digest payload"))
		return
	}

	digest, err := h.service.Create(c.Request.Context(), claims.FamilyID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, digest)
}

// Download godoc
// @Summary Download a digest
// @Description Serve a rendered digest file via its signed token
// @Tags Digests
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /digests/download/{token} [get]
func (h *DigestHandler) Download(c *gin.Context) {
	token := c.Param("token")
	path, err := h.service.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := filepath.Base(path)
	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(filename, ".csv"):
		contentType = "text/csv"
	case strings.HasSuffix(filename, ".pdf"):
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", contentType)
	c.File(path)
}
