package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/choco-limpio/recicla-service/internal/repositories"
	"github.com/choco-limpio/recicla-service/internal/utils"
)

// MediaHandler serves stored uploads (boat photos, avatars, report photos)
// on the public media URLs the blob store hands out.
type MediaHandler struct {
	BaseHandler
	blobs repositories.BlobRepository
}

func NewMediaHandler(blobs repositories.BlobRepository, logger utils.Logger) *MediaHandler {
	return &MediaHandler{
		BaseHandler: NewBaseHandler(logger),
		blobs:       blobs,
	}
}

// Serve streams an object by bucket and path
// @Summary Serve an uploaded file
// @Tags media
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /media/{bucket}/{path} [get]
func (h *MediaHandler) Serve(c *gin.Context) {
	bucket := c.Param("bucket")
	path := strings.TrimPrefix(c.Param("path"), "/")
	if bucket == "" || path == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "No encontrado"})
		return
	}

	object, err := h.blobs.Get(c.Request.Context(), bucket, path)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "No encontrado"})
			return
		}
		h.LogError(c, err, "Failed to load object", "bucket", bucket, "path", path)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Ha ocurrido un error interno inesperado. Por favor, contacta a soporte."})
		return
	}

	contentType := object.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, contentType, object.Data)
}
