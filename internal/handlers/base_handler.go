package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/choco-limpio/recicla-service/internal/services"
	"github.com/choco-limpio/recicla-service/internal/utils"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

// ErrorResponse is the failure envelope: success false plus a user-facing
// message under "error".
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"error"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromContext(c.Request.Context(), h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.FromContext(c.Request.Context(), h.logger).Error(msg, append(args, "error", err)...)
}

// currentUserID returns the account id the auth middleware stored, or "".
func currentUserID(c *gin.Context) string {
	id, _ := c.Get("user_id")
	s, _ := id.(string)
	return s
}

// handleServiceError maps service error kinds onto HTTP responses. Raw
// dependency errors are logged and replaced with generic copy.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var (
		validationErr   *services.ValidationError
		conflictErr     *services.ConflictError
		verificationErr *services.VerificationError
		externalErr     *services.ExternalServiceError
		fieldErrs       validator.ValidationErrors
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: validationErr.Message})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, ErrorResponse{Message: conflictErr.Message})
	case errors.As(err, &verificationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: verificationErr.Message})
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: fieldErrs.Error()})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "No autorizado"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "No autorizado"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "No encontrado"})
	case errors.As(err, &externalErr):
		h.LogError(c, err, "Dependency failure")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Ha ocurrido un error interno inesperado. Por favor, contacta a soporte."})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Ha ocurrido un error interno inesperado. Por favor, contacta a soporte."})
	}
}

// readUpload loads a multipart file into memory for the services layer.
// A nil header yields a nil upload, not an error.
func readUpload(header *multipart.FileHeader) (*services.Upload, error) {
	if header == nil {
		return nil, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return &services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
