package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/choco-limpio/recicla-service/internal/services"
	"github.com/choco-limpio/recicla-service/internal/utils"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	BaseHandler
	applicationService services.ApplicationService
	validator          *validator.Validator
}

func NewAdminHandler(applicationService services.ApplicationService, validator *validator.Validator, logger utils.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler:        NewBaseHandler(logger),
		applicationService: applicationService,
		validator:          validator,
	}
}

// ListApplications lists pending collector applications
// @Summary List collector applications
// @Tags admin
// @Produce json
// @Success 200 {object} services.ApplicationListResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/applications [get]
func (h *AdminHandler) ListApplications(c *gin.Context) {
	response, err := h.applicationService.ListApplications(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "solicitudes": response.Applications, "total": response.Total})
}

// ProcessApplication approves or rejects an application
// @Summary Decide a collector application
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/applications/process [post]
func (h *AdminHandler) ProcessApplication(c *gin.Context) {
	var req services.ProcessApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Faltan datos."})
		return
	}

	h.LogRequest(c, "Processing application", "application_id", req.ApplicationID, "decision", req.Decision)

	if err := h.applicationService.Process(c.Request.Context(), currentUserID(c), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ExportApplications downloads applications as a spreadsheet
// @Summary Export collector applications
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /admin/applications/export [get]
func (h *AdminHandler) ExportApplications(c *gin.Context) {
	data, err := h.applicationService.ExportApplications(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("solicitudes_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportLeaderboard downloads the leaderboard as a spreadsheet
// @Summary Export the leaderboard
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /admin/leaderboard/export [get]
func (h *AdminHandler) ExportLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	data, err := h.applicationService.ExportLeaderboard(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("ranking_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
