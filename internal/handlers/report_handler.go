package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/choco-limpio/recicla-service/internal/services"
	"github.com/choco-limpio/recicla-service/internal/utils"
)

type ReportHandler struct {
	BaseHandler
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
	}
}

// SubmitReport files a pickup report with photo evidence
// @Summary Submit a pickup report
// @Tags reports
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} models.PickupReport
// @Failure 400 {object} ErrorResponse
// @Router /reports [post]
func (h *ReportHandler) SubmitReport(c *gin.Context) {
	var req services.ReportCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Todos los campos son obligatorios."})
		return
	}

	header, _ := c.FormFile("foto")
	photo, err := readUpload(header)
	if err != nil {
		h.LogError(c, err, "Failed to read report photo")
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Todos los campos son obligatorios."})
		return
	}

	report, err := h.reportService.Submit(c.Request.Context(), currentUserID(c), &req, photo)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reporte": report})
}

// ListPending lists uncollected reports for collectors
// @Summary List pending reports
// @Tags reports
// @Produce json
// @Success 200 {object} services.PendingReportsResponse
// @Failure 403 {object} ErrorResponse
// @Router /reports [get]
func (h *ReportHandler) ListPending(c *gin.Context) {
	response, err := h.reportService.ListPending(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reportes": response.Reports, "total": response.Total})
}

// Collect marks a report as picked up and credits the reporter
// @Summary Collect a report
// @Tags reports
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /reports/{id}/collect [post]
func (h *ReportHandler) Collect(c *gin.Context) {
	reportID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Faltan datos."})
		return
	}

	if err := h.reportService.MarkCollected(c.Request.Context(), uint(reportID), currentUserID(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
