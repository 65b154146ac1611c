package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/choco-limpio/recicla-service/internal/services"
	"github.com/choco-limpio/recicla-service/internal/utils"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

type ProfileHandler struct {
	BaseHandler
	profileService services.ProfileService
	validator      *validator.Validator
}

func NewProfileHandler(profileService services.ProfileService, validator *validator.Validator, logger utils.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler:    NewBaseHandler(logger),
		profileService: profileService,
		validator:      validator,
	}
}

// GetProfile returns the caller's profile
// @Summary Get own profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} ErrorResponse
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.profileService.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

// UpdateProfile changes name, neighborhood or email
// @Summary Update own profile
// @Tags profile
// @Accept json
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req services.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Faltan datos."})
		return
	}
	if errs := h.validator.Struct(req); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: errs.Error()})
		return
	}

	profile, err := h.profileService.Update(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

// UploadAvatar stores a new profile picture
// @Summary Upload an avatar
// @Tags profile
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /profile/avatar [post]
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	header, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "No se ha seleccionado ninguna imagen."})
		return
	}
	photo, err := readUpload(header)
	if err != nil {
		h.LogError(c, err, "Failed to read avatar upload")
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "No se ha seleccionado ninguna imagen."})
		return
	}

	url, err := h.profileService.UploadAvatar(c.Request.Context(), currentUserID(c), photo)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

// DeleteAccount removes the caller's account and data
// @Summary Delete own account
// @Tags profile
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Router /profile [delete]
func (h *ProfileHandler) DeleteAccount(c *gin.Context) {
	h.LogRequest(c, "Deleting account", "user_id", currentUserID(c))

	if err := h.profileService.DeleteAccount(c.Request.Context(), currentUserID(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Summary returns the dashboard figures
// @Summary Dashboard summary
// @Tags dashboard
// @Produce json
// @Success 200 {object} models.ProfileSummary
// @Router /dashboard/summary [get]
func (h *ProfileHandler) Summary(c *gin.Context) {
	summary, err := h.profileService.Summary(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"nombre":        summary.Name,
		"kg_reciclados": summary.RecycledKg,
		"minutos":       summary.Minutes,
		"arboles":       summary.Trees,
		"co2_evitado":   summary.CO2Avoided,
		"top_users":     summary.TopUsers,
	})
}

// WeeklyProgress returns per-day collected kilograms for the last week
// @Summary Weekly progress
// @Tags dashboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /dashboard/weekly-progress [get]
func (h *ProfileHandler) WeeklyProgress(c *gin.Context) {
	progress, err := h.profileService.WeeklyProgress(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "progress": progress})
}

// Leaderboard returns the top recyclers
// @Summary Leaderboard
// @Tags dashboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /dashboard/leaderboard [get]
func (h *ProfileHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "3"))

	entries, err := h.profileService.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "top_users": entries})
}
