package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/choco-limpio/recicla-service/internal/services"
	"github.com/choco-limpio/recicla-service/internal/utils"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

type AuthHandler struct {
	BaseHandler
	registrationService services.RegistrationService
	validator           *validator.Validator
}

func NewAuthHandler(registrationService services.RegistrationService, validator *validator.Validator, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler:         NewBaseHandler(logger),
		registrationService: registrationService,
		validator:           validator,
	}
}

// Register creates an account from the signup form
// @Summary Register a new member
// @Tags auth
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} services.RegisterResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Todos los campos son obligatorios"})
		return
	}

	// The boat photo is optional at bind time; the registration flow decides
	// whether the requested role makes it mandatory.
	header, _ := c.FormFile("foto_lancha")
	photo, err := readUpload(header)
	if err != nil {
		h.LogError(c, err, "Failed to read boat photo")
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "No se pudo leer la foto de la lancha."})
		return
	}

	result, err := h.registrationService.Register(c.Request.Context(), &req, photo)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "redirect": result.RedirectURL})
}

// Verify exchanges the emailed code for a verified account
// @Summary Verify a registration code
// @Tags auth
// @Produce json
// @Success 200 {object} services.VerifyResult
// @Failure 400 {object} ErrorResponse
// @Router /auth/verify [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	var req validator.VerifyRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "El código es obligatorio."})
		return
	}

	result, err := h.registrationService.Verify(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response := gin.H{"success": true, "redirect": result.RedirectURL, "pending": result.Pending}
	if result.Token != "" {
		response["token"] = result.Token
	}
	c.JSON(http.StatusOK, response)
}

// ResendCode reissues the signup verification code
// @Summary Resend the verification code
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/resend-code [post]
func (h *AuthHandler) ResendCode(c *gin.Context) {
	var req validator.ResendCodeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "El correo es obligatorio."})
		return
	}

	if err := h.registrationService.ResendCode(c.Request.Context(), req.Email); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Login exchanges credentials for a session token
// @Summary Log in with email, phone or member name
// @Tags auth
// @Produce json
// @Success 200 {object} services.LoginResult
// @Failure 400 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Datos incorrectos"})
		return
	}

	result, err := h.registrationService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"token":    result.Token,
		"redirect": result.RedirectURL,
	})
}

// Logout ends the session. Tokens are stateless, so the client simply
// discards its copy; the endpoint exists for symmetry with the login flow.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RequestPasswordReset mails a reset code
// @Summary Request a password reset code
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/request-password-reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req validator.PasswordResetRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "El correo es obligatorio."})
		return
	}

	// Always answers success, regardless of whether the address exists.
	if err := h.registrationService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetPassword completes a password reset with the mailed code
// @Summary Reset the password
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req validator.PasswordResetCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Faltan datos."})
		return
	}
	if errs := h.validator.Struct(req); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: errs.Error()})
		return
	}

	if err := h.registrationService.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
