package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
	"github.com/choco-limpio/recicla-service/internal/services"
	"github.com/choco-limpio/recicla-service/internal/utils"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

type HandlerManager struct {
	authHandler    *AuthHandler
	profileHandler *ProfileHandler
	reportHandler  *ReportHandler
	adminHandler   *AdminHandler
	mediaHandler   *MediaHandler
	authMiddleware *SessionAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	blobRepo repositories.BlobRepository,
) *HandlerManager {
	authMiddleware := NewSessionAuthMiddleware(serviceManager.Sessions(), serviceManager.RoleGate())

	return &HandlerManager{
		authHandler:    NewAuthHandler(serviceManager.Registration(), validator, logger),
		profileHandler: NewProfileHandler(serviceManager.Profile(), validator, logger),
		reportHandler:  NewReportHandler(serviceManager.Report(), logger),
		adminHandler:   NewAdminHandler(serviceManager.Application(), validator, logger),
		mediaHandler:   NewMediaHandler(blobRepo, logger),
		authMiddleware: authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Public media, no session required
	router.GET("/media/:bucket/*path", hm.mediaHandler.Serve)

	v1 := router.Group("/api/v1")
	{
		// Auth routes, open to visitors
		auth := v1.Group("/auth")
		{
			auth.POST("/register", hm.authHandler.Register)
			auth.POST("/verify", hm.authHandler.Verify)
			auth.POST("/resend-code", hm.authHandler.ResendCode)
			auth.POST("/login", hm.authHandler.Login)
			auth.POST("/logout", hm.authHandler.Logout)
			auth.POST("/request-password-reset", hm.authHandler.RequestPasswordReset)
			auth.POST("/reset-password", hm.authHandler.ResetPassword)
		}

		// Profile routes - any authenticated member
		profile := v1.Group("/profile")
		profile.Use(hm.authMiddleware.AuthMiddleware())
		{
			profile.GET("", hm.profileHandler.GetProfile)
			profile.PUT("", hm.profileHandler.UpdateProfile)
			profile.POST("/avatar", hm.profileHandler.UploadAvatar)
			profile.DELETE("", hm.profileHandler.DeleteAccount)
		}

		// Dashboard routes - any authenticated member
		dashboard := v1.Group("/dashboard")
		dashboard.Use(hm.authMiddleware.AuthMiddleware())
		{
			dashboard.GET("/summary", hm.profileHandler.Summary)
			dashboard.GET("/weekly-progress", hm.profileHandler.WeeklyProgress)
			dashboard.GET("/leaderboard", hm.profileHandler.Leaderboard)
		}

		// Report routes; listing and collecting are for lancheros only
		reports := v1.Group("/reports")
		reports.Use(hm.authMiddleware.AuthMiddleware())
		{
			reports.POST("", hm.reportHandler.SubmitReport)
			reports.GET("", hm.authMiddleware.RequireRoleMiddleware(models.RoleLanchero), hm.reportHandler.ListPending)
			reports.POST("/:id/collect", hm.authMiddleware.RequireRoleMiddleware(models.RoleLanchero), hm.reportHandler.Collect)
		}

		// Admin routes - admins only
		admin := v1.Group("/admin")
		admin.Use(hm.authMiddleware.AuthMiddleware())
		admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.GET("/applications", hm.adminHandler.ListApplications)
			admin.POST("/applications/process", hm.adminHandler.ProcessApplication)
			admin.GET("/applications/export", hm.adminHandler.ExportApplications)
			admin.GET("/leaderboard/export", hm.adminHandler.ExportLeaderboard)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "recicla-service",
		})
	})
}
