package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/corent-backend/internal/config"
	"github.com/ignatzorin/corent-backend/internal/http/handlers"
	"github.com/ignatzorin/corent-backend/internal/http/middleware"
)

func SetupRouter(
	cfg *config.Config,
	smsHandler *handlers.SMSHandler,
	inviteHandler *handlers.InviteHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokens middleware.AccessTokenParser,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	auth := middleware.AuthMiddleware(tokens)

	// Общий лимит по IP; лимиты на номер считает VerificationService.
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/send-verification", smsHandler.SendVerification)
		authGroup.POST("/verify-sms", smsHandler.VerifySMS)
		authGroup.POST("/resend-sms", smsHandler.ResendSMS)
		authGroup.GET("/verification-stats", auth, smsHandler.Stats)
		authGroup.GET("/sms/messages/:messageId", auth, smsHandler.MessageStatus)
	}

	// Callback провайдера приходит без лимита: Twilio шлёт их пачками.
	api.POST("/auth/sms/status-callback", smsHandler.StatusCallback)

	members := api.Group("/members")
	{
		members.POST("/invite", auth, inviteHandler.Invite)
		members.GET("/invitations", auth, inviteHandler.List)
		members.PATCH("/invite/accept", inviteHandler.Accept)
	}

	api.GET("/ws/sms-status", middleware.QueryTokenAuth(tokens), wsHandler.Handle)

	return r
}
