package router

import (
	"time"

	"mkopo/config"
	"mkopo/internal/domain"
	"mkopo/internal/handler"
	"mkopo/internal/middleware"
	"mkopo/internal/repository"
	"mkopo/internal/service"
	"mkopo/internal/ws"
	"mkopo/pkg/cloudinary"
	"mkopo/pkg/payment"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, cloud cloudinary.Client) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewIPRateLimiter(100, 60*time.Second)))

	// Repositories
	paymentRepo := repository.NewPaymentRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	operatorRepo := repository.NewOperatorRepository(db)

	paymentHub := ws.NewPaymentHub()

	// Services
	gateway := payment.NewPayHero(cfg.PayHero.BaseURL, cfg.PayHero.APIUsername, cfg.PayHero.APIPassword, cfg.PayHero.ChannelID)
	paymentSvc := service.NewPaymentService(cfg, gateway, paymentRepo, loanRepo, paymentHub)

	// Handlers
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	webhookHandler := handler.NewPayHeroWebhookHandler(paymentSvc, cfg.PayHero.WebhookSecret)
	loanHandler := handler.NewLoanHandler(loanRepo)
	authHandler := handler.NewAuthHandler(cfg, operatorRepo)
	adminHandler := handler.NewAdminHandler(paymentRepo, loanRepo)
	uploadHandler := handler.NewUploadHandler(cloud, loanRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		api.GET("/loans/products", loanHandler.ListProducts)
		api.POST("/loans", loanHandler.Apply)
		api.GET("/loans/:id", loanHandler.Get)
		api.POST("/loans/:id/documents", uploadHandler.UploadIDDocument)

		api.POST("/payments/initiate", paymentHandler.Initiate)
		api.POST("/payments/status", paymentHandler.CheckStatus)
		api.GET("/payments/:reference", paymentHandler.Get)

		api.POST("/webhooks/payhero", webhookHandler.Handle)

		api.POST("/auth/login", authHandler.Login)

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.RequireRole(domain.RoleOperator))
		{
			admin.GET("/payments", adminHandler.ListPayments)
			admin.GET("/loans", adminHandler.ListLoans)
		}
	}

	r.GET("/ws/payments", ws.UpgradePaymentWS(paymentHub))

	return r
}
