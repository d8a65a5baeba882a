// Package router wires repositories, services and handlers into the
// HTTP surface.
package router

import (
	"log"
	"time"

	"github.com/michael24561/ConfiaPeBack/config"
	"github.com/michael24561/ConfiaPeBack/internal/domain"
	"github.com/michael24561/ConfiaPeBack/internal/handler"
	"github.com/michael24561/ConfiaPeBack/internal/middleware"
	"github.com/michael24561/ConfiaPeBack/internal/repository"
	"github.com/michael24561/ConfiaPeBack/internal/service"
	"github.com/michael24561/ConfiaPeBack/internal/ws"
	"github.com/michael24561/ConfiaPeBack/pkg/cloudinary"
	"github.com/michael24561/ConfiaPeBack/pkg/payout"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries the externally constructed pieces Setup cannot build
// itself.
type Deps struct {
	DB      *gorm.DB
	Gateway service.PaymentGateway
	Payouts payout.Provider
}

func Setup(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Frontend.BaseURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	users := repository.NewUserRepository(d.DB)
	techs := repository.NewTechnicianRepository(d.DB)
	jobs := repository.NewJobRepository(d.DB)
	payments := repository.NewPaymentRepository(d.DB)
	reports := repository.NewReportRepository(d.DB)
	ratings := repository.NewRatingRepository(d.DB)
	notifRepo := repository.NewNotificationRepository(d.DB)

	hub := ws.NewHub()
	notifSvc := service.NewNotificationService(notifRepo, hub)
	authSvc := service.NewAuthService(cfg, users, techs)
	jobSvc := service.NewJobService(d.DB, jobs, techs, notifSvc, hub)
	settlementSvc := service.NewSettlementService(
		d.DB, jobs, payments, techs, notifSvc,
		d.Gateway, d.Payouts,
		service.PercentFeePolicy{Percent: cfg.Payout.PlatformFeePercent},
		cfg.Frontend.BaseURL, cfg.MercadoPago.NotificationURL,
	)
	disputeSvc := service.NewDisputeService(d.DB, jobs, reports, notifSvc)
	ratingSvc := service.NewRatingService(d.DB, jobs, ratings, notifSvc)

	var uploads *cloudinary.Client
	if cfg.Cloudinary.CloudName != "" {
		var err error
		uploads, err = cloudinary.NewClient(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, "confiape")
		if err != nil {
			log.Printf("[router] cloudinary disabled: %v", err)
		}
	}

	authH := handler.NewAuthHandler(authSvc)
	jobH := handler.NewJobHandler(jobSvc, disputeSvc)
	paymentH := handler.NewPaymentHandler(settlementSvc)
	webhookH := handler.NewPaymentWebhookHandler(settlementSvc, cfg.MercadoPago.WebhookSecret)
	adminH := handler.NewAdminHandler(jobSvc, disputeSvc, settlementSvc, ratingSvc)
	ratingH := handler.NewRatingHandler(ratingSvc)
	notifH := handler.NewNotificationHandler(notifRepo)
	techH := handler.NewTechnicianHandler(techs)
	uploadH := handler.NewUploadHandler(uploads)

	limiter := middleware.NewInMemoryRateLimiter(20, time.Minute)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authGroup.Use(middleware.RateLimit(limiter))
		{
			authGroup.POST("/register", authH.Register)
			authGroup.POST("/login", authH.Login)
			authGroup.POST("/refresh", authH.Refresh)
		}

		// Provider callbacks authenticate by signature, not JWT.
		api.POST("/webhooks/payments", webhookH.Handle)

		api.GET("/technicians", techH.List)
		api.GET("/technicians/:id", techH.Get)
		api.GET("/technicians/:id/ratings", ratingH.ListByTechnician)

		authed := api.Group("")
		authed.Use(middleware.AuthRequired(&cfg.JWT))
		{
			jobGroup := authed.Group("/jobs")
			{
				jobGroup.POST("", jobH.Create)
				jobGroup.GET("", jobH.List)
				jobGroup.GET("/:id", jobH.Get)
				jobGroup.DELETE("/:id", jobH.Delete)
				jobGroup.POST("/:id/visit-request", jobH.RequestVisit)
				jobGroup.POST("/:id/quote", jobH.Quote)
				jobGroup.POST("/:id/reject", jobH.Reject)
				jobGroup.POST("/:id/accept-quote", jobH.AcceptQuote)
				jobGroup.POST("/:id/reject-quote", jobH.RejectQuote)
				jobGroup.POST("/:id/start", jobH.Start)
				jobGroup.POST("/:id/complete", jobH.Complete)
				jobGroup.PATCH("/:id/cancel", jobH.Cancel)
				jobGroup.POST("/:id/report", jobH.Report)
				jobGroup.GET("/:id/payment", paymentH.Status)
			}

			authed.POST("/payments/checkout", middleware.RequireRole(domain.RoleClient), paymentH.Checkout)

			authed.POST("/ratings", middleware.RequireRole(domain.RoleClient), ratingH.Create)

			me := authed.Group("/me")
			{
				me.GET("/notifications", notifH.List)
				me.PATCH("/notifications/:id/read", notifH.MarkRead)
				me.PATCH("/availability", middleware.RequireRole(domain.RoleTechnician), techH.SetAvailability)
				me.PUT("/payout-account", middleware.RequireRole(domain.RoleTechnician), techH.UpdatePayoutAccount)
			}

			authed.POST("/uploads/image", uploadH.Image)

			admin := authed.Group("/admin")
			admin.Use(middleware.AdminRequired())
			{
				admin.GET("/jobs", adminH.ListJobs)
				admin.PATCH("/jobs/:id/status", adminH.ForceStatus)
				admin.GET("/disputes", adminH.ListDisputes)
				admin.POST("/disputes/:id/resolve", adminH.ResolveDispute)
				admin.POST("/jobs/:id/payout", adminH.CreatePayout)
				admin.DELETE("/ratings/:id", adminH.DeleteRating)
			}
		}
	}

	r.GET("/ws/notifications", ws.UpgradeNotifications(&cfg.JWT, hub))
	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	return r
}
