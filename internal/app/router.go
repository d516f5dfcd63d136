package app

import (
	"net/http"

	_ "billing/api/swagger" // swagger docs
	"billing/internal/handler"
	"billing/internal/logger"
	"billing/internal/middleware"
	"billing/internal/websocket"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router builds the HTTP surface over the services.
func (a *App) Router() *gin.Engine {
	gin.SetMode(a.Config.GinMode)
	secret := a.Config.Secret()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.WithComponent("http")))
	if a.Config.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = a.Config.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := a.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(a.Hub, c, secret, middleware.RoleAdmin, middleware.RoleCashier, middleware.RoleAuditor)
	})

	api := router.Group("")
	handler.NewPaymentHandler(a.Payments, secret).RegisterRoutes(api)
	handler.NewInvoiceHandler(a.Invoices, secret).RegisterRoutes(api)
	handler.NewAuditHandler(a.Audit, secret).RegisterRoutes(api)
	handler.NewReportHandler(a.Reports, secret).RegisterRoutes(api)

	return router
}
