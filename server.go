package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/handlers"
	"bitbucket.org/xxlgroup/orderhub_backend/middlewares"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
	"bitbucket.org/xxlgroup/orderhub_backend/workflow"
)

const defaultPort = "8080"

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that attached errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func buildCors() cors.Config {
	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allowlist; elsewhere allow all for
	// developer convenience.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	return corsConfig
}

func registerRoutes(r *gin.Engine, engine *workflow.ConfirmationEngine) {
	admin := middlewares.RequireRole(models.UserRoleAdmin)
	deciders := middlewares.RequireRole(models.UserRoleAdmin, models.UserRoleManager)

	r.POST("/api/login", handlers.LoginHandler())

	api := r.Group("/api", middlewares.RequireUser())
	{
		api.GET("/profile", handlers.GetProfileHandler())
		api.PUT("/profile", handlers.UpdateProfileHandler())
		api.POST("/profile/password", handlers.ChangePasswordHandler())
		api.POST("/users", admin, handlers.CreateUserHandler())

		api.POST("/countries", admin, handlers.CreateCountryHandler())
		api.GET("/countries", handlers.ListCountriesHandler())

		api.POST("/factories", deciders, handlers.CreateFactoryHandler())
		api.PUT("/factories/:id", deciders, handlers.UpdateFactoryHandler())
		api.PATCH("/factories/:id/active", deciders, handlers.ToggleFactoryHandler())
		api.GET("/factories/:id", handlers.GetFactoryHandler())
		api.GET("/factories", handlers.ListFactoriesHandler())
		api.GET("/factories/autocomplete", handlers.AutocompleteFactoriesHandler())

		api.POST("/orders", handlers.CreateOrderHandler())
		api.GET("/orders", handlers.ListOrdersHandler())
		api.GET("/orders/years", handlers.OrderYearsHandler())
		api.GET("/orders/autocomplete", handlers.AutocompleteOrdersHandler())
		api.GET("/orders/export", handlers.ExportOrdersHandler())
		api.GET("/orders/:id", handlers.GetOrderHandler())
		api.PUT("/orders/:id", handlers.UpdateOrderHandler())
		api.GET("/orders/:id/audit", handlers.ListOrderAuditHandler())
		api.POST("/orders/:id/shipments", handlers.CreateShipmentHandler())
		api.GET("/orders/:id/shipments", handlers.ListShipmentsHandler())

		api.POST("/confirmations", handlers.CreateConfirmationHandler(engine))
		api.GET("/confirmations", handlers.ListConfirmationsHandler())
		api.GET("/confirmations/:id", handlers.GetConfirmationHandler(engine))
		api.POST("/confirmations/:id/approve", deciders, handlers.ApproveConfirmationHandler(engine))
		api.POST("/confirmations/:id/reject", deciders, handlers.RejectConfirmationHandler(engine))

		api.GET("/invoices", handlers.ListInvoicesHandler())
		api.GET("/invoices/:id", handlers.GetInvoiceHandler())
		api.POST("/invoices/:id/payments", deciders, handlers.AddInvoicePaymentHandler())

		api.PATCH("/shipments/:id/status", handlers.UpdateShipmentStatusHandler())

		api.POST("/baskets", deciders, handlers.CreateBasketHandler())
		api.GET("/baskets", handlers.ListBasketsHandler())
		api.GET("/baskets/:id", handlers.GetBasketHandler())
		api.POST("/baskets/:id/invoices", deciders, handlers.AddBasketInvoiceHandler())
		api.DELETE("/baskets/:id/invoices/:invoiceId", deciders, handlers.RemoveBasketInvoiceHandler())
		api.POST("/baskets/:id/submit", deciders, handlers.SubmitBasketHandler())
		api.POST("/baskets/:id/resolve", admin, handlers.ResolveBasketHandler())

		api.GET("/notifications", handlers.ListNotificationsHandler())
		api.GET("/notifications/unread", handlers.UnreadCountHandler())
		api.POST("/notifications/:id/read", handlers.MarkNotificationReadHandler())
		api.POST("/notifications/read-all", handlers.MarkAllNotificationsReadHandler())
		api.GET("/notification-settings", handlers.GetNotificationSettingsHandler())
		api.PUT("/notification-settings", handlers.UpdateNotificationSettingsHandler())

		api.POST("/uploads/sign", handlers.SignUploadHandler())
		api.POST("/uploads/complete", handlers.CompleteUploadHandler())

		api.GET("/analytics/dashboard", handlers.DashboardHandler())
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy; until DB/Redis are ready app endpoints answer 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.Use(cors.New(buildCors()))
	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	engine := workflow.NewConfirmationEngine(logger)
	registerRoutes(r, engine)
	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.MigrateTable(); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Panic(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Background workers.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	if config.RunExpirySweep() {
		go workflow.NewExpirySweeper(logger).Run(workerCtx)
	}
	if config.RunReminderSweep() {
		go workflow.NewReminderSweeper(logger).Run(workerCtx)
	}
	if config.RunNotificationProcessor() {
		go NewNotificationProcessor(db, logger).Run(workerCtx)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we
	// are draining.
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
