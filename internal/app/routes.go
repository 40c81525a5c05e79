package app

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/ptc-frontdesk/internal/sentry"
)

// newRouter mounts every endpoint. Optional features (LINE, archive) are
// mounted only when configured.
func (a *Application) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		// Repanic hands the panic back to gin.Recovery after reporting.
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsPassword != "", a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	api.GET("/welcome", a.handleWelcome)
	api.POST("/chat", a.handleChat)
	api.POST("/sessions/:id/reset", a.handleReset)
	api.GET("/sessions/:id/history", a.handleHistory)

	admin := router.Group("/admin", adminAuthMiddleware(a.cfg.AdminKey, a.metrics))
	admin.GET("/stats", a.handleAdminStats)
	admin.GET("/stats/download", a.handleStatsDownload)
	admin.GET("/interactions/download", a.handleInteractionsDownload)
	if a.archives != nil {
		admin.GET("/archives/status/:day", a.handleArchiveStatus)
		admin.GET("/archives/download", a.handleArchiveDownload)
	}

	if a.webhookHandler != nil {
		router.POST("/callback", a.webhookHandler.Handle)
	}

	return router
}
