package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmacy_admin/internal/middleware"
	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/services"
)

// HealthCheck is a named dependency check for /healthz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type RouterDeps struct {
	Operators     services.OperatorService
	Subscriptions services.SubscriptionService
	Placement     services.OrderPlacementService
	HealthChecks  []HealthCheck
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	auth := middleware.NewAuthMiddleware(d.Operators)
	authHandler := NewAuthHandler(d.Operators)
	subHandler := NewSubscriptionHandler(d.Subscriptions)
	sessionHandler := NewOrderSessionHandler(d.Placement)

	router.GET("/healthz", healthz(d.HealthChecks))

	api := router.Group("/api")
	api.POST("/auth/login", authHandler.Login)

	read := api.Group("", auth.WithAuthCheck())
	write := api.Group("", auth.WithAuthCheck(models.SuperAdmin, models.Admin))
	{
		read.GET("/subscriptions", subHandler.List)
		read.GET("/subscriptions/:id", subHandler.Get)
		read.GET("/subscriptions/:id/orders", subHandler.OrderHistory)
		read.GET("/orders/:order_number/receipt", subHandler.ReceiptURL)

		write.POST("/subscriptions/sync", subHandler.Sync)
		write.PATCH("/subscriptions/:id/status", subHandler.ChangeStatus)
	}
	{
		write.POST("/subscriptions/:id/order-sessions", sessionHandler.Open)
		write.GET("/order-sessions/:session_id", sessionHandler.Get)
		write.DELETE("/order-sessions/:session_id", sessionHandler.Close)
		write.GET("/order-sessions/:session_id/lines/:index/pharmacies", sessionHandler.Candidates)
		write.PUT("/order-sessions/:session_id/lines/:index/selection", sessionHandler.Select)
		write.PUT("/order-sessions/:session_id/lines/:index/total", sessionHandler.RecordTotal)
		write.PUT("/order-sessions/:session_id/address", sessionHandler.SetAddress)
		write.PUT("/order-sessions/:session_id/notes", sessionHandler.SetNotes)
		write.POST("/order-sessions/:session_id/submit", sessionHandler.Submit)
	}
	return router
}

func healthz(checks []HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for _, check := range checks {
			if err := check.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[check.Name] = err.Error()
				continue
			}
			results[check.Name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
	}
}
