package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/repository"
	"pharmacy_admin/internal/services"
)

type SubscriptionHandler struct {
	subscriptions services.SubscriptionService
}

func NewSubscriptionHandler(subscriptions services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

func (h *SubscriptionHandler) List(c *gin.Context) {
	subs, err := h.subscriptions.List(c.Request.Context(), repository.SubscriptionFilter{
		Status:     c.Query("status"),
		CustomerID: c.Query("customer_id"),
		Search:     c.Query("q"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs, "count": len(subs)})
}

func (h *SubscriptionHandler) Sync(c *gin.Context) {
	res, err := h.subscriptions.Sync(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("subscription sync failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to sync subscriptions"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *SubscriptionHandler) Get(c *gin.Context) {
	sub, err := h.subscriptions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

type changeStatusRequest struct {
	Status models.SubscriptionStatus `json:"status" binding:"required"`
}

func (h *SubscriptionHandler) ChangeStatus(c *gin.Context) {
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	sub, err := h.subscriptions.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) OrderHistory(c *gin.Context) {
	orders, err := h.subscriptions.OrderHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *SubscriptionHandler) ReceiptURL(c *gin.Context) {
	url, err := h.subscriptions.ReceiptURL(c.Request.Context(), c.Param("order_number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
