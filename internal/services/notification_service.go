package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"pharmacy_admin/internal/models"
)

type NotificationService interface {
	OrderPlaced(ctx context.Context, sub *models.Subscription, order *models.PlacedOrder) error
}

// MessageSender delivers a text message to a phone number.
type MessageSender interface {
	SendTextMessage(ctx context.Context, phone, message string) error
}

type whatsappNotificationService struct {
	sender MessageSender
}

func NewNotificationService(sender MessageSender) NotificationService {
	return &whatsappNotificationService{sender: sender}
}

func (s *whatsappNotificationService) OrderPlaced(ctx context.Context, sub *models.Subscription, order *models.PlacedOrder) error {
	if strings.TrimSpace(sub.CustomerPhone) == "" {
		logrus.WithField("subscription_id", sub.ID).Debug("customer has no phone number, skipping notification")
		return nil
	}
	return s.sender.SendTextMessage(ctx, sub.CustomerPhone, OrderPlacedMessage(sub, order))
}

// OrderPlacedMessage is the confirmation text sent to the customer.
func OrderPlacedMessage(sub *models.Subscription, order *models.PlacedOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", sub.CustomerName)
	fmt.Fprintf(&b, "Your subscription order %s has been placed.\n", order.OrderNumber)
	fmt.Fprintf(&b, "Total: %s\n", order.TotalAmount.StringFixed(2))
	if order.DeliveryAddress != "" {
		fmt.Fprintf(&b, "Delivery address: %s\n", order.DeliveryAddress)
	}
	if order.NextDelivery != nil {
		fmt.Fprintf(&b, "Next delivery: %s\n", order.NextDelivery.Format("2006-01-02"))
	}
	return b.String()
}
