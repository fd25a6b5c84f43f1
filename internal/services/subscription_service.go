package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/ordering"
	"pharmacy_admin/internal/repository"
)

const receiptURLTTL = 15 * time.Minute

type SubscriptionService interface {
	Sync(ctx context.Context) (*SyncResult, error)
	List(ctx context.Context, filter repository.SubscriptionFilter) ([]models.Subscription, error)
	Get(ctx context.Context, id string) (*models.Subscription, error)
	ChangeStatus(ctx context.Context, id string, status models.SubscriptionStatus) (*models.Subscription, error)
	OrderHistory(ctx context.Context, subscriptionID string) ([]models.PlacedOrder, error)
	ReceiptURL(ctx context.Context, orderNumber string) (string, error)
}

// SyncResult summarizes one pull from the upstream.
type SyncResult struct {
	Fetched  int `json:"fetched"`
	Upserted int `json:"upserted"`
	Failed   int `json:"failed"`
	Warnings int `json:"warnings"`
}

type subscriptionService struct {
	upstream UpstreamClient
	subRepo  repository.SubscriptionRepository
	orders   repository.OrderRepository
	receipts ReceiptArchive
	now      func() time.Time
}

func NewSubscriptionService(
	upstream UpstreamClient,
	subRepo repository.SubscriptionRepository,
	orders repository.OrderRepository,
	receipts ReceiptArchive,
) SubscriptionService {
	return &subscriptionService{
		upstream: upstream,
		subRepo:  subRepo,
		orders:   orders,
		receipts: receipts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *subscriptionService) Sync(ctx context.Context) (*SyncResult, error) {
	subs, err := s.upstream.Subscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sync subscriptions: %w", err)
	}

	result := &SyncResult{Fetched: len(subs)}
	syncedAt := s.now()
	for i := range subs {
		sub := &subs[i]
		existing, err := s.subRepo.GetByID(ctx, sub.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			result.Failed++
			logrus.WithError(err).WithField("subscription_id", sub.ID).Error("failed to load subscription")
			continue
		}

		mergeLocalState(sub, existing)
		ScheduleNextDelivery(sub, existing)
		result.Warnings += len(sub.Warnings)
		sub.SyncedAt = syncedAt

		if err := s.subRepo.Upsert(ctx, sub); err != nil {
			result.Failed++
			logrus.WithError(err).WithField("subscription_id", sub.ID).Error("failed to store subscription")
			continue
		}
		result.Upserted++
	}

	logrus.WithFields(logrus.Fields{
		"fetched":  result.Fetched,
		"upserted": result.Upserted,
		"failed":   result.Failed,
		"warnings": result.Warnings,
	}).Info("subscriptions synced")
	return result, nil
}

// mergeLocalState keeps the status set from this console unless the
// upstream has cancelled the subscription.
func mergeLocalState(sub, existing *models.Subscription) {
	if existing == nil || sub.Status == models.SubscriptionCancelled {
		return
	}
	sub.Status = existing.Status
	sub.IsActive = existing.Status == models.SubscriptionActive
}

// ScheduleNextDelivery fills in the next delivery date. A date confirmed by
// the server is kept until a delivery on or after it shows up in the
// history; otherwise the date is estimated from the frequency.
func ScheduleNextDelivery(sub, existing *models.Subscription) {
	sub.Warnings = nil
	if existing != nil && existing.NextDeliverySource == models.NextDeliveryServer && existing.NextDelivery != nil {
		last, delivered := sub.LastDelivery()
		if !delivered || last.Before(*existing.NextDelivery) {
			next := *existing.NextDelivery
			sub.NextDelivery = &next
			sub.NextDeliverySource = models.NextDeliveryServer
			return
		}
	}

	base := ordering.EstimateBase(sub)
	if base.IsZero() {
		sub.NextDelivery = nil
		sub.NextDeliverySource = models.NextDeliveryEstimate
		return
	}
	next, ok := ordering.EstimateNextDelivery(sub.Frequency, base)
	if !ok {
		sub.Warnings = append(sub.Warnings, fmt.Sprintf("unrecognized frequency %q, assumed monthly", sub.Frequency))
		logrus.WithFields(logrus.Fields{
			"subscription_id": sub.ID,
			"frequency":       sub.Frequency,
		}).Warn("unrecognized subscription frequency")
	}
	sub.NextDelivery = &next
	sub.NextDeliverySource = models.NextDeliveryEstimate
}

func (s *subscriptionService) List(ctx context.Context, filter repository.SubscriptionFilter) ([]models.Subscription, error) {
	return s.subRepo.List(ctx, filter)
}

func (s *subscriptionService) Get(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.subRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) ChangeStatus(ctx context.Context, id string, status models.SubscriptionStatus) (*models.Subscription, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == status {
		return sub, nil
	}
	if !sub.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, sub.Status, status)
	}
	if err := s.subRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"subscription_id": id,
		"from":            sub.Status,
		"to":              status,
	}).Info("subscription status changed")

	sub.Status = status
	sub.IsActive = status == models.SubscriptionActive
	return sub, nil
}

func (s *subscriptionService) OrderHistory(ctx context.Context, subscriptionID string) ([]models.PlacedOrder, error) {
	if _, err := s.Get(ctx, subscriptionID); err != nil {
		return nil, err
	}
	return s.orders.GetBySubscriptionID(ctx, subscriptionID)
}

func (s *subscriptionService) ReceiptURL(ctx context.Context, orderNumber string) (string, error) {
	order, err := s.orders.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrOrderNotFound
		}
		return "", err
	}
	if s.receipts == nil || order.ReceiptObjectKey == "" {
		return "", ErrReceiptUnavailable
	}
	return s.receipts.PresignedURL(ctx, order.ReceiptObjectKey, receiptURLTTL)
}
