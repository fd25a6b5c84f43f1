package services

import (
	"context"
	"errors"
	"time"

	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/ordering"
	"pharmacy_admin/internal/upstream"
)

var (
	ErrSubscriptionNotFound    = errors.New("subscription not found")
	ErrSubscriptionInactive    = errors.New("subscription is not active")
	ErrInvalidStatus           = errors.New("invalid subscription status")
	ErrInvalidStatusTransition = errors.New("subscription status transition not allowed")
	ErrSubscriptionEmpty       = errors.New("subscription has no products")
	ErrSessionNotFound         = errors.New("order session not found")
	ErrLineNotSelected         = errors.New("no pharmacy selected for this line")
	ErrSubmissionInProgress    = errors.New("an order is already being submitted for this subscription")
	ErrSessionBusy             = errors.New("order session is being updated, try again")
	ErrOrderNotFound           = errors.New("order not found")
	ErrReceiptUnavailable      = errors.New("receipt is not available")
	ErrInvalidTotal            = errors.New("line total must not be negative")
)

// UpstreamClient is the part of the platform API the services depend on.
type UpstreamClient interface {
	Subscriptions(ctx context.Context) ([]models.Subscription, error)
	Pharmacies(ctx context.Context) ([]ordering.Pharmacy, error)
	PlaceOrder(ctx context.Context, sub *ordering.Submission) (*upstream.PlaceOrderResult, error)
}

// SessionStore holds order sessions, named locks and short-lived cached
// data.
type SessionStore interface {
	SaveSession(ctx context.Context, s *ordering.Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (*ordering.Session, error)
	DeleteSession(ctx context.Context, id string) error
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
	SetTempData(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetTempData(ctx context.Context, key string, dest interface{}) error
	DeleteTempData(ctx context.Context, key string) error
}

// ReceiptArchive stores order receipts. A nil archive disables archiving.
type ReceiptArchive interface {
	PutJSON(ctx context.Context, key string, value interface{}) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
