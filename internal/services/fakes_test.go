package services

import (
	"context"
	"sync"
	"time"

	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/ordering"
	"pharmacy_admin/internal/upstream"
)

type fakeUpstream struct {
	mu            sync.Mutex
	subscriptions []models.Subscription
	pharmacies    []ordering.Pharmacy
	pharmacyCalls int
	placeResult   *upstream.PlaceOrderResult
	placeErr      error
	placed        []*ordering.Submission
}

func (f *fakeUpstream) Subscriptions(context.Context) ([]models.Subscription, error) {
	out := make([]models.Subscription, len(f.subscriptions))
	copy(out, f.subscriptions)
	return out, nil
}

func (f *fakeUpstream) Pharmacies(context.Context) ([]ordering.Pharmacy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pharmacyCalls++
	return f.pharmacies, nil
}

func (f *fakeUpstream) PlaceOrder(_ context.Context, sub *ordering.Submission) (*upstream.PlaceOrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, sub)
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return f.placeResult, nil
}

type fakeArchive struct {
	objects map[string]interface{}
	err     error
}

func (f *fakeArchive) PutJSON(_ context.Context, key string, value interface{}) error {
	if f.err != nil {
		return f.err
	}
	if f.objects == nil {
		f.objects = make(map[string]interface{})
	}
	f.objects[key] = value
	return nil
}

func (f *fakeArchive) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.example.com/" + key, nil
}

type fakeNotifier struct {
	orders []string
	err    error
}

func (f *fakeNotifier) OrderPlaced(_ context.Context, _ *models.Subscription, order *models.PlacedOrder) error {
	f.orders = append(f.orders, order.OrderNumber)
	return f.err
}
