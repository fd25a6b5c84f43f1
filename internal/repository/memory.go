package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"pharmacy_admin/internal/models"
)

// MemoryStore is an in-process implementation of the repositories, used by
// tests and local runs without Postgres.
type MemoryStore struct {
	mu             sync.RWMutex
	nextOrderID    uint
	nextOperatorID uint
	subscriptions  map[string]models.Subscription
	orders         map[uint]models.PlacedOrder
	operators      map[uint]models.Operator
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextOrderID:    1,
		nextOperatorID: 1,
		subscriptions:  make(map[string]models.Subscription),
		orders:         make(map[uint]models.PlacedOrder),
		operators:      make(map[uint]models.Operator),
	}
}

func copySubscription(s models.Subscription) models.Subscription {
	cp := s
	cp.Products = append([]models.SubscriptionProduct(nil), s.Products...)
	cp.DeliveryHistory = append([]models.DeliveryRecord(nil), s.DeliveryHistory...)
	cp.Warnings = append([]string(nil), s.Warnings...)
	if s.NextDelivery != nil {
		next := *s.NextDelivery
		cp.NextDelivery = &next
	}
	return cp
}

// Subscriptions returns the store as a SubscriptionRepository.
func (m *MemoryStore) Subscriptions() SubscriptionRepository { return memorySubscriptions{m} }

// Orders returns the store as an OrderRepository.
func (m *MemoryStore) Orders() OrderRepository { return memoryOrders{m} }

// Operators returns the store as an OperatorRepository.
func (m *MemoryStore) Operators() OperatorRepository { return memoryOperators{m} }

type memorySubscriptions struct{ store *MemoryStore }

var _ SubscriptionRepository = memorySubscriptions{}

func (r memorySubscriptions) Upsert(_ context.Context, sub *models.Subscription) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.store.subscriptions[sub.ID]; ok {
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	r.store.subscriptions[sub.ID] = copySubscription(*sub)
	return nil
}

func (r memorySubscriptions) GetByID(_ context.Context, id string) (*models.Subscription, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	s, ok := r.store.subscriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copySubscription(s)
	return &cp, nil
}

func (r memorySubscriptions) List(_ context.Context, f SubscriptionFilter) ([]models.Subscription, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]models.Subscription, 0)
	for _, s := range r.store.subscriptions {
		if f.Status != "" && string(s.Status) != f.Status {
			continue
		}
		if f.CustomerID != "" && s.CustomerID != f.CustomerID {
			continue
		}
		if f.Search != "" && !containsIgnoreCase(s.CustomerName, f.Search) &&
			!containsIgnoreCase(s.CustomerPhone, f.Search) && s.ID != f.Search {
			continue
		}
		out = append(out, copySubscription(s))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].NextDelivery, out[j].NextDelivery
		switch {
		case a == nil && b == nil:
			return out[i].ID < out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
	return out, nil
}

func (r memorySubscriptions) UpdateNextDelivery(_ context.Context, id string, next time.Time, source string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.subscriptions[id]
	if !ok {
		return ErrNotFound
	}
	s.NextDelivery = &next
	s.NextDeliverySource = source
	s.UpdatedAt = time.Now().UTC()
	r.store.subscriptions[id] = s
	return nil
}

func (r memorySubscriptions) UpdateStatus(_ context.Context, id string, status models.SubscriptionStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.subscriptions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.IsActive = status == models.SubscriptionActive
	s.UpdatedAt = time.Now().UTC()
	r.store.subscriptions[id] = s
	return nil
}

type memoryOrders struct{ store *MemoryStore }

var _ OrderRepository = memoryOrders{}

func (r memoryOrders) Create(_ context.Context, order *models.PlacedOrder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order.ID = r.store.nextOrderID
	r.store.nextOrderID++
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	r.store.orders[order.ID] = *order
	return nil
}

func (r memoryOrders) GetByOrderNumber(_ context.Context, orderNumber string) (*models.PlacedOrder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, o := range r.store.orders {
		if o.OrderNumber == orderNumber {
			cp := o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryOrders) GetBySubscriptionID(_ context.Context, subscriptionID string) ([]models.PlacedOrder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]models.PlacedOrder, 0)
	for _, o := range r.store.orders {
		if o.SubscriptionID == subscriptionID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].OrderDate.After(out[j].OrderDate)
	})
	return out, nil
}

func (r memoryOrders) Update(_ context.Context, order *models.PlacedOrder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.orders[order.ID]; !ok {
		return ErrNotFound
	}
	order.UpdatedAt = time.Now().UTC()
	r.store.orders[order.ID] = *order
	return nil
}

type memoryOperators struct{ store *MemoryStore }

var _ OperatorRepository = memoryOperators{}

func (r memoryOperators) Create(_ context.Context, op *models.Operator) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	op.ID = r.store.nextOperatorID
	r.store.nextOperatorID++
	op.CreatedAt = time.Now().UTC()
	op.UpdatedAt = op.CreatedAt
	r.store.operators[op.ID] = *op
	return nil
}

func (r memoryOperators) GetByID(_ context.Context, id uint) (*models.Operator, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	op, ok := r.store.operators[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &op, nil
}

func (r memoryOperators) GetByUsername(_ context.Context, username string) (*models.Operator, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, op := range r.store.operators {
		if op.Username == username {
			cp := op
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryOperators) Update(_ context.Context, op *models.Operator) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.operators[op.ID]; !ok {
		return ErrNotFound
	}
	op.UpdatedAt = time.Now().UTC()
	r.store.operators[op.ID] = *op
	return nil
}
