package repository

import (
	"context"

	"gorm.io/gorm"

	"pharmacy_admin/internal/models"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.PlacedOrder) error
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.PlacedOrder, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) ([]models.PlacedOrder, error)
	Update(ctx context.Context, order *models.PlacedOrder) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.PlacedOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.PlacedOrder, error) {
	var order models.PlacedOrder
	err := r.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (r *orderRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) ([]models.PlacedOrder, error) {
	var orders []models.PlacedOrder
	err := r.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).Order("order_date DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Update(ctx context.Context, order *models.PlacedOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}
