package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pharmacy_admin/internal/models"
)

type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id string) (*models.Subscription, error)
	List(ctx context.Context, f SubscriptionFilter) ([]models.Subscription, error)
	UpdateNextDelivery(ctx context.Context, id string, next time.Time, source string) error
	UpdateStatus(ctx context.Context, id string, status models.SubscriptionStatus) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(sub).Error
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) List(ctx context.Context, f SubscriptionFilter) ([]models.Subscription, error) {
	var subs []models.Subscription
	q := r.db.WithContext(ctx).Order("next_delivery ASC NULLS LAST")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("customer_name ILIKE ? OR customer_phone ILIKE ? OR id = ?", like, like, f.Search)
	}
	err := q.Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) UpdateNextDelivery(ctx context.Context, id string, next time.Time, source string) error {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", id).Updates(map[string]interface{}{
		"next_delivery":        next,
		"next_delivery_source": source,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *subscriptionRepository) UpdateStatus(ctx context.Context, id string, status models.SubscriptionStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":    status,
		"is_active": status == models.SubscriptionActive,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
