package repository

import (
	"context"

	"gorm.io/gorm"

	"pharmacy_admin/internal/models"
)

type OperatorRepository interface {
	Create(ctx context.Context, op *models.Operator) error
	GetByID(ctx context.Context, id uint) (*models.Operator, error)
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
	Update(ctx context.Context, op *models.Operator) error
}

type operatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) OperatorRepository {
	return &operatorRepository{db: db}
}

func (r *operatorRepository) Create(ctx context.Context, op *models.Operator) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func (r *operatorRepository) GetByID(ctx context.Context, id uint) (*models.Operator, error) {
	var op models.Operator
	err := r.db.WithContext(ctx).First(&op, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &op, nil
}

func (r *operatorRepository) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var op models.Operator
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&op).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &op, nil
}

func (r *operatorRepository) Update(ctx context.Context, op *models.Operator) error {
	return r.db.WithContext(ctx).Save(op).Error
}
