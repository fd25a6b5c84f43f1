package migrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pharmacy_admin/internal/database"
	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/repository"
	"pharmacy_admin/internal/services"
)

// RunMigrations updates the schema and creates default data.
func RunMigrations(ctx context.Context, db *gorm.DB, operators services.OperatorService, adminUsername, adminPassword string) error {
	logrus.Info("running database migrations")
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := EnsureSuperAdmin(ctx, operators, adminUsername, adminPassword); err != nil {
		logrus.WithError(err).Warn("failed to create default operator")
	}

	logrus.Info("database migrations completed")
	return nil
}

// EnsureSuperAdmin creates the initial super admin unless the username exists.
func EnsureSuperAdmin(ctx context.Context, operators services.OperatorService, username, password string) error {
	existing, err := operators.GetOperatorByUsername(ctx, username)
	if err == nil && existing != nil {
		logrus.WithField("username", username).Info("super admin already exists")
		return nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	superAdmin := &models.Operator{
		Username: username,
		Email:    username + "@localhost",
		Role:     string(models.SuperAdmin),
		IsActive: true,
	}
	if err := operators.CreateOperator(ctx, superAdmin, password); err != nil {
		return err
	}
	logrus.WithField("username", username).Info("super admin created")
	return nil
}
