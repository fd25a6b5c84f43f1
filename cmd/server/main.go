package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"pharmacy_admin/internal/config"
	"pharmacy_admin/internal/database"
	"pharmacy_admin/internal/handlers"
	"pharmacy_admin/internal/logger"
	"pharmacy_admin/internal/migrations"
	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/ordering"
	"pharmacy_admin/internal/redis"
	"pharmacy_admin/internal/repository"
	"pharmacy_admin/internal/services"
	"pharmacy_admin/internal/storage"
	"pharmacy_admin/internal/upstream"
	"pharmacy_admin/pkg/whatsapp"
)

func main() {
	app := &cli.App{
		Name:  "pharmacy-admin",
		Usage: "place pharmacy subscription orders",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "migrate the database and create the default operator",
				Action: migrate,
			},
			{
				Name:   "sync",
				Usage:  "pull subscriptions from the platform API once",
				Action: syncSubscriptions,
			},
			{
				Name:      "estimate",
				Usage:     "print the estimated next delivery date",
				ArgsUsage: "<frequency> <YYYY-MM-DD>",
				Action:    estimate,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func newUpstream(cfg *config.Config) *upstream.Client {
	return upstream.NewClient(cfg.UpstreamAPIURL, upstream.StaticToken(cfg.UpstreamAPIToken), cfg.UpstreamTimeout())
}

func connect(cfg *config.Config) (*gorm.DB, services.OperatorService, error) {
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	operators := services.NewOperatorService(repository.NewOperatorRepository(db), cfg.JWTSecret, cfg.JWTTTL())
	return db, operators, nil
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, operators, err := connect(cfg)
	if err != nil {
		return err
	}
	return migrations.RunMigrations(c.Context, db, operators, cfg.AdminUsername, cfg.AdminPassword)
}

func syncSubscriptions(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	svc := services.NewSubscriptionService(newUpstream(cfg), repository.NewSubscriptionRepository(db), repository.NewOrderRepository(db), nil)
	res, err := svc.Sync(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("fetched %d, stored %d, failed %d, warnings %d\n", res.Fetched, res.Upserted, res.Failed, res.Warnings)
	return nil
}

func estimate(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: estimate <frequency> <YYYY-MM-DD>", 2)
	}
	base, err := time.Parse("2006-01-02", c.Args().Get(1))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid date %q", c.Args().Get(1)), 2)
	}
	next, ok := ordering.EstimateNextDelivery(models.Frequency(c.Args().Get(0)), base)
	if !ok {
		fmt.Fprintf(os.Stderr, "warning: unrecognized frequency %q, assumed monthly\n", c.Args().Get(0))
	}
	fmt.Println(next.Format("2006-01-02"))
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, operators, err := connect(cfg)
	if err != nil {
		return err
	}
	if err := migrations.RunMigrations(c.Context, db, operators, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}

	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	healthChecks := []handlers.HealthCheck{
		{Name: "postgres", Ping: func(ctx context.Context) error { return database.Ping(ctx, db) }},
		{Name: "redis", Ping: redisClient.Ping},
	}

	var receipts services.ReceiptArchive
	if cfg.MinioEnabled() {
		minioClient, err := storage.NewMinIOClient(c.Context, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return err
		}
		receipts = minioClient
		healthChecks = append(healthChecks, handlers.HealthCheck{Name: "minio", Ping: minioClient.Ping})
	}

	var notifier services.NotificationService
	if cfg.WhatsAppEnabled {
		notifier = services.NewNotificationService(whatsapp.NewClient(
			cfg.WhatsAppAPIURL, cfg.WhatsAppUsername, cfg.WhatsAppPassword, cfg.WhatsAppPath, cfg.WhatsAppCountry,
		))
	}

	upstreamClient := newUpstream(cfg)
	subRepo := repository.NewSubscriptionRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	router := handlers.NewRouter(handlers.RouterDeps{
		Operators:     operators,
		Subscriptions: services.NewSubscriptionService(upstreamClient, subRepo, orderRepo, receipts),
		Placement: services.NewOrderPlacementService(upstreamClient, redisClient, subRepo, orderRepo, receipts, notifier,
			services.PlacementOptions{
				SessionTTL:       cfg.SessionTTL(),
				PharmacyCacheTTL: cfg.PharmacyCacheTTL(),
				SubmitLockTTL:    cfg.UpstreamTimeout() + 30*time.Second,
			}),
		HealthChecks: healthChecks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("server starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
